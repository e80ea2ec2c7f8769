package models

import "time"

// Rate board and payment classifications used for rate selection.
const (
	BoardTypeRoomOnly    = "room_only"
	PaymentTypePayNow    = "pay_now"
	PaymentMethodBalance = "balance"
	PaymentMethodCard    = "card"
)

// Rate is a priced, bookable room option returned by a rate fetch.
type Rate struct {
	ID                      string          `json:"id"`
	BoardType               string          `json:"board_type,omitempty"`
	PaymentType             string          `json:"payment_type,omitempty"`
	AvailablePaymentMethods []string        `json:"available_payment_methods,omitempty"`
	TotalAmount             string          `json:"total_amount"`
	TotalCurrency           string          `json:"total_currency"`
	CancellationTimeline    []TimelineEntry `json:"cancellation_timeline,omitempty"`
}

// BalancePayable reports whether the rate can be settled from the account
// balance.
func (r *Rate) BalancePayable() bool {
	for _, m := range r.AvailablePaymentMethods {
		if m == PaymentMethodBalance {
			return true
		}
	}
	return false
}

// TimelineEntry is one step of a rate's cancellation timeline: cancelling
// before Before refunds RefundAmount. Entries are ordered by deadline and the
// refundable amount never increases as deadlines pass.
type TimelineEntry struct {
	Before       time.Time `json:"before"`
	RefundAmount string    `json:"refund_amount"`
	Currency     string    `json:"currency,omitempty"`
}

// FullRefundEntry returns the timeline entry whose refund equals the given
// total, i.e. the latest moment the booking can still be cancelled for free.
// A nil result means no full-refund window exists.
func FullRefundEntry(timeline []TimelineEntry, totalAmount string) *TimelineEntry {
	total, err := ParseAmount(totalAmount)
	if err != nil {
		return nil
	}
	for i := range timeline {
		refund, err := ParseAmount(timeline[i].RefundAmount)
		if err != nil {
			continue
		}
		if refund == total {
			return &timeline[i]
		}
	}
	return nil
}

// Quote is a price-locked, single-use booking intent derived from a Rate.
// Quotes are perishable: a stale quote fails at booking time with a
// rate-expired error rather than being caught earlier.
type Quote struct {
	ID            string         `json:"id"`
	RateID        string         `json:"rate_id"`
	TotalAmount   string         `json:"total_amount"`
	TotalCurrency string         `json:"total_currency"`
	CheckInDate   string         `json:"check_in_date,omitempty"`
	CheckOutDate  string         `json:"check_out_date,omitempty"`
	Accommodation *Accommodation `json:"accommodation,omitempty"`
}

// StayOffer is a search result: an accommodation with its cheapest rate.
type StayOffer struct {
	SearchResultID     string        `json:"search_result_id"`
	Accommodation      Accommodation `json:"accommodation"`
	CheapestRateAmount string        `json:"cheapest_rate_total_amount"`
	Currency           string        `json:"cheapest_rate_currency"`
	CheckInDate        string        `json:"check_in_date"`
	CheckOutDate       string        `json:"check_out_date"`
}

// FlightOffer is a priced flight itinerary option, the flight analogue of a
// Rate.
type FlightOffer struct {
	ID            string        `json:"id"`
	TotalAmount   string        `json:"total_amount"`
	TotalCurrency string        `json:"total_currency"`
	Owner         string        `json:"owner,omitempty"`
	Slices        []FlightSlice `json:"slices,omitempty"`
	Passengers    []Passenger   `json:"passengers,omitempty"`
	Refundable    bool          `json:"refundable,omitempty"`
}

// SeatMap is the cabin layout published for one segment of an offer, used to
// pick seat services before booking. Cabin contents vary per airline and are
// passed through untyped.
type SeatMap struct {
	ID        string                   `json:"id"`
	SegmentID string                   `json:"segment_id,omitempty"`
	SliceID   string                   `json:"slice_id,omitempty"`
	Cabins    []map[string]interface{} `json:"cabins,omitempty"`
}

// OrderService is an ancillary added to an order, e.g. a selected seat.
type OrderService struct {
	ID           string   `json:"id"`
	PassengerIDs []string `json:"passenger_ids,omitempty"`
	Quantity     int      `json:"quantity"`
}

// ChangeOffer is an upstream proposal for changing an existing flight order.
type ChangeOffer struct {
	ID              string        `json:"id"`
	ChangeTotal     string        `json:"change_total_amount"`
	Currency        string        `json:"change_total_currency"`
	Slices          []FlightSlice `json:"slices,omitempty"`
	CabinClass      string        `json:"cabin_class,omitempty"`
	PenaltyAmount   string        `json:"penalty_total_amount,omitempty"`
	PenaltyCurrency string        `json:"penalty_total_currency,omitempty"`
}
