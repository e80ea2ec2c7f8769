package models

import "time"

// Booking kinds, distinguished by the upstream id prefix.
const (
	BookingKindStay        = "stay"         // bok_...
	BookingKindFlightOrder = "flight_order" // ord_...
)

// Booking statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a confirmed reservation: a hotel stay or a flight order.
type Booking struct {
	ID            string      `json:"id"`
	Kind          string      `json:"kind"`
	Status        string      `json:"status"`
	Reference     string      `json:"reference,omitempty"` // human-facing confirmation code
	TotalAmount   string      `json:"total_amount"`
	TotalCurrency string      `json:"total_currency"`
	CheckInDate   string      `json:"check_in_date,omitempty"`  // stays, YYYY-MM-DD
	CheckOutDate  string      `json:"check_out_date,omitempty"` // stays, YYYY-MM-DD
	Guests        []Guest     `json:"guests,omitempty"`
	Passengers    []Passenger `json:"passengers,omitempty"`
	Email         string      `json:"email,omitempty"`
	PhoneNumber   string      `json:"phone_number,omitempty"`

	// Stay bookings carry the accommodation and booked rate.
	Accommodation *Accommodation `json:"accommodation,omitempty"`
	Rate          *Rate          `json:"rate,omitempty"`

	// Flight orders carry their slices.
	Slices []FlightSlice `json:"slices,omitempty"`

	// Free-form metadata mirrored upstream at creation time. The payment
	// charge reference is stored here as well as in the local ledger.
	Metadata map[string]string `json:"metadata,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
}

// MetadataKeyChargeRef is the metadata key carrying the payment-intent id.
const MetadataKeyChargeRef = "payment_intent_id"

// Guest is a hotel stay occupant.
type Guest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	BornOn     string `json:"born_on,omitempty"` // YYYY-MM-DD, optional upstream
}

// Passenger is a flight order traveller.
type Passenger struct {
	ID          string            `json:"id,omitempty"` // upstream-assigned, refreshed per offer
	GivenName   string            `json:"given_name"`
	FamilyName  string            `json:"family_name"`
	BornOn      string            `json:"born_on"`
	Email       string            `json:"email,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	Loyalty     *LoyaltyProgramme `json:"loyalty_programme,omitempty"`
}

// LoyaltyProgramme attaches a frequent-flyer account to a passenger.
type LoyaltyProgramme struct {
	Reference     string `json:"reference"`
	AccountNumber string `json:"account_number"`
}

// Accommodation is the property a stay booking or search result refers to.
type Accommodation struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	Rooms    []Room  `json:"rooms,omitempty"`
}

// Room groups the rates sold for one room type.
type Room struct {
	Name  string `json:"name"`
	Rates []Rate `json:"rates,omitempty"`
}

// FlightSlice is one direction of travel within a flight order or offer.
type FlightSlice struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	CabinClass    string `json:"cabin_class,omitempty"`
}

// CancellationResult is the upstream response to a stay cancellation. A
// successful cancellation must show both the status and a timestamp; a bare
// 200 is not trusted on its own.
type CancellationResult struct {
	BookingID    string     `json:"booking_id"`
	Status       string     `json:"status"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	RefundAmount string     `json:"refund_amount,omitempty"`
	Currency     string     `json:"currency,omitempty"`
}

// OrderCancellation is the flight analogue: a two-phase upstream object that
// is first created (quoting the refund) and then confirmed.
type OrderCancellation struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"order_id"`
	RefundAmount string     `json:"refund_amount,omitempty"`
	RefundTo     string     `json:"refund_to,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}
