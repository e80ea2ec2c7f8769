package marketplace

import (
	"context"
	"fmt"

	"tripdesk/models"
)

// StaySearchParams describe a stay availability search. Guests are submitted
// individually so the upstream can price adult and child occupancy.
type StaySearchParams struct {
	AccommodationID string // restrict to one property (extension re-search)
	Location        string
	CheckInDate     string
	CheckOutDate    string
	Adults          int
	Children        int
	Rooms           int
}

// CreateStayBookingParams commit a quote into a booking.
type CreateStayBookingParams struct {
	QuoteID         string
	Guests          []models.Guest
	Email           string
	PhoneNumber     string
	SpecialRequests string
	// Payment settles the booking upstream; either account balance or a
	// reference to an already-captured card charge.
	Payment map[string]string
	// Metadata is mirrored onto the booking record upstream.
	Metadata map[string]string
}

// UpdateStayBookingParams patch mutable booking fields.
type UpdateStayBookingParams struct {
	Email           string            `json:"email,omitempty"`
	PhoneNumber     string            `json:"phone_number,omitempty"`
	SpecialRequests string            `json:"stay_special_requests,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// StaysAPI is the stays surface of the marketplace.
type StaysAPI interface {
	Search(ctx context.Context, params StaySearchParams) ([]models.StayOffer, error)
	FetchAllRates(ctx context.Context, searchResultID string) (*models.Accommodation, error)
	CreateQuote(ctx context.Context, rateID string) (*models.Quote, error)
	CreateBooking(ctx context.Context, params CreateStayBookingParams) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*models.CancellationResult, error)
	UpdateBooking(ctx context.Context, bookingID string, params UpdateStayBookingParams) (*models.Booking, error)
}

// StaysGateway implements StaysAPI over the shared marketplace client.
type StaysGateway struct {
	client *Client
}

// NewStaysGateway returns the stays surface backed by c.
func NewStaysGateway(c *Client) *StaysGateway {
	return &StaysGateway{client: c}
}

func (g *StaysGateway) Search(ctx context.Context, params StaySearchParams) ([]models.StayOffer, error) {
	guests := make([]map[string]interface{}, 0, params.Adults+params.Children)
	for i := 0; i < params.Adults; i++ {
		guests = append(guests, map[string]interface{}{"type": "adult"})
	}
	for i := 0; i < params.Children; i++ {
		guests = append(guests, map[string]interface{}{"type": "child"})
	}
	rooms := params.Rooms
	if rooms == 0 {
		rooms = 1
	}
	body := map[string]interface{}{
		"check_in_date":  params.CheckInDate,
		"check_out_date": params.CheckOutDate,
		"guests":         guests,
		"rooms":          rooms,
	}
	if params.AccommodationID != "" {
		body["accommodation"] = map[string]interface{}{"ids": []string{params.AccommodationID}}
	} else if params.Location != "" {
		body["location"] = map[string]interface{}{"query": params.Location}
	}

	var resp struct {
		Results []struct {
			ID                       string               `json:"id"`
			Accommodation            models.Accommodation `json:"accommodation"`
			CheapestRateTotalAmount  string               `json:"cheapest_rate_total_amount"`
			CheapestRateCurrency     string               `json:"cheapest_rate_currency"`
		} `json:"results"`
	}
	if err := g.client.Post(ctx, "/stays/search", body, &resp); err != nil {
		return nil, err
	}

	offers := make([]models.StayOffer, 0, len(resp.Results))
	for _, r := range resp.Results {
		offers = append(offers, models.StayOffer{
			SearchResultID:     r.ID,
			Accommodation:      r.Accommodation,
			CheapestRateAmount: r.CheapestRateTotalAmount,
			Currency:           r.CheapestRateCurrency,
			CheckInDate:        params.CheckInDate,
			CheckOutDate:       params.CheckOutDate,
		})
	}
	return offers, nil
}

func (g *StaysGateway) FetchAllRates(ctx context.Context, searchResultID string) (*models.Accommodation, error) {
	var resp struct {
		Accommodation models.Accommodation `json:"accommodation"`
	}
	path := fmt.Sprintf("/stays/search_results/%s/actions/fetch_all_rates", searchResultID)
	if err := g.client.Post(ctx, path, map[string]interface{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Accommodation, nil
}

func (g *StaysGateway) CreateQuote(ctx context.Context, rateID string) (*models.Quote, error) {
	var quote models.Quote
	body := map[string]interface{}{"rate_id": rateID}
	if err := g.client.Post(ctx, "/stays/quotes", body, &quote); err != nil {
		return nil, err
	}
	if quote.RateID == "" {
		quote.RateID = rateID
	}
	return &quote, nil
}

func (g *StaysGateway) CreateBooking(ctx context.Context, params CreateStayBookingParams) (*models.Booking, error) {
	guests := make([]map[string]string, 0, len(params.Guests))
	for _, guest := range params.Guests {
		m := map[string]string{
			"given_name":  guest.GivenName,
			"family_name": guest.FamilyName,
		}
		if guest.BornOn != "" {
			m["born_on"] = guest.BornOn
		}
		guests = append(guests, m)
	}
	body := map[string]interface{}{
		"quote_id":     params.QuoteID,
		"guests":       guests,
		"email":        params.Email,
		"phone_number": params.PhoneNumber,
	}
	if params.SpecialRequests != "" {
		body["stay_special_requests"] = params.SpecialRequests
	}
	if params.Payment != nil {
		body["payment"] = params.Payment
	}
	if params.Metadata != nil {
		body["metadata"] = params.Metadata
	}

	var booking models.Booking
	if err := g.client.Post(ctx, "/stays/bookings", body, &booking); err != nil {
		return nil, err
	}
	booking.Kind = models.BookingKindStay
	return &booking, nil
}

func (g *StaysGateway) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	if err := g.client.Get(ctx, "/stays/bookings/"+bookingID, nil, &booking); err != nil {
		return nil, err
	}
	booking.Kind = models.BookingKindStay
	return &booking, nil
}

func (g *StaysGateway) CancelBooking(ctx context.Context, bookingID string) (*models.CancellationResult, error) {
	var result models.CancellationResult
	path := fmt.Sprintf("/stays/bookings/%s/actions/cancel", bookingID)
	if err := g.client.Post(ctx, path, map[string]interface{}{}, &result); err != nil {
		return nil, err
	}
	if result.BookingID == "" {
		result.BookingID = bookingID
	}
	return &result, nil
}

func (g *StaysGateway) UpdateBooking(ctx context.Context, bookingID string, params UpdateStayBookingParams) (*models.Booking, error) {
	var booking models.Booking
	if err := g.client.Patch(ctx, "/stays/bookings/"+bookingID, params, &booking); err != nil {
		return nil, err
	}
	booking.Kind = models.BookingKindStay
	return &booking, nil
}
