package marketplace

import (
	"context"
	"fmt"

	"tripdesk/models"
)

// FlightSearchParams describe an offer request.
type FlightSearchParams struct {
	Slices     []models.FlightSlice
	Passengers []models.Passenger
	CabinClass string
}

// CreateOrderParams commit an offer into an order.
type CreateOrderParams struct {
	OfferID    string
	Passengers []models.Passenger
	// Payments settles the order; balance payments may carry the card charge
	// reference alongside.
	Payments []map[string]string
	Services []models.OrderService
	Metadata map[string]string
}

// OrderChangeParams request change offers for an existing order.
type OrderChangeParams struct {
	OrderID string
	Slices  []models.FlightSlice
	Type    string // e.g. "change"
}

// FlightsAPI is the flights surface of the marketplace.
type FlightsAPI interface {
	SearchOffers(ctx context.Context, params FlightSearchParams) ([]models.FlightOffer, error)
	GetOffer(ctx context.Context, offerID string) (*models.FlightOffer, error)
	GetSeatMaps(ctx context.Context, offerID string) ([]models.SeatMap, error)
	CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Booking, error)
	GetOrder(ctx context.Context, orderID string) (*models.Booking, error)
	CreateOrderCancellation(ctx context.Context, orderID string) (*models.OrderCancellation, error)
	ConfirmOrderCancellation(ctx context.Context, cancellationID string) (*models.OrderCancellation, error)
	CreateOrderChangeRequest(ctx context.Context, params OrderChangeParams) ([]models.ChangeOffer, error)
}

// FlightsGateway implements FlightsAPI over the shared marketplace client.
type FlightsGateway struct {
	client *Client
}

// NewFlightsGateway returns the flights surface backed by c.
func NewFlightsGateway(c *Client) *FlightsGateway {
	return &FlightsGateway{client: c}
}

func (g *FlightsGateway) SearchOffers(ctx context.Context, params FlightSearchParams) ([]models.FlightOffer, error) {
	slices := make([]map[string]string, 0, len(params.Slices))
	for _, s := range params.Slices {
		slices = append(slices, map[string]string{
			"origin":         s.Origin,
			"destination":    s.Destination,
			"departure_date": s.DepartureDate,
		})
	}
	passengers := make([]map[string]string, 0, len(params.Passengers))
	for range params.Passengers {
		passengers = append(passengers, map[string]string{"type": "adult"})
	}
	body := map[string]interface{}{
		"slices":     slices,
		"passengers": passengers,
	}
	if params.CabinClass != "" {
		body["cabin_class"] = params.CabinClass
	}

	var resp struct {
		Offers []models.FlightOffer `json:"offers"`
	}
	if err := g.client.Post(ctx, "/air/offer_requests", body, &resp); err != nil {
		return nil, err
	}
	return resp.Offers, nil
}

func (g *FlightsGateway) GetOffer(ctx context.Context, offerID string) (*models.FlightOffer, error) {
	var offer models.FlightOffer
	if err := g.client.Get(ctx, "/air/offers/"+offerID, nil, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

func (g *FlightsGateway) GetSeatMaps(ctx context.Context, offerID string) ([]models.SeatMap, error) {
	var maps []models.SeatMap
	if err := g.client.Get(ctx, "/air/seat_maps", map[string]string{"offer_id": offerID}, &maps); err != nil {
		return nil, err
	}
	return maps, nil
}

func (g *FlightsGateway) CreateOrder(ctx context.Context, params CreateOrderParams) (*models.Booking, error) {
	passengers := make([]map[string]interface{}, 0, len(params.Passengers))
	for _, p := range params.Passengers {
		passenger := map[string]interface{}{
			"id":           p.ID,
			"given_name":   p.GivenName,
			"family_name":  p.FamilyName,
			"born_on":      p.BornOn,
			"email":        p.Email,
			"phone_number": p.PhoneNumber,
		}
		if p.Loyalty != nil {
			passenger["loyalty_programme"] = map[string]string{
				"reference":      p.Loyalty.Reference,
				"account_number": p.Loyalty.AccountNumber,
			}
		}
		passengers = append(passengers, passenger)
	}
	body := map[string]interface{}{
		"selected_offers": []string{params.OfferID},
		"passengers":      passengers,
		"payments":        params.Payments,
	}
	if len(params.Services) > 0 {
		body["services"] = params.Services
	}
	if params.Metadata != nil {
		body["metadata"] = params.Metadata
	}

	var booking models.Booking
	if err := g.client.Post(ctx, "/air/orders", body, &booking); err != nil {
		return nil, err
	}
	booking.Kind = models.BookingKindFlightOrder
	return &booking, nil
}

func (g *FlightsGateway) GetOrder(ctx context.Context, orderID string) (*models.Booking, error) {
	var booking models.Booking
	if err := g.client.Get(ctx, "/air/orders/"+orderID, nil, &booking); err != nil {
		return nil, err
	}
	booking.Kind = models.BookingKindFlightOrder
	return &booking, nil
}

func (g *FlightsGateway) CreateOrderCancellation(ctx context.Context, orderID string) (*models.OrderCancellation, error) {
	var cancellation models.OrderCancellation
	body := map[string]interface{}{"order_id": orderID}
	if err := g.client.Post(ctx, "/air/order_cancellations", body, &cancellation); err != nil {
		return nil, err
	}
	return &cancellation, nil
}

func (g *FlightsGateway) ConfirmOrderCancellation(ctx context.Context, cancellationID string) (*models.OrderCancellation, error) {
	var cancellation models.OrderCancellation
	path := fmt.Sprintf("/air/order_cancellations/%s/actions/confirm", cancellationID)
	if err := g.client.Post(ctx, path, nil, &cancellation); err != nil {
		return nil, err
	}
	return &cancellation, nil
}

func (g *FlightsGateway) CreateOrderChangeRequest(ctx context.Context, params OrderChangeParams) ([]models.ChangeOffer, error) {
	slices := make([]map[string]string, 0, len(params.Slices))
	for _, s := range params.Slices {
		slices = append(slices, map[string]string{
			"origin":         s.Origin,
			"destination":    s.Destination,
			"departure_date": s.DepartureDate,
		})
	}
	body := map[string]interface{}{
		"order_id": params.OrderID,
	}
	if len(slices) > 0 {
		body["slices"] = map[string]interface{}{"add": slices}
	}
	if params.Type != "" {
		body["type"] = params.Type
	}

	var resp struct {
		OrderChangeOffers []models.ChangeOffer `json:"order_change_offers"`
	}
	if err := g.client.Post(ctx, "/air/order_change_requests", body, &resp); err != nil {
		return nil, err
	}
	return resp.OrderChangeOffers, nil
}
