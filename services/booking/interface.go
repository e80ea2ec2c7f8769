package booking

import (
	"context"
	"time"

	ledgerRepo "tripdesk/database/repository/ledger"
	"tripdesk/marketplace"
	"tripdesk/models"
	"tripdesk/payments"

	"go.uber.org/zap"
)

// BookStayRequest books a hotel rate.
type BookStayRequest struct {
	RateID          string                `json:"rate_id"`
	Guests          []models.Guest        `json:"guests"`
	Email           string                `json:"email"`
	PhoneNumber     string                `json:"phone_number,omitempty"`
	SpecialRequests string                `json:"stay_special_requests,omitempty"`
	Payment         *models.PaymentMethod `json:"payment,omitempty"`
}

// CancelStayRequest cancels a hotel booking, refunding against the ledger.
type CancelStayRequest struct {
	BookingID              string `json:"booking_id"`
	RefundAmount           string `json:"refund_amount,omitempty"` // default: full original amount
	ProceedDespiteWarnings bool   `json:"proceed_despite_warnings,omitempty"`
}

// ExtendStayRequest moves a booking to new dates by cancel-and-rebook.
type ExtendStayRequest struct {
	BookingID              string                `json:"booking_id"`
	CheckInDate            string                `json:"check_in_date"`
	CheckOutDate           string                `json:"check_out_date"`
	PreferredRateID        string                `json:"preferred_rate_id,omitempty"`
	CustomerConfirmation   bool                  `json:"customer_confirmation,omitempty"`
	ProceedDespiteWarnings bool                  `json:"proceed_despite_warnings,omitempty"`
	Payment                *models.PaymentMethod `json:"payment,omitempty"`
	// PendingToken references the stored preview from a prior call so the
	// confirming call need not resend every parameter.
	PendingToken string `json:"pending_token,omitempty"`
}

// BookFlightRequest books a flight offer. Loyalty details, when both are
// supplied, are attached to every passenger on the order; services carry
// ancillaries such as seat selections picked from the offer's seat maps.
type BookFlightRequest struct {
	OfferID                   string                `json:"offer_id"`
	Passengers                []models.Passenger    `json:"passengers"`
	Email                     string                `json:"email"`
	PhoneNumber               string                `json:"phone_number,omitempty"`
	Payment                   *models.PaymentMethod `json:"payment,omitempty"`
	LoyaltyProgrammeReference string                `json:"loyalty_programme_reference,omitempty"`
	LoyaltyAccountNumber      string                `json:"loyalty_account_number,omitempty"`
	Services                  []models.OrderService `json:"services,omitempty"`
}

// CancelFlightRequest cancels a flight order via the two-phase upstream flow.
type CancelFlightRequest struct {
	OrderID                string `json:"order_id"`
	ProceedDespiteWarnings bool   `json:"proceed_despite_warnings,omitempty"`
}

// ChangeFlightRequest asks upstream for change offers on an existing order.
type ChangeFlightRequest struct {
	OrderID    string               `json:"order_id"`
	Slices     []models.FlightSlice `json:"slices,omitempty"`
	Type       string               `json:"type,omitempty"`
	CabinClass string               `json:"cabin_class,omitempty"`
}

// BookingOutcome is the success payload of a booking workflow. A payment
// request or confirmation preview is returned instead when the workflow
// pauses before committing.
type BookingOutcome struct {
	Status          string                         `json:"status"`
	BookingID       string                         `json:"booking_id,omitempty"`
	Booking         *models.Booking                `json:"booking,omitempty"`
	ChargeReference string                         `json:"charge_reference,omitempty"`
	PaymentRequest  *models.PaymentRequestArtifact `json:"payment_request,omitempty"`
	Warnings        []string                       `json:"warnings,omitempty"`
}

// CancellationOutcome reports a cancellation plus its refund leg. Refund
// failures after a successful cancellation are soft: RefundProcessed is false
// and RefundError carries the detail, but the cancellation stands.
type CancellationOutcome struct {
	Status          string     `json:"status"`
	BookingID       string     `json:"booking_id"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	RefundProcessed bool       `json:"refund_processed"`
	RefundAmount    string     `json:"refund_amount,omitempty"`
	RefundID        string     `json:"refund_id,omitempty"`
	RefundError     string     `json:"refund_error,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// ExtensionOutcome reports a completed extend-stay workflow, or the preview /
// payment-request pause points before it commits.
type ExtensionOutcome struct {
	Status            string                         `json:"status"`
	OriginalBookingID string                         `json:"original_booking_id,omitempty"`
	NewBookingID      string                         `json:"new_booking_id,omitempty"`
	CostChange        *models.ExtensionCostChange    `json:"cost_change,omitempty"`
	RefundProcessed   bool                           `json:"refund_processed"`
	RefundError       string                         `json:"refund_error,omitempty"`
	Preview           *models.ConfirmationPreview    `json:"preview,omitempty"`
	PaymentRequest    *models.PaymentRequestArtifact `json:"payment_request,omitempty"`
	Warnings          []string                       `json:"warnings,omitempty"`
}

// BookingService drives the booking, cancellation and extension state
// machines across the marketplace and payment gateways.
type BookingService interface {
	SearchStays(ctx context.Context, params marketplace.StaySearchParams) ([]models.StayOffer, error)
	BookStay(ctx context.Context, req BookStayRequest) (*BookingOutcome, error)
	CancelStay(ctx context.Context, req CancelStayRequest) (*CancellationOutcome, error)
	ExtendStay(ctx context.Context, req ExtendStayRequest) (*ExtensionOutcome, error)
	UpdateStay(ctx context.Context, bookingID string, params marketplace.UpdateStayBookingParams) (*models.Booking, error)

	SearchFlights(ctx context.Context, params marketplace.FlightSearchParams) ([]models.FlightOffer, error)
	SeatMaps(ctx context.Context, offerID string) ([]models.SeatMap, error)
	BookFlight(ctx context.Context, req BookFlightRequest) (*BookingOutcome, error)
	CancelFlight(ctx context.Context, req CancelFlightRequest) (*CancellationOutcome, error)
	ChangeFlightOffers(ctx context.Context, req ChangeFlightRequest) ([]models.ChangeOffer, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Stays     marketplace.StaysAPI
	Flights   marketplace.FlightsAPI
	Processor payments.Processor
	Ledger    ledgerRepo.PaymentLedger
	Pending   PendingStore
	Logger    *zap.Logger

	// Now is swappable for deadline tests; defaults to time.Now.
	Now func() time.Time

	locks keyedLocks
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
