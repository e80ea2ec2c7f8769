package booking

import (
	"context"
	"fmt"
	"strings"

	"tripdesk/marketplace"
	"tripdesk/models"

	"go.uber.org/zap"
)

// SearchFlights lists offers for the requested slices and passengers.
func (s *DefaultBookingService) SearchFlights(ctx context.Context, params marketplace.FlightSearchParams) ([]models.FlightOffer, error) {
	if len(params.Slices) == 0 {
		return nil, newWorkflowError(CodeMissingField, "Missing flight slices", "At least one origin/destination slice is required.")
	}
	offers, err := s.Flights.SearchOffers(ctx, params)
	if err != nil {
		return nil, normalizeGatewayError(err, "flight search")
	}
	return offers, nil
}

// SeatMaps retrieves the seat maps published for an offer, used to pick seat
// services before booking. Read-only.
func (s *DefaultBookingService) SeatMaps(ctx context.Context, offerID string) ([]models.SeatMap, error) {
	if offerID == "" || !strings.HasPrefix(offerID, "off_") {
		return nil, newWorkflowError(CodeMissingField, "Invalid offer id", "offer_id must start with \"off_\".")
	}
	maps, err := s.Flights.GetSeatMaps(ctx, offerID)
	if err != nil {
		return nil, normalizeGatewayError(err, "seat map fetch")
	}
	return maps, nil
}

// BookFlight turns a selected offer into an order. Offers go stale quickly,
// so the offer is refreshed first and the refreshed passenger ids are mapped
// back onto the traveller details before the order is created.
func (s *DefaultBookingService) BookFlight(ctx context.Context, req BookFlightRequest) (*BookingOutcome, error) {
	if req.OfferID == "" {
		return nil, newWorkflowError(CodeMissingField, "Missing offer id", "")
	}
	if len(req.Passengers) == 0 {
		return nil, newWorkflowError(CodeMissingField, "Missing passengers", "At least one passenger is required.")
	}
	for i, p := range req.Passengers {
		if p.GivenName == "" || p.FamilyName == "" || p.BornOn == "" {
			return nil, newWorkflowError(CodeMissingField, "Incomplete passenger details",
				fmt.Sprintf("Passenger %d needs given_name, family_name and born_on.", i+1))
		}
	}

	offer, err := s.Flights.GetOffer(ctx, req.OfferID)
	if err != nil {
		return nil, normalizeGatewayError(err, "offer refresh")
	}
	if len(offer.Passengers) != len(req.Passengers) {
		return nil, newWorkflowError(CodeInvalidState, "Passenger count mismatch",
			fmt.Sprintf("The offer was priced for %d passengers but %d were supplied.", len(offer.Passengers), len(req.Passengers)))
	}
	// The refreshed offer reassigns passenger ids; map them back onto the
	// supplied traveller details in order.
	passengers := make([]models.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		p.ID = offer.Passengers[i].ID
		if p.Email == "" {
			p.Email = req.Email
		}
		if p.PhoneNumber == "" {
			p.PhoneNumber = req.PhoneNumber
		}
		if p.Loyalty == nil && req.LoyaltyProgrammeReference != "" && req.LoyaltyAccountNumber != "" {
			p.Loyalty = &models.LoyaltyProgramme{
				Reference:     req.LoyaltyProgrammeReference,
				AccountNumber: req.LoyaltyAccountNumber,
			}
		}
		passengers[i] = p
	}

	// Payment gate: no payment details, no mutation.
	if req.Payment == nil {
		metadata := map[string]interface{}{
			"offer_id": offer.ID,
		}
		return &BookingOutcome{
			Status:         "payment_required",
			PaymentRequest: models.NewPaymentRequestArtifact(offer.TotalAmount, offer.TotalCurrency, metadata),
		}, nil
	}

	chargeRef, upstreamPayment, err := s.capturePayment(ctx, req.Payment, offer.TotalAmount, offer.TotalCurrency)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{}
	if chargeRef != "" {
		metadata[models.MetadataKeyChargeRef] = chargeRef
	}
	order, err := s.Flights.CreateOrder(ctx, marketplace.CreateOrderParams{
		OfferID:    offer.ID,
		Passengers: passengers,
		Payments:   []map[string]string{upstreamPayment},
		Services:   req.Services,
		Metadata:   metadata,
	})
	if err != nil {
		s.Logger.Error("order creation failed after charge",
			zap.String("offer", offer.ID),
			zap.String("charge", chargeRef),
			zap.Error(err))
		return nil, normalizeGatewayError(err, "order creation")
	}

	outcome := &BookingOutcome{
		Status:          "success",
		BookingID:       order.ID,
		Booking:         order,
		ChargeReference: chargeRef,
	}
	if chargeRef != "" {
		record := &models.PaymentRecord{
			BookingID:       order.ID,
			ChargeReference: chargeRef,
			Amount:          offer.TotalAmount,
			Currency:        offer.TotalCurrency,
		}
		if err := s.Ledger.Record(ctx, record); err != nil {
			s.Logger.Warn("failed to record flight payment in ledger",
				zap.String("order", order.ID), zap.Error(err))
			outcome.Warnings = append(outcome.Warnings, "Payment succeeded but could not be recorded locally; refunds will rely on order metadata.")
		}
	}
	s.Logger.Info("flight order created",
		zap.String("order", order.ID),
		zap.String("amount", offer.TotalAmount))
	return outcome, nil
}

// CancelFlight cancels a flight order through the upstream two-phase flow:
// a cancellation object is created first, quoting the refund, and only
// confirmed once the quote is acceptable. A zero or absent refund quote
// interrupts for explicit approval rather than silently forfeiting the fare.
func (s *DefaultBookingService) CancelFlight(ctx context.Context, req CancelFlightRequest) (*CancellationOutcome, error) {
	if req.OrderID == "" || !strings.HasPrefix(req.OrderID, "ord_") {
		return nil, newWorkflowError(CodeMissingField, "Invalid order id", "order_id must start with \"ord_\".")
	}
	unlock := s.locks.acquire(req.OrderID)
	defer unlock()

	order, err := s.Flights.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, normalizeGatewayError(err, "order fetch")
	}
	if order.Status == models.BookingStatusCancelled {
		return nil, newWorkflowError(CodeInvalidState, "Order already cancelled", "")
	}

	cancellation, err := s.Flights.CreateOrderCancellation(ctx, req.OrderID)
	if err != nil {
		return nil, normalizeGatewayError(err, "cancellation quote")
	}

	refundMinor := int64(0)
	if cancellation.RefundAmount != "" {
		refundMinor, err = models.ParseAmount(cancellation.RefundAmount)
		if err != nil {
			refundMinor = 0
		}
	}
	if refundMinor <= 0 && !req.ProceedDespiteWarnings {
		return nil, &ConfirmationRequired{
			Reason: "no_refund",
			Message: fmt.Sprintf("Cancelling order %s returns no refund (quoted %s %s). Confirm to cancel anyway.",
				req.OrderID, orEmpty(cancellation.RefundAmount, "0.00"), orEmpty(cancellation.Currency, order.TotalCurrency)),
		}
	}

	confirmed, err := s.Flights.ConfirmOrderCancellation(ctx, cancellation.ID)
	if err != nil {
		return nil, normalizeGatewayError(err, "cancellation confirmation")
	}
	if confirmed.ConfirmedAt == nil {
		return nil, newWorkflowError(CodeCancelFailed, "Cancellation not confirmed by upstream",
			"The marketplace did not report the order cancellation as confirmed.")
	}
	s.Logger.Info("flight order cancelled",
		zap.String("order", req.OrderID),
		zap.String("refund_quote", cancellation.RefundAmount))

	outcome := &CancellationOutcome{
		Status:      "success",
		BookingID:   req.OrderID,
		CancelledAt: confirmed.ConfirmedAt,
	}
	// The upstream refund quote covers the fare refunded to the original
	// payment source. When our charge funded the order, refund it too.
	if refundMinor > 0 {
		s.refundBooking(ctx, order, cancellation.RefundAmount, outcome)
	} else {
		outcome.RefundProcessed = false
		outcome.Warnings = append(outcome.Warnings, "No refund was due for this cancellation.")
	}
	return outcome, nil
}

// ChangeFlightOffers requests change offers for slices of an existing order.
// The upstream does not filter by cabin on change requests, so the cabin
// preference is applied client-side.
func (s *DefaultBookingService) ChangeFlightOffers(ctx context.Context, req ChangeFlightRequest) ([]models.ChangeOffer, error) {
	if req.OrderID == "" || !strings.HasPrefix(req.OrderID, "ord_") {
		return nil, newWorkflowError(CodeMissingField, "Invalid order id", "order_id must start with \"ord_\".")
	}
	if len(req.Slices) == 0 {
		return nil, newWorkflowError(CodeMissingField, "Missing change slices", "At least one slice to change is required.")
	}

	order, err := s.Flights.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, normalizeGatewayError(err, "order fetch")
	}
	if order.Status != models.BookingStatusConfirmed {
		return nil, newWorkflowError(CodeInvalidState, "Order is not changeable",
			"Only confirmed orders can be changed; current status is "+order.Status+".")
	}

	offers, err := s.Flights.CreateOrderChangeRequest(ctx, marketplace.OrderChangeParams{
		OrderID: req.OrderID,
		Slices:  req.Slices,
	})
	if err != nil {
		return nil, normalizeGatewayError(err, "change request")
	}

	if req.CabinClass == "" {
		return offers, nil
	}
	filtered := offers[:0]
	for _, offer := range offers {
		if changeOfferMatchesCabin(offer, req.CabinClass) {
			filtered = append(filtered, offer)
		}
	}
	return filtered, nil
}

func changeOfferMatchesCabin(offer models.ChangeOffer, cabin string) bool {
	if offer.CabinClass != "" {
		return strings.EqualFold(offer.CabinClass, cabin)
	}
	for _, slice := range offer.Slices {
		if slice.CabinClass != "" && !strings.EqualFold(slice.CabinClass, cabin) {
			return false
		}
	}
	return true
}

func orEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
