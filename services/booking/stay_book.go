package booking

import (
	"context"

	"tripdesk/marketplace"
	"tripdesk/models"

	"go.uber.org/zap"
)

// SearchStays is a read-only pass-through to the stays gateway.
func (s *DefaultBookingService) SearchStays(ctx context.Context, params marketplace.StaySearchParams) ([]models.StayOffer, error) {
	offers, err := s.Stays.Search(ctx, params)
	if err != nil {
		return nil, normalizeGatewayError(err, "stay search")
	}
	return offers, nil
}

// BookStay drives the simple hotel booking flow: quote the rate, gate on
// guest details and payment, charge the card, commit the booking upstream and
// record the charge in the ledger.
func (s *DefaultBookingService) BookStay(ctx context.Context, req BookStayRequest) (*BookingOutcome, error) {
	if req.RateID == "" {
		return nil, newWorkflowError(CodeMissingField, "Missing rate id", "A rate_id is required to book a stay.")
	}
	for _, guest := range req.Guests {
		if guest.GivenName == "" || guest.FamilyName == "" {
			return nil, newWorkflowError(CodeMissingField, "Incomplete guest details", "Every guest needs given_name and family_name.")
		}
	}
	if len(req.Guests) == 0 {
		return nil, newWorkflowError(CodeMissingField, "Missing guests", "At least one guest is required.")
	}
	if req.Email == "" {
		return nil, newWorkflowError(CodeMissingField, "Missing contact email", "")
	}

	quote, err := s.Stays.CreateQuote(ctx, req.RateID)
	if err != nil {
		return nil, normalizeGatewayError(err, "quote creation")
	}
	s.Logger.Info("stay quote created",
		zap.String("quote", quote.ID),
		zap.String("amount", quote.TotalAmount),
		zap.String("currency", quote.TotalCurrency))

	// No payment yet: return the payment form and stop. Nothing has been
	// charged or booked.
	if req.Payment == nil {
		metadata := map[string]interface{}{
			"quote_id":     quote.ID,
			"rate_id":      req.RateID,
			"guests":       req.Guests,
			"email":        req.Email,
			"phone_number": req.PhoneNumber,
		}
		if quote.Accommodation != nil {
			metadata["hotel_name"] = quote.Accommodation.Name
		}
		return &BookingOutcome{
			Status:         "payment_required",
			PaymentRequest: models.NewPaymentRequestArtifact(quote.TotalAmount, quote.TotalCurrency, metadata),
		}, nil
	}

	chargeRef, upstreamPayment, err := s.capturePayment(ctx, req.Payment, quote.TotalAmount, quote.TotalCurrency)
	if err != nil {
		return nil, err
	}

	bookingMeta := map[string]string{}
	if chargeRef != "" {
		bookingMeta[models.MetadataKeyChargeRef] = chargeRef
	}
	booking, err := s.Stays.CreateBooking(ctx, marketplace.CreateStayBookingParams{
		QuoteID:         quote.ID,
		Guests:          req.Guests,
		Email:           req.Email,
		PhoneNumber:     req.PhoneNumber,
		SpecialRequests: req.SpecialRequests,
		Payment:         upstreamPayment,
		Metadata:        bookingMeta,
	})
	if err != nil {
		// The charge already went through; surface it so the money can be
		// recovered out-of-band.
		s.Logger.Error("stay booking failed after charge",
			zap.String("charge", chargeRef), zap.Error(err))
		return nil, normalizeGatewayError(err, "booking creation")
	}

	outcome := &BookingOutcome{
		Status:          "success",
		BookingID:       booking.ID,
		Booking:         booking,
		ChargeReference: chargeRef,
	}
	if chargeRef != "" {
		record := &models.PaymentRecord{
			BookingID:       booking.ID,
			ChargeReference: chargeRef,
			Amount:          quote.TotalAmount,
			Currency:        quote.TotalCurrency,
		}
		if err := s.Ledger.Record(ctx, record); err != nil {
			// The booking stands; a missing ledger entry only degrades the
			// future refund path, which falls back to booking metadata.
			s.Logger.Warn("failed to record payment in ledger",
				zap.String("booking", booking.ID), zap.Error(err))
			outcome.Warnings = append(outcome.Warnings, "Payment succeeded but could not be recorded locally; refunds will rely on booking metadata.")
		}
	}
	s.Logger.Info("stay booked",
		zap.String("booking", booking.ID),
		zap.String("charge", chargeRef))
	return outcome, nil
}

// UpdateStay patches mutable booking fields upstream.
func (s *DefaultBookingService) UpdateStay(ctx context.Context, bookingID string, params marketplace.UpdateStayBookingParams) (*models.Booking, error) {
	if bookingID == "" {
		return nil, newWorkflowError(CodeMissingField, "Missing booking id", "")
	}
	booking, err := s.Stays.UpdateBooking(ctx, bookingID, params)
	if err != nil {
		return nil, normalizeGatewayError(err, "booking update")
	}
	return booking, nil
}

// capturePayment turns the supplied payment method into money: balance
// payments settle upstream directly; card payments are tokenized and charged,
// returning the payment-intent id as the charge reference. The upstream
// payment object settles the booking from balance either way.
func (s *DefaultBookingService) capturePayment(ctx context.Context, payment *models.PaymentMethod, amount, currency string) (string, map[string]string, error) {
	upstream := map[string]string{
		"type":     models.PaymentMethodBalance,
		"amount":   amount,
		"currency": currency,
	}
	if payment.IsBalance() {
		return "", upstream, nil
	}
	if payment.Card == nil {
		return "", nil, newWorkflowError(CodeMissingField, "Missing card details", "Card payment selected but no card supplied.")
	}

	tokenID, err := s.Processor.Tokenize(ctx, *payment.Card)
	if err != nil {
		return "", nil, newWorkflowError(CodeUnavailable, "Payment tokenization failed", err.Error())
	}
	chargeRef, err := s.Processor.Charge(ctx, amount, currency, tokenID)
	if err != nil {
		return "", nil, newWorkflowError(CodeUnavailable, "Payment failed", err.Error())
	}
	upstream["payment_intent_id"] = chargeRef
	return chargeRef, upstream, nil
}
