package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripdesk/marketplace"
	"tripdesk/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExtendStay moves a confirmed hotel booking to new dates. Extension is
// cancel-and-rebook, never an in-place update: the workflow previews the cost
// change, gates on customer confirmation and payment, then charges the new
// stay, cancels the original booking, refunds its charge and creates the
// replacement.
//
// Step order past the payment gate is a correctness invariant: the new charge
// must succeed before the original booking is touched, so a failed charge can
// never leave the customer without a reservation. The price of that ordering
// is a brief window where both charges exist, which a refund remedies.
//
// Calling this twice with confirmation and payment issues two independent
// charges; deduplication is the upstream marketplace's responsibility, not
// this layer's.
func (s *DefaultBookingService) ExtendStay(ctx context.Context, req ExtendStayRequest) (*ExtensionOutcome, error) {
	if req.PendingToken != "" {
		if err := s.resumePending(ctx, &req); err != nil {
			return nil, err
		}
	}
	if req.BookingID == "" || !strings.HasPrefix(req.BookingID, "bok_") {
		return nil, newWorkflowError(CodeMissingField, "Invalid booking id", "booking_id must start with \"bok_\".")
	}
	unlock := s.locks.acquire(req.BookingID)
	defer unlock()

	checkIn, checkOut, err := s.validateStayDates(req.CheckInDate, req.CheckOutDate)
	if err != nil {
		return nil, err
	}

	// Step 1: the original booking must be confirmed.
	original, err := s.Stays.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, normalizeGatewayError(err, "booking fetch")
	}
	if original.Status != models.BookingStatusConfirmed {
		return nil, newWorkflowError(CodeInvalidState, "Booking is not extendable",
			"Only confirmed bookings can be extended; current status is "+original.Status+".")
	}
	if original.Accommodation == nil {
		return nil, newWorkflowError(CodeInvalidState, "Booking has no accommodation reference", "")
	}

	// Step 2: original cost and guest composition.
	originalMinor, err := models.ParseAmount(original.TotalAmount)
	if err != nil {
		return nil, newWorkflowError(CodeInvalidState, "Booking has an unparseable total amount", err.Error())
	}
	originalCheckIn, originalCheckOut, perr := parseBookingDates(original)
	if perr != nil {
		return nil, perr
	}
	originalNights := nightsBetween(originalCheckIn, originalCheckOut)
	adults, children := s.guestComposition(original.Guests)

	// Step 3: refund-window check before anything destructive is planned.
	var warnings []string
	if err := s.checkRefundDeadline(original, req.ProceedDespiteWarnings, false, &warnings); err != nil {
		return nil, err
	}

	// Step 4: availability at the same property for the new dates.
	offers, err := s.Stays.Search(ctx, marketplace.StaySearchParams{
		AccommodationID: original.Accommodation.ID,
		CheckInDate:     req.CheckInDate,
		CheckOutDate:    req.CheckOutDate,
		Adults:          adults,
		Children:        children,
	})
	if err != nil {
		return nil, normalizeGatewayError(err, "availability search")
	}
	if len(offers) == 0 {
		return nil, newWorkflowError(CodeNoAvailability, "No availability for the new dates",
			fmt.Sprintf("%s has no rooms from %s to %s.", original.Accommodation.Name, req.CheckInDate, req.CheckOutDate))
	}

	// Step 5: detailed rates for the single result, selected by priority.
	accommodation, err := s.Stays.FetchAllRates(ctx, offers[0].SearchResultID)
	if err != nil {
		return nil, normalizeGatewayError(err, "rate fetch")
	}
	rates := collectRates(accommodation)
	originalRateID := ""
	if original.Rate != nil {
		originalRateID = original.Rate.ID
	}
	selected := selectRate(rates, req.PreferredRateID, originalRateID)
	if selected == nil {
		return nil, newWorkflowError(CodeNoSuitableRate, "No suitable rate found",
			"No room-only, pay-now rate payable from balance is available for the new dates.")
	}

	// Step 6: cost-change preview.
	newMinor, err := models.ParseAmount(selected.TotalAmount)
	if err != nil {
		return nil, newWorkflowError(CodeNoSuitableRate, "Selected rate has an unparseable amount", err.Error())
	}
	newNights := nightsBetween(checkIn, checkOut)
	costChange := &models.ExtensionCostChange{
		OriginalAmount:   models.FormatAmount(originalMinor),
		OriginalNights:   originalNights,
		OriginalPerNight: models.FormatAmount(originalMinor / int64(originalNights)),
		NewAmount:        models.FormatAmount(newMinor),
		NewNights:        newNights,
		NewPerNight:      models.FormatAmount(newMinor / int64(newNights)),
		Currency:         selected.TotalCurrency,
		RateID:           selected.ID,
	}

	if !req.CustomerConfirmation {
		token := uuid.New().String()
		pending := PendingExtension{
			BookingID:       req.BookingID,
			CheckInDate:     req.CheckInDate,
			CheckOutDate:    req.CheckOutDate,
			PreferredRateID: req.PreferredRateID,
			SelectedRateID:  selected.ID,
		}
		if err := s.Pending.Put(ctx, token, pending); err != nil {
			s.Logger.Warn("failed to store pending extension", zap.Error(err))
			token = ""
		}
		// A repeated preview supersedes the earlier token; drop it so stale
		// resumable state does not pile up until TTL.
		if req.PendingToken != "" && req.PendingToken != token {
			if err := s.Pending.Delete(ctx, req.PendingToken); err != nil {
				s.Logger.Warn("failed to delete superseded pending extension", zap.Error(err))
			}
		}
		preview := &models.ConfirmationPreview{
			Message: fmt.Sprintf("Extending your stay at %s will cost %s %s for %d nights (was %s %s for %d nights). Confirm to proceed.",
				original.Accommodation.Name,
				costChange.NewAmount, costChange.Currency, newNights,
				costChange.OriginalAmount, costChange.Currency, originalNights),
			Rates:        rates,
			CostChange:   costChange,
			PendingToken: token,
		}
		return &ExtensionOutcome{
			Status:            "confirmation_required",
			OriginalBookingID: req.BookingID,
			CostChange:        costChange,
			Preview:           preview,
			Warnings:          warnings,
		}, nil
	}

	// Step 7: confirmed but unpaid. Still no mutation.
	if req.Payment == nil {
		metadata := map[string]interface{}{
			"booking_id":    req.BookingID,
			"rate_id":       selected.ID,
			"check_in":      req.CheckInDate,
			"check_out":     req.CheckOutDate,
			"hotel_name":    original.Accommodation.Name,
			"pending_token": req.PendingToken,
		}
		return &ExtensionOutcome{
			Status:            "payment_required",
			OriginalBookingID: req.BookingID,
			CostChange:        costChange,
			PaymentRequest:    models.NewPaymentRequestArtifact(selected.TotalAmount, selected.TotalCurrency, metadata),
			Warnings:          warnings,
		}, nil
	}

	// Step 8: commit. Quote, charge the new stay, then cancel the original,
	// refund it, and book the replacement — strictly in that order.
	quote, err := s.Stays.CreateQuote(ctx, selected.ID)
	if err != nil {
		return nil, normalizeGatewayError(err, "quote creation")
	}
	chargeRef, upstreamPayment, err := s.capturePayment(ctx, req.Payment, quote.TotalAmount, quote.TotalCurrency)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("extension charge captured",
		zap.String("booking", req.BookingID),
		zap.String("charge", chargeRef),
		zap.String("amount", quote.TotalAmount))

	outcome := &ExtensionOutcome{
		Status:            "success",
		OriginalBookingID: req.BookingID,
		CostChange:        costChange,
		Warnings:          warnings,
	}

	cancelled := s.cancelOriginalForExtension(ctx, original, outcome)

	if cancelled {
		cancelOutcome := &CancellationOutcome{BookingID: original.ID}
		s.refundBooking(ctx, original, "", cancelOutcome)
		outcome.RefundProcessed = cancelOutcome.RefundProcessed
		outcome.RefundError = cancelOutcome.RefundError
		outcome.Warnings = append(outcome.Warnings, cancelOutcome.Warnings...)
	} else {
		outcome.RefundProcessed = false
	}

	bookingMeta := map[string]string{"extended_from": original.ID}
	if chargeRef != "" {
		bookingMeta[models.MetadataKeyChargeRef] = chargeRef
	}
	newBooking, err := s.Stays.CreateBooking(ctx, marketplace.CreateStayBookingParams{
		QuoteID:     quote.ID,
		Guests:      original.Guests,
		Email:       original.Email,
		PhoneNumber: original.PhoneNumber,
		Payment:     upstreamPayment,
		Metadata:    bookingMeta,
	})
	if err != nil {
		// The new charge went through and the original may already be
		// cancelled; surface everything needed for manual remediation.
		s.Logger.Error("replacement booking failed after charge",
			zap.String("original", original.ID),
			zap.String("charge", chargeRef),
			zap.Error(err))
		return nil, newWorkflowError(CodeUnavailable, "Replacement booking failed",
			fmt.Sprintf("The new stay was charged (reference %s) but the replacement booking could not be created: %v", chargeRef, err))
	}

	outcome.NewBookingID = newBooking.ID
	if chargeRef != "" {
		record := &models.PaymentRecord{
			BookingID:       newBooking.ID,
			ChargeReference: chargeRef,
			Amount:          quote.TotalAmount,
			Currency:        quote.TotalCurrency,
		}
		if err := s.Ledger.Record(ctx, record); err != nil {
			s.Logger.Warn("failed to record extension payment in ledger",
				zap.String("booking", newBooking.ID), zap.Error(err))
			outcome.Warnings = append(outcome.Warnings, "Payment succeeded but could not be recorded locally; refunds will rely on booking metadata.")
		}
	}
	if req.PendingToken != "" {
		if err := s.Pending.Delete(ctx, req.PendingToken); err != nil {
			s.Logger.Warn("failed to delete pending extension", zap.Error(err))
		}
	}
	s.Logger.Info("stay extended",
		zap.String("original", original.ID),
		zap.String("replacement", newBooking.ID),
		zap.Bool("refund_processed", outcome.RefundProcessed))
	return outcome, nil
}

// cancelOriginalForExtension cancels the superseded booking. Failure after
// the new charge succeeded is a partial-failure condition: the workflow
// continues (the replacement is still created so the customer is never left
// unreserved), but the condition is surfaced, never swallowed.
func (s *DefaultBookingService) cancelOriginalForExtension(ctx context.Context, original *models.Booking, outcome *ExtensionOutcome) bool {
	result, err := s.Stays.CancelBooking(ctx, original.ID)
	if err == nil && (result.Status != models.BookingStatusCancelled || result.CancelledAt == nil) {
		err = errors.New("upstream did not report the booking as cancelled")
	}
	if err != nil {
		s.Logger.Error("failed to cancel original booking during extension",
			zap.String("booking", original.ID), zap.Error(err))
		outcome.Status = "partial_failure"
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("The original booking %s could not be cancelled and may still be active: %v", original.ID, err))
		return false
	}
	return true
}

// resumePending merges a stored preview into the confirming call.
func (s *DefaultBookingService) resumePending(ctx context.Context, req *ExtendStayRequest) error {
	pending, err := s.Pending.Get(ctx, req.PendingToken)
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return newWorkflowError(CodeInvalidState, "Pending extension expired",
				"The confirmation window has lapsed; please restart the extension.")
		}
		return newWorkflowError(CodeUnavailable, "Pending extension lookup failed", err.Error())
	}
	if req.BookingID == "" {
		req.BookingID = pending.BookingID
	}
	if req.CheckInDate == "" {
		req.CheckInDate = pending.CheckInDate
	}
	if req.CheckOutDate == "" {
		req.CheckOutDate = pending.CheckOutDate
	}
	if req.PreferredRateID == "" {
		if pending.SelectedRateID != "" {
			req.PreferredRateID = pending.SelectedRateID
		} else {
			req.PreferredRateID = pending.PreferredRateID
		}
	}
	return nil
}

// parseBookingDates reads the stay dates off a booking record. Upstream
// always fills them for stay bookings, so a miss is an invalid-state error.
func parseBookingDates(booking *models.Booking) (time.Time, time.Time, error) {
	checkIn, err := time.Parse(dateLayout, booking.CheckInDate)
	if err != nil {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidState, "Booking has an unparseable check-in date", err.Error())
	}
	checkOut, err := time.Parse(dateLayout, booking.CheckOutDate)
	if err != nil {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidState, "Booking has an unparseable check-out date", err.Error())
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, newWorkflowError(CodeInvalidState, "Booking has an empty stay window", "")
	}
	return checkIn, checkOut, nil
}
