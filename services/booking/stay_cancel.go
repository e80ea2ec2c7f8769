package booking

import (
	"context"
	"errors"

	ledgerRepo "tripdesk/database/repository/ledger"
	"tripdesk/models"

	"go.uber.org/zap"
)

// CancelStay cancels a confirmed hotel booking and refunds the charge that
// funded it. The cancellation and the refund are separate legs: a refund
// failure after a successful cancellation is reported, not raised, because
// the cancellation cannot be undone at that point.
func (s *DefaultBookingService) CancelStay(ctx context.Context, req CancelStayRequest) (*CancellationOutcome, error) {
	if req.BookingID == "" {
		return nil, newWorkflowError(CodeMissingField, "Missing booking id", "")
	}
	unlock := s.locks.acquire(req.BookingID)
	defer unlock()

	booking, err := s.Stays.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, normalizeGatewayError(err, "booking fetch")
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, newWorkflowError(CodeInvalidState, "Booking is not cancellable",
			"Only confirmed bookings can be cancelled; current status is "+booking.Status+".")
	}

	var warnings []string
	if err := s.checkRefundDeadline(booking, req.ProceedDespiteWarnings, true, &warnings); err != nil {
		return nil, err
	}

	result, err := s.Stays.CancelBooking(ctx, req.BookingID)
	if err != nil {
		return nil, normalizeGatewayError(err, "cancellation")
	}
	// An upstream 200 is not proof of cancellation: require the cancelled
	// status and a timestamp.
	if result.Status != models.BookingStatusCancelled || result.CancelledAt == nil {
		return nil, newWorkflowError(CodeCancelFailed, "Cancellation not confirmed by upstream",
			"The marketplace did not report the booking as cancelled.")
	}
	s.Logger.Info("stay booking cancelled",
		zap.String("booking", req.BookingID),
		zap.Time("cancelled_at", *result.CancelledAt))

	outcome := &CancellationOutcome{
		Status:      "success",
		BookingID:   req.BookingID,
		CancelledAt: result.CancelledAt,
		Warnings:    warnings,
	}
	s.refundBooking(ctx, booking, req.RefundAmount, outcome)
	return outcome, nil
}

// refundBooking locates the charge backing a booking and refunds it, clamped
// to the original amount. All failures here are soft: the outcome carries
// refund_processed=false and the detail.
func (s *DefaultBookingService) refundBooking(ctx context.Context, booking *models.Booking, requestedAmount string, outcome *CancellationOutcome) {
	chargeRef, originalAmount := s.lookupChargeReference(ctx, booking)
	if chargeRef == "" {
		s.Logger.Warn("no payment record for booking, skipping refund",
			zap.String("booking", booking.ID))
		outcome.RefundProcessed = false
		outcome.Warnings = append(outcome.Warnings, "No payment record found for this booking; refund skipped.")
		return
	}

	refundAmount := clampRefund(requestedAmount, originalAmount)
	result, err := s.Processor.Refund(ctx, chargeRef, refundAmount, "requested_by_customer")
	if err != nil {
		s.Logger.Error("refund failed",
			zap.String("booking", booking.ID),
			zap.String("charge", chargeRef),
			zap.Error(err))
		outcome.RefundProcessed = false
		outcome.RefundError = err.Error()
		return
	}
	if result.AlreadyRefunded {
		outcome.RefundProcessed = true
		outcome.Warnings = append(outcome.Warnings, "The charge backing this booking was already refunded.")
		// The charge is known settled either way; reconcile the ledger row so
		// it does not read as an outstanding refund target.
		if err := s.Ledger.MarkRefunded(ctx, booking.ID, result.RefundID); err != nil && !errors.Is(err, ledgerRepo.ErrNotFound) {
			s.Logger.Warn("failed to mark ledger entry refunded",
				zap.String("booking", booking.ID), zap.Error(err))
		}
		return
	}

	outcome.RefundProcessed = true
	outcome.RefundAmount = refundAmount
	outcome.RefundID = result.RefundID
	if err := s.Ledger.MarkRefunded(ctx, booking.ID, result.RefundID); err != nil && !errors.Is(err, ledgerRepo.ErrNotFound) {
		s.Logger.Warn("failed to mark ledger entry refunded",
			zap.String("booking", booking.ID), zap.Error(err))
	}
	s.Logger.Info("refund processed",
		zap.String("booking", booking.ID),
		zap.String("refund", result.RefundID),
		zap.String("amount", refundAmount))
}

// lookupChargeReference finds the charge that funded a booking: the local
// ledger first, the metadata mirrored upstream as fallback.
func (s *DefaultBookingService) lookupChargeReference(ctx context.Context, booking *models.Booking) (chargeRef, amount string) {
	record, err := s.Ledger.Lookup(ctx, booking.ID)
	if err == nil {
		return record.ChargeReference, record.Amount
	}
	if !errors.Is(err, ledgerRepo.ErrNotFound) {
		s.Logger.Warn("ledger lookup failed, falling back to booking metadata",
			zap.String("booking", booking.ID), zap.Error(err))
	}
	if ref, ok := booking.Metadata[models.MetadataKeyChargeRef]; ok && ref != "" {
		return ref, booking.TotalAmount
	}
	return "", ""
}

// clampRefund bounds the refund request to the original charge; an empty
// request means a full refund.
func clampRefund(requested, original string) string {
	if requested == "" {
		return original
	}
	requestedMinor, err := models.ParseAmount(requested)
	if err != nil {
		return original
	}
	originalMinor, err := models.ParseAmount(original)
	if err != nil {
		return requested
	}
	if requestedMinor > originalMinor {
		return original
	}
	return requested
}
