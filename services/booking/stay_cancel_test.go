package booking

import (
	"context"
	"testing"
	"time"

	"tripdesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelStayRefundsOriginalCharge(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	seedOriginalCharge(t, env)

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.NoError(t, err)
	assert.Equal(t, "success", outcome.Status)
	require.NotNil(t, outcome.CancelledAt)
	assert.True(t, outcome.RefundProcessed)
	assert.Equal(t, "200.00", outcome.RefundAmount)
	assert.NotEmpty(t, outcome.RefundID)

	require.Len(t, env.proc.refunds, 1)
	assert.Equal(t, "pi_orig", env.proc.refunds[0].chargeRef)
	assert.Equal(t, "requested_by_customer", env.proc.refunds[0].reason)

	record, err := env.ledger.Lookup(context.Background(), "bok_1")
	require.NoError(t, err)
	assert.NotNil(t, record.RefundedAt)
	assert.Equal(t, outcome.RefundID, record.RefundID)
}

func TestCancelStayClampsRefundToOriginal(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	seedOriginalCharge(t, env)

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{
		BookingID:    "bok_1",
		RefundAmount: "500.00", // more than was ever charged
	})
	require.NoError(t, err)
	assert.True(t, outcome.RefundProcessed)
	assert.Equal(t, "200.00", outcome.RefundAmount)
	require.Len(t, env.proc.refunds, 1)
	assert.Equal(t, "200.00", env.proc.refunds[0].amount)
}

func TestCancelStayPartialRefundPassesThrough(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	seedOriginalCharge(t, env)

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{
		BookingID:    "bok_1",
		RefundAmount: "50.00",
	})
	require.NoError(t, err)
	assert.Equal(t, "50.00", outcome.RefundAmount)
}

func TestCancelStayRefundFailureIsSoft(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	seedOriginalCharge(t, env)
	env.proc.refundErr = assert.AnError

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.NoError(t, err, "the cancellation stands even when the refund leg fails")
	assert.Equal(t, "success", outcome.Status)
	assert.False(t, outcome.RefundProcessed)
	assert.NotEmpty(t, outcome.RefundError)
}

func TestCancelStayAlreadyRefunded(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	seedOriginalCharge(t, env)
	env.proc.alreadyRefunded = true

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.NoError(t, err)
	assert.True(t, outcome.RefundProcessed)
	require.NotEmpty(t, outcome.Warnings)
	assert.Contains(t, outcome.Warnings[len(outcome.Warnings)-1], "already refunded")

	// The charge is settled, so the ledger row must be reconciled too.
	record, err := env.ledger.Lookup(context.Background(), "bok_1")
	require.NoError(t, err)
	assert.NotNil(t, record.RefundedAt)
}

func TestCancelStayFallsBackToBookingMetadata(t *testing.T) {
	env := newTestEnv()
	booking := confirmedStayBooking()
	booking.Metadata = map[string]string{models.MetadataKeyChargeRef: "pi_meta"}
	env.stays.bookings["bok_1"] = booking
	// No ledger entry on purpose.

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.NoError(t, err)
	assert.True(t, outcome.RefundProcessed)
	require.Len(t, env.proc.refunds, 1)
	assert.Equal(t, "pi_meta", env.proc.refunds[0].chargeRef)
	assert.Equal(t, "200.00", env.proc.refunds[0].amount)
}

func TestCancelStaySkipsRefundWithoutPaymentRecord(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.NoError(t, err)
	assert.Equal(t, "success", outcome.Status)
	assert.False(t, outcome.RefundProcessed)
	assert.Equal(t, 0, env.log.count("payments.refund"))
}

func TestCancelStayPastDeadlineInterrupts(t *testing.T) {
	env := newTestEnv()
	booking := confirmedStayBooking()
	booking.Rate.CancellationTimeline[0].Before = fixedNow.Add(-time.Hour)
	env.stays.bookings["bok_1"] = booking
	seedOriginalCharge(t, env)

	_, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.Error(t, err)
	interrupt, ok := IsConfirmationRequired(err)
	require.True(t, ok)
	assert.Equal(t, "past_full_refund_deadline", interrupt.Reason)
	assert.Equal(t, 0, env.log.count("stays.cancel_booking"))

	outcome, err := env.svc.CancelStay(context.Background(), CancelStayRequest{
		BookingID:              "bok_1",
		ProceedDespiteWarnings: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "success", outcome.Status)
	assert.NotEmpty(t, outcome.Warnings)
}

func TestCancelStayNoFullRefundWindowInterrupts(t *testing.T) {
	env := newTestEnv()
	booking := confirmedStayBooking()
	// Partial refunds only.
	booking.Rate.CancellationTimeline = []models.TimelineEntry{
		{Before: fixedNow.Add(72 * time.Hour), RefundAmount: "100.00", Currency: "AUD"},
	}
	env.stays.bookings["bok_1"] = booking

	_, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.Error(t, err)
	interrupt, ok := IsConfirmationRequired(err)
	require.True(t, ok)
	assert.Equal(t, "no_full_refund_window", interrupt.Reason)
}

func TestCancelStayRequiresUpstreamConfirmation(t *testing.T) {
	env := newTestEnv()
	env.stays.bookings["bok_1"] = confirmedStayBooking()
	// A 200 without the cancelled status is not trusted.
	env.stays.cancelResult = &models.CancellationResult{
		BookingID: "bok_1",
		Status:    models.BookingStatusConfirmed,
	}

	_, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.Error(t, err)
	var wf *WorkflowError
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, CodeCancelFailed, wf.Code)
	assert.Equal(t, 0, env.log.count("payments.refund"))
}

func TestCancelStayRejectsNonConfirmedBooking(t *testing.T) {
	env := newTestEnv()
	booking := confirmedStayBooking()
	booking.Status = models.BookingStatusCancelled
	env.stays.bookings["bok_1"] = booking

	_, err := env.svc.CancelStay(context.Background(), CancelStayRequest{BookingID: "bok_1"})
	require.Error(t, err)
	var wf *WorkflowError
	require.ErrorAs(t, err, &wf)
	assert.Equal(t, CodeInvalidState, wf.Code)
}
