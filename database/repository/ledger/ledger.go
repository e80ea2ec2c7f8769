// Package ledgerRepo persists the reconciliation ledger: the mapping from a
// booking to the payment-processor artifact that funded it. Entries are
// written transactionally with the booking-commit step and read at
// cancellation time to locate the correct refund target.
package ledgerRepo

import (
	"context"
	"errors"

	"tripdesk/models"
)

// ErrNotFound is returned when no ledger entry exists for a booking.
var ErrNotFound = errors.New("payment record not found")

// PaymentLedger defines the ledger data access surface.
type PaymentLedger interface {
	Record(ctx context.Context, record *models.PaymentRecord) error
	Lookup(ctx context.Context, bookingID string) (*models.PaymentRecord, error)
	MarkRefunded(ctx context.Context, bookingID, refundID string) error
}
