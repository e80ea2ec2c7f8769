package ledgerRepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tripdesk/models"
)

// MemoryPaymentLedger is an in-process PaymentLedger used in tests and when
// no Mongo instance is configured.
type MemoryPaymentLedger struct {
	mu      sync.RWMutex
	records map[string]*models.PaymentRecord
}

// NewMemoryPaymentLedger creates an empty in-memory ledger.
func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{records: make(map[string]*models.PaymentRecord)}
}

func (r *MemoryPaymentLedger) Record(ctx context.Context, record *models.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.BookingID]; exists {
		return fmt.Errorf("payment record already exists for booking %s", record.BookingID)
	}
	rec := *record
	rec.CreatedAt = time.Now()
	r.records[record.BookingID] = &rec
	return nil
}

func (r *MemoryPaymentLedger) Lookup(ctx context.Context, bookingID string) (*models.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := *record
	return &rec, nil
}

func (r *MemoryPaymentLedger) MarkRefunded(ctx context.Context, bookingID, refundID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[bookingID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	record.RefundID = refundID
	record.RefundedAt = &now
	return nil
}
