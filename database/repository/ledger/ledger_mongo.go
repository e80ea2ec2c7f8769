package ledgerRepo

import (
	"context"
	"fmt"
	"time"

	"tripdesk/database"
	"tripdesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentLedger implements PaymentLedger using MongoDB.
type MongoPaymentLedger struct {
	coll *mongo.Collection
}

// NewMongoPaymentLedger creates the Mongo-backed ledger.
func NewMongoPaymentLedger() PaymentLedger {
	coll := database.MongoClient.Database("tripdesk").Collection("payment_records")
	repo := &MongoPaymentLedger{coll: coll}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create ledger indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPaymentLedger) ensureIndexes() error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Record inserts a new payment record. The unique index on booking_id
// enforces the one-record-per-funded-booking invariant.
func (r *MongoPaymentLedger) Record(ctx context.Context, record *models.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	record.CreatedAt = time.Now()
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to record payment for booking %s: %w", record.BookingID, err)
	}
	return nil
}

// Lookup fetches the payment record backing a booking.
func (r *MongoPaymentLedger) Lookup(ctx context.Context, bookingID string) (*models.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record models.PaymentRecord
	err := r.coll.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment record for booking %s: %w", bookingID, err)
	}
	return &record, nil
}

// MarkRefunded stamps the record once a refund has settled.
func (r *MongoPaymentLedger) MarkRefunded(ctx context.Context, bookingID, refundID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{"$set": bson.M{"refund_id": refundID, "refunded_at": now}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"booking_id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark payment record refunded for booking %s: %w", bookingID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
