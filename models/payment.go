package models

import "time"

// CardDetails is raw card input supplied by the caller. It is tokenized
// immediately and never persisted.
type CardDetails struct {
	Number         string `json:"card_number"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
	CVC            string `json:"cvc"`
	CardholderName string `json:"cardholder_name"`
}

// PaymentMethod is the optional payment input on a workflow call: either raw
// card details to tokenize and charge, or "balance" to settle upstream.
type PaymentMethod struct {
	Type string       `json:"type,omitempty"` // "card" (default) or "balance"
	Card *CardDetails `json:"card,omitempty"`
}

// IsBalance reports whether this method settles from the account balance
// rather than a card charge.
func (p *PaymentMethod) IsBalance() bool {
	return p != nil && p.Type == PaymentMethodBalance
}

// PaymentRecord is one reconciliation-ledger entry: the payment-processor
// artifact that funded a booking. Exactly one record exists per funded
// booking; it is created at booking-commit time, read at cancellation time,
// never mutated, and marked refunded once a refund succeeds.
type PaymentRecord struct {
	BookingID       string     `bson:"booking_id" json:"booking_id"`
	ChargeReference string     `bson:"charge_reference" json:"charge_reference"`
	Amount          string     `bson:"amount" json:"amount"`
	Currency        string     `bson:"currency" json:"currency"`
	RefundID        string     `bson:"refund_id,omitempty" json:"refund_id,omitempty"`
	RefundedAt      *time.Time `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
}

// RefundResult is the payment processor's answer to a refund request.
type RefundResult struct {
	RefundID        string `json:"refund_id,omitempty"`
	Status          string `json:"status,omitempty"`
	Amount          string `json:"amount,omitempty"`
	Currency        string `json:"currency,omitempty"`
	AlreadyRefunded bool   `json:"already_refunded,omitempty"`
}
