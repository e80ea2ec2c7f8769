package payments

import (
	"context"
	"errors"
	"fmt"

	"tripdesk/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/token"
	"go.uber.org/zap"
)

// Processor is the card-payment surface used by the booking workflows:
// tokenize raw card details, charge a tokenized card, refund a prior charge.
type Processor interface {
	Tokenize(ctx context.Context, card models.CardDetails) (string, error)
	Charge(ctx context.Context, amount, currency, tokenID string) (string, error)
	Refund(ctx context.Context, chargeReference, amount, reason string) (*models.RefundResult, error)
}

// StripeProcessor implements Processor against Stripe. Charges are created as
// confirmed payment intents; the intent id is the charge reference recorded
// in the reconciliation ledger.
type StripeProcessor struct {
	returnURL string
	logger    *zap.Logger
}

// NewStripeProcessor builds the Stripe-backed processor. stripe.Key must be
// set by the caller at startup.
func NewStripeProcessor(returnURL string, logger *zap.Logger) *StripeProcessor {
	return &StripeProcessor{returnURL: returnURL, logger: logger}
}

// Tokenize exchanges raw card details for a single-use token. Card data never
// goes further than this call.
func (p *StripeProcessor) Tokenize(ctx context.Context, card models.CardDetails) (string, error) {
	params := &stripe.TokenParams{
		Card: &stripe.CardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.String(card.ExpiryMonth),
			ExpYear:  stripe.String(card.ExpiryYear),
			CVC:      stripe.String(card.CVC),
			Name:     stripe.String(card.CardholderName),
		},
	}
	params.Context = ctx
	tok, err := token.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe token creation failed: %w", err)
	}
	p.logger.Info("Stripe token created", zap.String("token", tok.ID))
	return tok.ID, nil
}

// Charge creates and confirms a payment intent for the given decimal amount.
// The amount arrives in major units and is converted to the processor's
// minor-unit integer representation exactly once, here.
func (p *StripeProcessor) Charge(ctx context.Context, amount, currency, tokenID string) (string, error) {
	minor, err := models.ParseAmount(amount)
	if err != nil {
		return "", fmt.Errorf("invalid charge amount: %w", err)
	}

	pmParams := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{Token: stripe.String(tokenID)},
	}
	pmParams.Context = ctx
	pm, err := paymentmethod.New(pmParams)
	if err != nil {
		return "", fmt.Errorf("stripe payment method creation failed: %w", err)
	}

	intentParams := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minor),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(pm.ID),
		Confirm:       stripe.Bool(true),
		ReturnURL:     stripe.String(p.returnURL),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intentParams.Context = ctx
	intent, err := paymentintent.New(intentParams)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent creation failed: %w", err)
	}
	p.logger.Info("Stripe payment intent created",
		zap.String("intent", intent.ID),
		zap.Int64("amount_minor", minor),
		zap.String("currency", currency))
	return intent.ID, nil
}

// Refund returns money against a prior payment intent. An empty amount
// refunds in full. A reference Stripe no longer recognizes as refundable is
// reported as AlreadyRefunded rather than a hard failure; the caller decides
// how loudly to complain.
func (p *StripeProcessor) Refund(ctx context.Context, chargeReference, amount, reason string) (*models.RefundResult, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(chargeReference),
	}
	if amount != "" {
		minor, err := models.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid refund amount: %w", err)
		}
		params.Amount = stripe.Int64(minor)
	}
	if reason != "" {
		params.Reason = stripe.String(reason)
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeChargeAlreadyRefunded {
			p.logger.Warn("refund target already refunded", zap.String("intent", chargeReference))
			return &models.RefundResult{AlreadyRefunded: true, Status: "already_refunded"}, nil
		}
		return nil, fmt.Errorf("stripe refund failed: %w", err)
	}

	result := &models.RefundResult{
		RefundID: ref.ID,
		Status:   string(ref.Status),
		Amount:   models.FormatAmount(ref.Amount),
		Currency: string(ref.Currency),
	}
	p.logger.Info("Stripe refund created",
		zap.String("refund", ref.ID),
		zap.String("intent", chargeReference),
		zap.Int64("amount_minor", ref.Amount))
	return result, nil
}
