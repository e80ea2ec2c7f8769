package models

// PaymentRequestArtifact asks the caller to render a payment form and call
// again with payment details. Shape matches the UI contract:
// {ui_type: "paymentForm", data: {...}, metadata: {...}}.
type PaymentRequestArtifact struct {
	UIType   string                 `json:"ui_type"`
	Data     PaymentFormData        `json:"data"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentFormData describes the form itself.
type PaymentFormData struct {
	Title    string             `json:"title"`
	Amount   string             `json:"amount"`
	Currency string             `json:"currency"`
	Fields   []PaymentFormField `json:"fields"`
}

// PaymentFormField is one input of the payment form.
type PaymentFormField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// NewPaymentRequestArtifact builds the standard card payment form for the
// given charge amount.
func NewPaymentRequestArtifact(amount, currency string, metadata map[string]interface{}) *PaymentRequestArtifact {
	return &PaymentRequestArtifact{
		UIType: "paymentForm",
		Data: PaymentFormData{
			Title:    "Complete Payment",
			Amount:   amount,
			Currency: currency,
			Fields: []PaymentFormField{
				{Name: "cardNumber", Label: "Card Number", Type: "text", Required: true},
				{Name: "expiryDate", Label: "Expiry Date", Type: "text", Required: true},
				{Name: "cvc", Label: "CVC", Type: "text", Required: true},
				{Name: "name", Label: "Cardholder Name", Type: "text", Required: true},
			},
		},
		Metadata: metadata,
	}
}

// ConfirmationPreview is the no-side-effect answer to a multi-step workflow
// call made without customer confirmation: a human-readable summary plus the
// candidate rates and a pending token the confirming call can reference
// instead of resending every parameter.
type ConfirmationPreview struct {
	Message      string               `json:"message"`
	Rates        []Rate               `json:"rates,omitempty"`
	CostChange   *ExtensionCostChange `json:"cost_change,omitempty"`
	PendingToken string               `json:"pending_token,omitempty"`
}

// ExtensionCostChange compares an existing booking's cost to a prospective
// replacement. Ephemeral: computed within one extend call, returned for
// display, never persisted beyond the pending token's TTL.
type ExtensionCostChange struct {
	OriginalAmount   string `json:"original_amount"`
	OriginalNights   int    `json:"original_nights"`
	OriginalPerNight string `json:"original_per_night"`
	NewAmount        string `json:"new_amount"`
	NewNights        int    `json:"new_nights"`
	NewPerNight      string `json:"new_per_night"`
	Currency         string `json:"currency"`
	RateID           string `json:"rate_id"`
}
