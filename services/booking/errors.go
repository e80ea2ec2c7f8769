package booking

import (
	"errors"
	"fmt"

	"tripdesk/marketplace"
)

// Workflow error codes. Business-rule violations are terminal: they are never
// retried and surface with a human-readable title and detail.
const (
	CodeInvalidState   = "invalid_state"
	CodeInvalidDates   = "invalid_dates"
	CodeRateExpired    = "rate_expired"
	CodeNoAvailability = "no_availability"
	CodeNoSuitableRate = "no_suitable_rate"
	CodeMissingField   = "missing_field"
	CodeUnavailable    = "upstream_unavailable"
	CodeCancelFailed   = "cancellation_failed"
)

// WorkflowError is a terminal business-rule failure.
type WorkflowError struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

func (e *WorkflowError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Title, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Title)
}

func newWorkflowError(code, title, detail string) *WorkflowError {
	return &WorkflowError{Code: code, Title: title, Detail: detail}
}

// ConfirmationRequired is not a failure: it pauses a workflow awaiting an
// explicit user decision. Callers must render a yes/no prompt, not an error
// banner, and reissue the call with the proceed flag set.
type ConfirmationRequired struct {
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	PendingToken string `json:"pending_token,omitempty"`
}

func (e *ConfirmationRequired) Error() string {
	return fmt.Sprintf("confirmation required (%s): %s", e.Reason, e.Message)
}

// IsConfirmationRequired reports whether err is the confirmation interrupt.
func IsConfirmationRequired(err error) (*ConfirmationRequired, bool) {
	var c *ConfirmationRequired
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// normalizeGatewayError folds a marketplace APIError into the workflow
// taxonomy. Nothing propagates to callers as a raw network exception.
func normalizeGatewayError(err error, context string) error {
	var apiErr *marketplace.APIError
	if !errors.As(err, &apiErr) {
		return newWorkflowError(CodeUnavailable, context+" failed", err.Error())
	}
	switch {
	case apiErr.Transient():
		return newWorkflowError(CodeUnavailable, context+" unavailable", apiErr.Detail)
	case apiErr.RateExpired():
		return newWorkflowError(CodeRateExpired, "This rate is no longer available", "Please search again for fresh rates.")
	default:
		return newWorkflowError("upstream_error", apiErr.Title, apiErr.Detail)
	}
}
