package handlers

import (
	"errors"
	"net/http"

	"tripdesk/services/booking"
	"tripdesk/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking workflows over HTTP.
type BookingHandler struct {
	Service booking.BookingService
}

// NewBookingHandler wires the workflow service into the HTTP layer.
func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// respondError maps workflow failures onto HTTP statuses. A confirmation
// interrupt is not a failure: it renders as a 409 prompt the client answers
// by reissuing the call with the proceed or confirmation flag set.
func respondError(c *gin.Context, err error) {
	if interrupt, ok := booking.IsConfirmationRequired(err); ok {
		c.JSON(http.StatusConflict, gin.H{
			"status":        "confirmation_required",
			"reason":        interrupt.Reason,
			"message":       interrupt.Message,
			"pending_token": interrupt.PendingToken,
		})
		return
	}

	var wf *booking.WorkflowError
	if errors.As(err, &wf) {
		utils.JSONError(c, statusForCode(wf.Code), wf.Code, wf.Title, wf.Detail)
		return
	}

	utils.JSONError(c, http.StatusInternalServerError, "internal_error", "Internal Server Error", err.Error())
}

func statusForCode(code string) int {
	switch code {
	case booking.CodeMissingField, booking.CodeInvalidDates:
		return http.StatusBadRequest
	case booking.CodeNoAvailability, booking.CodeNoSuitableRate:
		return http.StatusNotFound
	case booking.CodeInvalidState, booking.CodeRateExpired, booking.CodeCancelFailed:
		return http.StatusConflict
	case booking.CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
