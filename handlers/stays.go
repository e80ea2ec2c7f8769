package handlers

import (
	"errors"
	"io"
	"net/http"

	"tripdesk/marketplace"
	"tripdesk/services/booking"

	"github.com/gin-gonic/gin"
)

// SearchStaysHandler lists accommodation offers for a location and dates.
func (h *BookingHandler) SearchStaysHandler(c *gin.Context) {
	var input struct {
		Location     string `json:"location" binding:"required"`
		CheckInDate  string `json:"check_in_date" binding:"required"`
		CheckOutDate string `json:"check_out_date" binding:"required"`
		Adults       int    `json:"adults"`
		Children     int    `json:"children"`
		Rooms        int    `json:"rooms"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.Adults == 0 {
		input.Adults = 1
	}

	offers, err := h.Service.SearchStays(c.Request.Context(), marketplace.StaySearchParams{
		Location:     input.Location,
		CheckInDate:  input.CheckInDate,
		CheckOutDate: input.CheckOutDate,
		Adults:       input.Adults,
		Children:     input.Children,
		Rooms:        input.Rooms,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// BookStayHandler books a rate. Without payment details it answers with the
// payment form artifact instead of committing anything.
func (h *BookingHandler) BookStayHandler(c *gin.Context) {
	var req booking.BookStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	outcome, err := h.Service.BookStay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// CancelStayHandler cancels a booking and refunds its charge.
func (h *BookingHandler) CancelStayHandler(c *gin.Context) {
	// The request body is optional: a bare cancel uses the defaults.
	var req booking.CancelStayRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.BookingID = c.Param("id")

	outcome, err := h.Service.CancelStay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ExtendStayHandler runs the extend-stay workflow. The first call previews
// the cost change; the confirming call repeats it with customer_confirmation
// (or the pending token) plus payment details.
func (h *BookingHandler) ExtendStayHandler(c *gin.Context) {
	var req booking.ExtendStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if id := c.Param("id"); id != "" {
		req.BookingID = id
	}

	outcome, err := h.Service.ExtendStay(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// UpdateStayHandler patches mutable booking fields.
func (h *BookingHandler) UpdateStayHandler(c *gin.Context) {
	var params marketplace.UpdateStayBookingParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	updated, err := h.Service.UpdateStay(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": updated})
}
