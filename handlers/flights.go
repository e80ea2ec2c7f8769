package handlers

import (
	"errors"
	"io"
	"net/http"

	"tripdesk/marketplace"
	"tripdesk/models"
	"tripdesk/services/booking"

	"github.com/gin-gonic/gin"
)

// SearchFlightsHandler lists flight offers for the requested slices.
func (h *BookingHandler) SearchFlightsHandler(c *gin.Context) {
	var input struct {
		Slices     []models.FlightSlice `json:"slices" binding:"required"`
		Passengers []models.Passenger   `json:"passengers"`
		CabinClass string               `json:"cabin_class"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if len(input.Passengers) == 0 {
		input.Passengers = []models.Passenger{{}}
	}

	offers, err := h.Service.SearchFlights(c.Request.Context(), marketplace.FlightSearchParams{
		Slices:     input.Slices,
		Passengers: input.Passengers,
		CabinClass: input.CabinClass,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// SeatMapsHandler lists the seat maps published for an offer.
func (h *BookingHandler) SeatMapsHandler(c *gin.Context) {
	maps, err := h.Service.SeatMaps(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seat_maps": maps})
}

// BookFlightHandler books a flight offer, gating on payment like stays.
func (h *BookingHandler) BookFlightHandler(c *gin.Context) {
	var req booking.BookFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	outcome, err := h.Service.BookFlight(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// CancelFlightHandler cancels an order through the two-phase upstream flow.
func (h *BookingHandler) CancelFlightHandler(c *gin.Context) {
	// The request body is optional: a bare cancel uses the defaults.
	var req booking.CancelFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.OrderID = c.Param("id")

	outcome, err := h.Service.CancelFlight(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ChangeFlightHandler requests change offers for slices of an existing order.
func (h *BookingHandler) ChangeFlightHandler(c *gin.Context) {
	var req booking.ChangeFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.OrderID = c.Param("id")

	offers, err := h.Service.ChangeFlightOffers(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"change_offers": offers})
}
