package routes

import (
	"net/http"

	"tripdesk/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterStayRoutes registers the accommodation endpoints.
func RegisterStayRoutes(r *gin.Engine, h *handlers.BookingHandler) {
	api := r.Group("/api/stays")
	{
		api.POST("/search", h.SearchStaysHandler)
		api.POST("/bookings", h.BookStayHandler)
		api.PATCH("/bookings/:id", h.UpdateStayHandler)
		api.POST("/bookings/:id/cancel", h.CancelStayHandler)
		api.POST("/bookings/:id/extend", h.ExtendStayHandler)
	}
}

// RegisterFlightRoutes registers the flight endpoints.
func RegisterFlightRoutes(r *gin.Engine, h *handlers.BookingHandler) {
	api := r.Group("/api/flights")
	{
		api.POST("/search", h.SearchFlightsHandler)
		api.GET("/offers/:id/seat_maps", h.SeatMapsHandler)
		api.POST("/orders", h.BookFlightHandler)
		api.POST("/orders/:id/cancel", h.CancelFlightHandler)
		api.POST("/orders/:id/change_offers", h.ChangeFlightHandler)
	}
}

// RegisterHealthRoute registers the liveness endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
