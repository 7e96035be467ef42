package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewflow/reviews-api/internal/places"
)

// Exposes operational state of the upstream provider client.
type SystemHandler struct {
	placesClient *places.Client
}

func NewSystemHandler(placesClient *places.Client) *SystemHandler {
	return &SystemHandler{placesClient: placesClient}
}

// Returns the circuit breaker state for the Places API
func (h *SystemHandler) BreakerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"upstream": "google-places",
		"state":    h.placesClient.BreakerState().String(),
	})
}

// Manually closes the circuit breaker
func (h *SystemHandler) ResetBreaker(c *gin.Context) {
	h.placesClient.ResetBreaker()

	c.JSON(http.StatusOK, gin.H{
		"message": "Circuit breaker reset successfully",
	})
}
