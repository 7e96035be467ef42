package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/repository"
)

type StatsHandler struct {
	usage *repository.UsageStatsRepository
}

func NewStatsHandler(usage *repository.UsageStatsRepository) *StatsHandler {
	return &StatsHandler{usage: usage}
}

// Handles GET /admin/keys/:id/stats?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StatsHandler) KeyUsage(c *gin.Context) {
	apiKeyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid widget key ID"})
		return
	}

	to := c.DefaultQuery("to", time.Now().UTC().Format("2006-01-02"))
	from := c.DefaultQuery("from", time.Now().UTC().AddDate(0, 0, -30).Format("2006-01-02"))

	ctx := c.Request.Context()
	stats, err := h.usage.FindByAPIKey(ctx, apiKeyID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	total, err := h.usage.TotalRequests(ctx, apiKeyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"api_key_id":     apiKeyID,
		"from":           from,
		"to":             to,
		"total_requests": total,
		"daily":          stats,
	})
}
