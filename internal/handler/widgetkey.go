package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/reviewflow/reviews-api/internal/service"
	"gorm.io/datatypes"
)

type WidgetKeyHandler struct {
	service *service.WidgetKeyService
}

func NewWidgetKeyHandler(service *service.WidgetKeyService) *WidgetKeyHandler {
	return &WidgetKeyHandler{service: service}
}

func (h *WidgetKeyHandler) Create(c *gin.Context) {
	var req struct {
		Name           string   `json:"name" binding:"required"`
		CreatedBy      string   `json:"created_by"`
		Tier           string   `json:"tier" binding:"required"`
		AllowedDomains []string `json:"allowed_domains"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.service.ValidTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tier: " + req.Tier})
		return
	}

	ctx := c.Request.Context()
	record, err := h.service.Create(ctx, req.Name, req.CreatedBy, req.Tier, req.AllowedDomains)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":     record.APIKey,
		"id":      record.ID,
		"tier":    record.SubscriptionTier,
		"message": "Embed this key in the widget snippet",
	})
}

func (h *WidgetKeyHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	keys, err := h.service.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *WidgetKeyHandler) Get(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	key, err := h.service.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if key == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Widget key not found"})
		return
	}

	c.JSON(http.StatusOK, key)
}

func (h *WidgetKeyHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Tier           *string   `json:"tier"`
		IsActive       *bool     `json:"is_active"`
		AllowedDomains *[]string `json:"allowed_domains"`
		MaxReviews     *int      `json:"max_reviews"`
		RateLimit      *int      `json:"rate_limit"`
		CacheDuration  *int      `json:"cache_duration"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.Tier != nil {
		if !h.service.ValidTier(*req.Tier) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown tier: " + *req.Tier})
			return
		}
		updates["subscription_tier"] = *req.Tier
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.AllowedDomains != nil {
		domains, err := json.Marshal(*req.AllowedDomains)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid allowed_domains"})
			return
		}
		updates["allowed_domains"] = datatypes.JSON(domains)
	}
	if req.MaxReviews != nil {
		updates["max_reviews"] = *req.MaxReviews
	}
	if req.RateLimit != nil {
		updates["rate_limit"] = *req.RateLimit
	}
	if req.CacheDuration != nil {
		updates["cache_duration"] = *req.CacheDuration
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Update(ctx, id, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Widget key updated successfully"})
}

func (h *WidgetKeyHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	if err := h.service.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Widget key deleted successfully"})
}
