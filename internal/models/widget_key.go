package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Represents an issued widget API key and the subscription policy attached
// to it. The raw key is stored as-is: widget keys ship inside public embed
// snippets, so hashing them buys nothing, and the tier-prefix fallback needs
// the plain string.
type WidgetAPIKey struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	APIKey           string         `gorm:"uniqueIndex;not null" json:"api_key"`
	Name             string         `gorm:"not null" json:"name"`
	CreatedBy        string         `json:"created_by"`
	SubscriptionTier string         `gorm:"default:'FREE'" json:"subscription_tier"`
	RateLimit        int            `gorm:"not null" json:"rate_limit"`
	CacheDuration    int            `gorm:"not null" json:"cache_duration"`
	MaxReviews       int            `gorm:"not null" json:"max_reviews"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	AllowedDomains   datatypes.JSON `gorm:"type:jsonb" json:"allowed_domains"`
	CreatedAt        time.Time      `json:"created_at"`
	LastUsedAt       *time.Time     `json:"last_used_at,omitempty"`
}

func (k *WidgetAPIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

func (WidgetAPIKey) TableName() string {
	return "widget_api_keys"
}
