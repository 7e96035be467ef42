package models

import (
	"time"

	"github.com/google/uuid"
)

// Daily request counter per widget API key, upserted by the analytics worker.
type UsageStat struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	APIKeyID      uuid.UUID `gorm:"type:uuid;index:idx_usage_key_date,unique" json:"api_key_id"`
	Date          string    `gorm:"index:idx_usage_key_date,unique" json:"date"` // YYYY-MM-DD
	RequestsCount int64     `gorm:"not null;default:0" json:"requests_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (UsageStat) TableName() string {
	return "widget_usage_stats"
}
