package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageStatsRepository struct {
	db *storage.Postgres
}

func NewUsageStatsRepository(db *storage.Postgres) *UsageStatsRepository {
	return &UsageStatsRepository{db: db}
}

// IncrementDaily upserts the per-day counter for a key, adding one request.
func (r *UsageStatsRepository) IncrementDaily(ctx context.Context, apiKeyID uuid.UUID, date string) error {
	stat := models.UsageStat{
		APIKeyID:      apiKeyID,
		Date:          date,
		RequestsCount: 1,
	}

	return r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "api_key_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"requests_count": gorm.Expr("widget_usage_stats.requests_count + 1"),
				"updated_at":     gorm.Expr("NOW()"),
			}),
		}).
		Create(&stat).Error
}

// FindByAPIKey returns the daily rows for a key between two dates inclusive.
func (r *UsageStatsRepository) FindByAPIKey(ctx context.Context, apiKeyID uuid.UUID, from, to string) ([]models.UsageStat, error) {
	var stats []models.UsageStat
	err := r.db.DB.WithContext(ctx).
		Where("api_key_id = ? AND date BETWEEN ? AND ?", apiKeyID, from, to).
		Order("date ASC").
		Find(&stats).Error

	return stats, err
}

func (r *UsageStatsRepository) TotalRequests(ctx context.Context, apiKeyID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageStat{}).
		Where("api_key_id = ?", apiKeyID).
		Select("COALESCE(SUM(requests_count), 0)").
		Scan(&total).Error

	return total, err
}
