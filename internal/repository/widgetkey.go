package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
	"gorm.io/gorm"
)

type WidgetKeyRepository struct {
	db *storage.Postgres
}

func NewWidgetKeyRepository(db *storage.Postgres) *WidgetKeyRepository {
	return &WidgetKeyRepository{db: db}
}

func (r *WidgetKeyRepository) Create(ctx context.Context, key *models.WidgetAPIKey) error {
	return r.db.DB.WithContext(ctx).Create(key).Error
}

// FindByKey looks up a widget key by its raw credential string. A missing
// record returns (nil, nil) so callers can distinguish absent from failure.
func (r *WidgetKeyRepository) FindByKey(ctx context.Context, apiKey string) (*models.WidgetAPIKey, error) {
	var key models.WidgetAPIKey
	err := r.db.DB.WithContext(ctx).
		Where("api_key = ?", apiKey).
		First(&key).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &key, err
}

func (r *WidgetKeyRepository) FindByID(ctx context.Context, id string) (*models.WidgetAPIKey, error) {
	var key models.WidgetAPIKey
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&key).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &key, err
}

func (r *WidgetKeyRepository) List(ctx context.Context) ([]models.WidgetAPIKey, error) {
	var keys []models.WidgetAPIKey
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&keys).Error

	return keys, err
}

func (r *WidgetKeyRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.WidgetAPIKey{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *WidgetKeyRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.WidgetAPIKey{}).
		Where("id = ?", id).
		Update("last_used_at", time.Now()).Error
}

func (r *WidgetKeyRepository) Delete(ctx context.Context, id string) error {
	return r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.WidgetAPIKey{}).Error
}

func (r *WidgetKeyRepository) CountByTier(ctx context.Context, tier string) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.WidgetAPIKey{}).
		Where("subscription_tier = ? AND is_active = ?", tier, true).
		Count(&count).Error

	return count, err
}
