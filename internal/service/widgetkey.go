package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/repository"
	"github.com/reviewflow/reviews-api/internal/storage"
	"gorm.io/datatypes"
)

// WidgetKeyService issues and manages widget API keys. Keys carry their tier
// in the prefix ("grw_pro_...") so resolution degrades gracefully when the
// database is unreachable.
type WidgetKeyService struct {
	repository *repository.WidgetKeyRepository
	kv         storage.KV
	cfg        *config.Config
}

func NewWidgetKeyService(repo *repository.WidgetKeyRepository, kv storage.KV, cfg *config.Config) *WidgetKeyService {
	return &WidgetKeyService{
		repository: repo,
		kv:         kv,
		cfg:        cfg,
	}
}

// Create issues a new key for a tier, pre-filling the policy columns from
// the tier table. Returns the stored record; the raw key is its APIKey field.
func (s *WidgetKeyService) Create(ctx context.Context, name, createdBy, tierName string, allowedDomains []string) (*models.WidgetAPIKey, error) {
	tierName = strings.ToUpper(tierName)
	tierConfig := s.cfg.FindTier(tierName)
	if tierConfig == nil {
		return nil, fmt.Errorf("unknown tier: %s", tierName)
	}

	suffix := make([]byte, 16)
	if _, err := rand.Read(suffix); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	key := fmt.Sprintf("grw_%s_%s", strings.ToLower(tierName), hex.EncodeToString(suffix))

	if len(allowedDomains) == 0 {
		allowedDomains = []string{"*"}
	}
	domainsJSON, err := json.Marshal(allowedDomains)
	if err != nil {
		return nil, err
	}

	record := models.WidgetAPIKey{
		APIKey:           key,
		Name:             name,
		CreatedBy:        createdBy,
		SubscriptionTier: tierName,
		RateLimit:        tierConfig.RequestsPerMinute,
		CacheDuration:    tierConfig.CacheDuration,
		MaxReviews:       tierConfig.MaxReviews,
		IsActive:         true,
		AllowedDomains:   datatypes.JSON(domainsJSON),
	}

	if err := s.repository.Create(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to create widget key: %w", err)
	}

	return &record, nil
}

func (s *WidgetKeyService) Get(ctx context.Context, id string) (*models.WidgetAPIKey, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *WidgetKeyService) List(ctx context.Context) ([]models.WidgetAPIKey, error) {
	return s.repository.List(ctx)
}

// Update applies the given columns and drops the cached policy so the new
// values take effect within one request rather than one cache TTL.
func (s *WidgetKeyService) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if err := s.repository.Update(ctx, id, updates); err != nil {
		return err
	}

	s.invalidatePolicyCache(ctx, id)
	return nil
}

func (s *WidgetKeyService) Delete(ctx context.Context, id string) error {
	s.invalidatePolicyCache(ctx, id)
	return s.repository.Delete(ctx, id)
}

func (s *WidgetKeyService) invalidatePolicyCache(ctx context.Context, id string) {
	if s.kv == nil {
		return
	}

	record, err := s.repository.FindByID(ctx, id)
	if err != nil || record == nil {
		return
	}

	_ = s.kv.Delete(ctx, "tier:"+record.APIKey)
}

// ValidTier reports whether the name is one of the configured tiers.
func (s *WidgetKeyService) ValidTier(name string) bool {
	return s.cfg.FindTier(strings.ToUpper(name)) != nil
}
