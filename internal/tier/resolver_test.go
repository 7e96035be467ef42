package tier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
	"gorm.io/datatypes"
)

func testTiers() []config.TierConfig {
	return []config.TierConfig{
		{Name: "FREE", RequestsPerMinute: 10, CacheDuration: 86400, MaxReviews: 3},
		{Name: "BASIC", RequestsPerMinute: 30, CacheDuration: 43200, MaxReviews: 5},
		{Name: "PRO", RequestsPerMinute: 60, CacheDuration: 21600, MaxReviews: 7},
		{Name: "PREMIUM", RequestsPerMinute: 100, CacheDuration: 10800, MaxReviews: 10},
	}
}

type fakeLookup struct {
	record *models.WidgetAPIKey
	err    error
	calls  int
}

func (f *fakeLookup) FindByKey(ctx context.Context, apiKey string) (*models.WidgetAPIKey, error) {
	f.calls++
	return f.record, f.err
}

type fakeUsage struct {
	recorded []uuid.UUID
}

func (f *fakeUsage) RecordUsage(id uuid.UUID) {
	f.recorded = append(f.recorded, id)
}

func TestResolveAnonymousIsFree(t *testing.T) {
	kv := storage.NewMemoryStore()
	r := NewResolver(kv, nil, nil, testTiers())

	policy := r.Resolve(context.Background(), "")

	if policy.Tier != Free {
		t.Fatalf("expected FREE, got %s", policy.Tier)
	}
	if policy.MaxReviews != 3 {
		t.Errorf("expected maxReviews=3, got %d", policy.MaxReviews)
	}
	if policy.CacheDuration != 86400 {
		t.Errorf("expected cacheDuration=86400, got %d", policy.CacheDuration)
	}
	if !policy.IsActive {
		t.Error("anonymous policy should be active")
	}
	if kv.Len() != 0 {
		t.Error("anonymous resolution should not touch the cache")
	}
}

func TestResolvePrefixFallback(t *testing.T) {
	tests := []struct {
		key      string
		wantTier string
		wantMax  int
		wantRPM  int
	}{
		{"grw_premium_live1", "PREMIUM", 10, 100},
		{"grw_pro_live1", "PRO", 7, 60},
		{"grw_basic_live1", "BASIC", 5, 30},
		{"grw_unknown_live1", "FREE", 3, 10},
	}

	for _, tt := range tests {
		r := NewResolver(storage.NewMemoryStore(), nil, nil, testTiers())
		policy := r.Resolve(context.Background(), tt.key)

		if policy.Tier != tt.wantTier {
			t.Errorf("%s: tier = %s, want %s", tt.key, policy.Tier, tt.wantTier)
		}
		if policy.MaxReviews != tt.wantMax {
			t.Errorf("%s: maxReviews = %d, want %d", tt.key, policy.MaxReviews, tt.wantMax)
		}
		if policy.RequestsPerMinute != tt.wantRPM {
			t.Errorf("%s: rpm = %d, want %d", tt.key, policy.RequestsPerMinute, tt.wantRPM)
		}
		if !policy.Wildcard() {
			t.Errorf("%s: fallback policy should have wildcard domains", tt.key)
		}
	}
}

func TestResolveLookupErrorFallsBackToPrefix(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("connection refused")}
	r := NewResolver(storage.NewMemoryStore(), lookup, nil, testTiers())

	policy := r.Resolve(context.Background(), "grw_pro_abc")

	if policy.Tier != Pro {
		t.Fatalf("expected PRO fallback, got %s", policy.Tier)
	}
}

func TestResolveFromDatabase(t *testing.T) {
	domains, _ := json.Marshal([]string{"example.com"})
	record := &models.WidgetAPIKey{
		ID:               uuid.New(),
		APIKey:           "grw_basic_db",
		SubscriptionTier: "BASIC",
		RateLimit:        25,
		CacheDuration:    1000,
		MaxReviews:       4,
		IsActive:         true,
		AllowedDomains:   datatypes.JSON(domains),
	}

	kv := storage.NewMemoryStore()
	lookup := &fakeLookup{record: record}
	usage := &fakeUsage{}
	r := NewResolver(kv, lookup, usage, testTiers())

	policy := r.Resolve(context.Background(), "grw_basic_db")

	if policy.Tier != "BASIC" || policy.RequestsPerMinute != 25 || policy.MaxReviews != 4 {
		t.Fatalf("unexpected policy from record: %+v", policy)
	}
	if policy.Wildcard() {
		t.Error("record domains should not be wildcard")
	}
	if len(usage.recorded) != 1 || usage.recorded[0] != record.ID {
		t.Errorf("expected one usage increment for %s", record.ID)
	}

	// Second resolution must come from the cache, not the database.
	policy2 := r.Resolve(context.Background(), "grw_basic_db")
	if lookup.calls != 1 {
		t.Errorf("expected 1 lookup call, got %d", lookup.calls)
	}
	if policy2.Tier != policy.Tier {
		t.Errorf("cached policy mismatch: %s vs %s", policy2.Tier, policy.Tier)
	}
}

func TestResolveInactiveRecord(t *testing.T) {
	record := &models.WidgetAPIKey{
		ID:               uuid.New(),
		APIKey:           "grw_pro_revoked",
		SubscriptionTier: "PRO",
		IsActive:         false,
	}

	r := NewResolver(storage.NewMemoryStore(), &fakeLookup{record: record}, nil, testTiers())
	policy := r.Resolve(context.Background(), "grw_pro_revoked")

	if policy.IsActive {
		t.Error("revoked key must resolve to an inactive policy")
	}
}

func TestResolveZeroColumnsUseTierDefaults(t *testing.T) {
	record := &models.WidgetAPIKey{
		ID:               uuid.New(),
		APIKey:           "grw_premium_sparse",
		SubscriptionTier: "PREMIUM",
		IsActive:         true,
	}

	r := NewResolver(storage.NewMemoryStore(), &fakeLookup{record: record}, nil, testTiers())
	policy := r.Resolve(context.Background(), "grw_premium_sparse")

	if policy.RequestsPerMinute != 100 || policy.CacheDuration != 10800 || policy.MaxReviews != 10 {
		t.Fatalf("expected PREMIUM defaults, got %+v", policy)
	}
	if !policy.Wildcard() {
		t.Error("missing domains should default to wildcard")
	}
}
