package tier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
	"go.uber.org/zap"
)

// How long a resolved policy stays in KV before the database is consulted
// again. Bounds database load from widget traffic.
const policyCacheTTL = 5 * time.Minute

// KeyLookup is the slice of the widget key repository the resolver needs.
type KeyLookup interface {
	FindByKey(ctx context.Context, apiKey string) (*models.WidgetAPIKey, error)
}

// UsageRecorder receives a non-blocking usage increment whenever a key is
// resolved from the database.
type UsageRecorder interface {
	RecordUsage(apiKeyID uuid.UUID)
}

// Resolver maps a widget API key to its subscription policy. Resolution
// never fails outward: every path degrades to a usable policy.
type Resolver struct {
	kv    storage.KV
	keys  KeyLookup
	usage UsageRecorder
	table map[string]config.TierConfig
}

// NewResolver builds a resolver over the given KV cache and key store. keys
// and usage may be nil when the system of record is not configured; the
// resolver then runs on key-prefix fallback alone.
func NewResolver(kv storage.KV, keys KeyLookup, usage UsageRecorder, tiers []config.TierConfig) *Resolver {
	table := make(map[string]config.TierConfig, len(tiers))
	for _, t := range tiers {
		table[t.Name] = t
	}

	return &Resolver{
		kv:    kv,
		keys:  keys,
		usage: usage,
		table: table,
	}
}

// Resolve returns the policy for a widget API key. Anonymous callers get
// FREE with no I/O. Known keys come from the short-lived KV cache, then the
// database; if neither answers, the tier is derived from the key prefix.
func (r *Resolver) Resolve(ctx context.Context, apiKey string) Policy {
	if apiKey == "" {
		return r.defaultPolicy(Free)
	}

	cacheKey := "tier:" + apiKey

	if r.kv != nil {
		if cached, err := r.kv.Get(ctx, cacheKey); err == nil {
			var policy Policy
			if err := json.Unmarshal([]byte(cached), &policy); err == nil && policy.Tier != "" {
				return policy
			}
		} else if err != storage.ErrNotFound {
			logger.Warn("tier cache read failed", zap.Error(err))
		}
	}

	if r.keys != nil {
		record, err := r.keys.FindByKey(ctx, apiKey)
		if err != nil {
			logger.Warn("widget key lookup failed", zap.Error(err))
		} else if record != nil {
			policy := r.policyFromRecord(record)
			r.cachePolicy(ctx, cacheKey, policy)

			if r.usage != nil {
				r.usage.RecordUsage(record.ID)
			}

			return policy
		}
	}

	// Fallback: derive the tier from the key prefix and synthesize a policy
	// with no domain restriction.
	policy := r.defaultPolicy(TierFromKeyPrefix(apiKey))
	r.cachePolicy(ctx, cacheKey, policy)

	return policy
}

func (r *Resolver) policyFromRecord(record *models.WidgetAPIKey) Policy {
	defaults := r.defaultPolicy(record.SubscriptionTier)

	policy := Policy{
		Tier:              record.SubscriptionTier,
		RequestsPerMinute: record.RateLimit,
		CacheDuration:     record.CacheDuration,
		MaxReviews:        record.MaxReviews,
		IsActive:          record.IsActive,
		AllowedDomains:    parseDomains(record.AllowedDomains),
	}

	// Zero columns mean "use the tier default".
	if policy.RequestsPerMinute <= 0 {
		policy.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if policy.CacheDuration <= 0 {
		policy.CacheDuration = defaults.CacheDuration
	}
	if policy.MaxReviews <= 0 {
		policy.MaxReviews = defaults.MaxReviews
	}
	if len(policy.AllowedDomains) == 0 {
		policy.AllowedDomains = []string{"*"}
	}

	return policy
}

// defaultPolicy builds the static policy for a tier name. Unknown names
// collapse to FREE.
func (r *Resolver) defaultPolicy(name string) Policy {
	t, ok := r.table[name]
	if !ok {
		t, ok = r.table[Free]
		if !ok {
			// No table configured at all; hardcoded FREE floor.
			t = config.TierConfig{Name: Free, RequestsPerMinute: 10, CacheDuration: 86400, MaxReviews: 3}
		}
	}

	return Policy{
		Tier:              t.Name,
		RequestsPerMinute: t.RequestsPerMinute,
		CacheDuration:     t.CacheDuration,
		MaxReviews:        t.MaxReviews,
		IsActive:          true,
		AllowedDomains:    []string{"*"},
	}
}

func (r *Resolver) cachePolicy(ctx context.Context, cacheKey string, policy Policy) {
	if r.kv == nil {
		return
	}

	data, err := json.Marshal(policy)
	if err != nil {
		return
	}

	if err := r.kv.Set(ctx, cacheKey, string(data), policyCacheTTL); err != nil {
		logger.Warn("tier cache write failed", zap.Error(err))
	}
}

func parseDomains(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}

	var domains []string
	if err := json.Unmarshal(raw, &domains); err != nil {
		return nil
	}
	return domains
}
