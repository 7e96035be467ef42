package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/models"
	"github.com/reviewflow/reviews-api/internal/storage"
	"go.uber.org/zap"
)

// ReviewCache stores the last fetched payload per (place, key) pair.
// Freshness is judged by the caller: the same entry can be fresh for a FREE
// widget and stale for a PREMIUM one.
type ReviewCache struct {
	kv storage.KV
}

func NewReviewCache(kv storage.KV) *ReviewCache {
	return &ReviewCache{kv: kv}
}

// Anonymous callers share one cache line per place.
func cacheKey(placeID, apiKey string) string {
	if apiKey == "" {
		apiKey = "default"
	}
	return fmt.Sprintf("reviews:%s:%s", placeID, apiKey)
}

// Get returns the stored payload or nil on a miss. Store errors and corrupt
// entries count as misses.
func (c *ReviewCache) Get(ctx context.Context, placeID, apiKey string) *models.PlaceReviews {
	if c.kv == nil {
		return nil
	}

	val, err := c.kv.Get(ctx, cacheKey(placeID, apiKey))
	if err != nil {
		if err != storage.ErrNotFound {
			logger.Warn("review cache read failed", zap.String("place_id", placeID), zap.Error(err))
		}
		return nil
	}

	var entry models.PlaceReviews
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		logger.Warn("review cache entry corrupt", zap.String("place_id", placeID), zap.Error(err))
		return nil
	}

	return &entry
}

// Put overwrites the entry unconditionally. Write failures are logged and
// swallowed; by the time a write happens the response already succeeded.
func (c *ReviewCache) Put(ctx context.Context, placeID, apiKey string, entry *models.PlaceReviews) {
	if c.kv == nil || entry == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		logger.Warn("review cache marshal failed", zap.String("place_id", placeID), zap.Error(err))
		return
	}

	if err := c.kv.Set(ctx, cacheKey(placeID, apiKey), string(data), 0); err != nil {
		logger.Warn("review cache write failed", zap.String("place_id", placeID), zap.Error(err))
	}
}
