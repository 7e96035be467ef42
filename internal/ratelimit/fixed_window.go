package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/storage"
	"go.uber.org/zap"
)

// Counter entries outlive their window by a minute to tolerate clock skew
// around the window boundary.
const counterTTL = 120 * time.Second

// FixedWindowLimiter counts requests per key in one-minute windows backed by
// the shared KV store. The check and the increment are two round trips, so
// concurrent requests can push a key slightly past its limit; quota here is
// a throttle, not an invoice.
type FixedWindowLimiter struct {
	kv storage.KV

	// now is swapped out in tests to cross window boundaries.
	now func() time.Time
}

func NewFixedWindow(kv storage.KV) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		kv:  kv,
		now: time.Now,
	}
}

// Allow reports whether the key may make another request this minute. Any
// store failure allows the request: keeping widgets rendering matters more
// than exact quota enforcement.
func (f *FixedWindowLimiter) Allow(ctx context.Context, key string, limit int) bool {
	if f.kv == nil {
		return true
	}

	window := f.now().Unix() / 60
	counterKey := fmt.Sprintf("rate:%s:%d", key, window)

	count := 0
	val, err := f.kv.Get(ctx, counterKey)
	if err == nil {
		count, _ = strconv.Atoi(val)
	} else if err != storage.ErrNotFound {
		logger.Warn("rate counter read failed", zap.String("key", key), zap.Error(err))
		return true
	}

	if count >= limit {
		return false
	}

	if err := f.kv.Set(ctx, counterKey, strconv.Itoa(count+1), counterTTL); err != nil {
		logger.Warn("rate counter write failed", zap.String("key", key), zap.Error(err))
	}

	return true
}
