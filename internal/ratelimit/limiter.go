package ratelimit

import "context"

// Limiter answers whether one more request is allowed for a key right now.
// The limit travels with the call because it is a per-tier value.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) bool
}
