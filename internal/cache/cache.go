// internal/cache/cache.go
// Package cache provides the upstream response cache consulted by the
// upstream client. Entries honor the per-resource freshness window; the proxy
// itself holds no in-process state.
package cache

import (
	"context"
	"time"
)

// Cache stores raw upstream response bodies keyed by upstream path and query.
type Cache interface {
	// Get returns a cached body and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a body for ttl. Failures are best-effort and never surfaced.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Noop is the cache used when no Redis address is configured. Every lookup
// misses and every store is dropped.
type Noop struct{}

// Get implements Cache.
func (Noop) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

// Set implements Cache.
func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {}
