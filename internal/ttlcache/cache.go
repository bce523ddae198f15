// Package ttlcache provides expiring key reservations used to deduplicate
// engagement events within a time window.
package ttlcache

import (
	"context"
	"time"
)

// Cache stores a timestamp per key until its ttl elapses.
type Cache interface {
	// Get returns the stored value and whether an unexpired entry exists.
	Get(ctx context.Context, key string) (time.Time, bool, error)
	// PutIfAbsent stores value under key only when no unexpired entry exists.
	// It reports whether the value was stored. The check and the store are atomic.
	PutIfAbsent(ctx context.Context, key string, value time.Time, ttl time.Duration) (bool, error)
	// Evict removes key. Evicting a missing key is not an error.
	Evict(ctx context.Context, key string) error
}
