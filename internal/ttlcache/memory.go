package ttlcache

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = time.Minute

type entry struct {
	value   time.Time
	expires time.Time
}

// MemoryCache is a process-local Cache. Expired entries are dropped lazily on
// access and by a sweep that runs on writes at most once per sweep interval.
type MemoryCache struct {
	mu        sync.Mutex
	items     map[string]entry
	now       func() time.Time
	sweepEach time.Duration
	lastSweep time.Time
}

// MemoryOption customises a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSweepInterval sets how often writes trigger a full expiry sweep.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		if d > 0 {
			c.sweepEach = d
		}
	}
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		items:     make(map[string]entry),
		now:       time.Now,
		sweepEach: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastSweep = c.now()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (time.Time, bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return time.Time{}, false, nil
	}
	if !now.Before(e.expires) {
		delete(c.items, key)
		return time.Time{}, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCache) PutIfAbsent(_ context.Context, key string, value time.Time, ttl time.Duration) (bool, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(now)

	if e, ok := c.items[key]; ok && now.Before(e.expires) {
		return false, nil
	}
	c.items[key] = entry{value: value, expires: now.Add(ttl)}
	return true, nil
}

func (c *MemoryCache) Evict(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including ones not yet swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.sweepEach {
		return
	}
	for key, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, key)
		}
	}
	c.lastSweep = now
}
