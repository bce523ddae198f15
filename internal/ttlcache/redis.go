package ttlcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisMaxAttempts    = 3
	redisInitialBackoff = 50 * time.Millisecond
)

// redisClient is the subset of go-redis commands the cache relies on.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache shares reservations across processes. PutIfAbsent maps to SET NX PX.
// Each reservation stores "<unix millis>:<token>" so a retried write can tell
// its own earlier success apart from a competing reservation.
type RedisCache struct {
	client redisClient
	prefix string
}

// NewRedisCache wraps a go-redis client. Keys are namespaced with prefix.
func NewRedisCache(client redisClient, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// NewRedisClient builds a go-redis client from a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return redis.NewClient(opts), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := withRetry(ctx, func() (string, error) {
		value, err := c.client.Get(ctx, c.prefix+key).Result()
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return value, err
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if raw == "" {
		return time.Time{}, false, nil
	}
	stamp, _, _ := strings.Cut(raw, ":")
	millis, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return time.UnixMilli(millis).UTC(), true, nil
}

func (c *RedisCache) PutIfAbsent(ctx context.Context, key string, value time.Time, ttl time.Duration) (bool, error) {
	fullKey := c.prefix + key
	reservation := strconv.FormatInt(value.UnixMilli(), 10) + ":" + uuid.NewString()

	// A failed SETNX may still have been applied by the server. Once an attempt
	// errored, a later "already set" answer is checked against our own value.
	var uncertain bool
	return withRetry(ctx, func() (bool, error) {
		stored, err := c.client.SetNX(ctx, fullKey, reservation, ttl).Result()
		if err != nil {
			uncertain = true
			return false, err
		}
		if stored || !uncertain {
			return stored, nil
		}
		current, err := c.client.Get(ctx, fullKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			return false, nil
		case err != nil:
			return false, err
		}
		return current == reservation, nil
	})
}

func (c *RedisCache) Evict(ctx context.Context, key string) error {
	_, err := withRetry(ctx, func() (int64, error) {
		return c.client.Del(ctx, c.prefix+key).Result()
	})
	return err
}

// withRetry runs op with exponential backoff so a dropped connection does not
// surface as a failed request.
func withRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	backoff := redisInitialBackoff
	for attempt := 0; attempt < redisMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		result, err := op()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, fmt.Errorf("redis operation failed after %d attempts: %w", redisMaxAttempts, lastErr)
}
