// Package throttle provides a best-effort request counter for coarse API
// throttling. Counts are eventually consistent and may drift under
// concurrent bursts; that is acceptable here and ONLY here. Anything
// security-sensitive (credential checks, approval attempts) must use the
// strictly consistent per-user state instead, never this counter.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter tracks request counts per key over a rolling window.
type Counter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// New creates a Counter. limit is the number of requests allowed per key per
// window.
func New(redisURL string, limit int64, window time.Duration) (*Counter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Counter{rdb: redis.NewClient(opts), limit: limit, window: window}, nil
}

// Allow increments the key's counter and reports whether the caller is under
// the limit. INCR and EXPIRE are not transactional, so a crash between them
// can leave a counter without expiry for one window; fail-open on any Redis
// error keeps throttling from ever blocking legitimate traffic.
func (c *Counter) Allow(ctx context.Context, key string) bool {
	bucket := "throttle:" + key

	count, err := c.rdb.Incr(ctx, bucket).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		c.rdb.Expire(ctx, bucket, c.window)
	}
	return count <= c.limit
}

// Close closes the Redis client connection.
func (c *Counter) Close() error {
	return c.rdb.Close()
}
