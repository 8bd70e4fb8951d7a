package redislimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Limiter is a Redis-backed fixed-window limiter shared across nodes.
// Counters are keyed per caller per bucket and expire with the window.
type Limiter struct {
	rdb    *redis.Client
	keyNS  string
	limits map[string]Limit
}

func New(rdb *redis.Client, keyPrefix string, limits map[string]Limit) *Limiter {
	if keyPrefix == "" {
		keyPrefix = "entitle:rl:"
	}
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{rdb: rdb, keyNS: keyPrefix, limits: limits}
}

func (l *Limiter) limitFor(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed increments the caller's window counter and admits the request
// while the counter stays at or under the bucket limit. The first hit in a
// window sets the key's TTL; Redis expiry retires idle counters.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	ctx := context.Background()
	lim := l.limitFor(bucket)
	counterKey := fmt.Sprintf("%s%s:%s", l.keyNS, key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.ExpireNX(ctx, counterKey, lim.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= int64(lim.Limit), nil
}
