package memorylimiter

import (
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter is an in-memory fixed-window rate limiter, a single-node
// fallback for when Redis is not configured. Redemption and listing
// handlers consult it before touching the lifecycle manager.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	windows map[string]*window
}

// New constructs an in-memory limiter with the provided per-bucket limits.
// A "default" bucket applies to any name without its own entry.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{limits: limits, windows: make(map[string]*window)}
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

// AllowNamed reports whether one more request is admitted for key within
// bucket. Stale windows are replaced on access, so memory is bounded by
// the set of recently active keys.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.limitFor(bucket)
	now := time.Now()
	k := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[k]
	if !ok || now.Sub(w.start) >= lim.Window {
		l.windows[k] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= lim.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}
