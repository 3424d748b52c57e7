// Package ratelimit implements a per-caller token-bucket limiter keyed by
// tenant, API key, or user id, grounded on the original source's
// vex-api/tenant_rate_limiter.rs (per-tenant quota lookup with a
// fast-path/slow-path double-checked map of limiters) reimplemented as a
// plain token bucket rather than wrapping the Rust governor crate, since no
// GCRA library appears anywhere in the example pack.
package ratelimit

import (
	"sync"
	"time"

	"github.com/codeready-toolchain/vex/pkg/config"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// Limiter is a per-key token-bucket rate limiter guarded by a short-held
// mutex per lookup, matching §5's "atomic counters under a short-held lock."
type Limiter struct {
	cfg *config.RateLimitConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	overrides map[string]int // per-key requests-per-window override
}

// New constructs a Limiter using cfg's default quota for keys with no
// override.
func New(cfg *config.RateLimitConfig) *Limiter {
	if cfg == nil {
		cfg = config.DefaultRateLimitConfig()
	}
	return &Limiter{
		cfg:       cfg,
		buckets:   make(map[string]*bucket),
		overrides: make(map[string]int),
	}
}

// SetLimit overrides the requests-per-window quota for a specific key
// (tenant, API key, or user id), discarding any bucket already accumulated
// under the previous quota so the new limit takes effect immediately.
func (l *Limiter) SetLimit(key string, requestsPerWindow int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides[key] = requestsPerWindow
	delete(l.buckets, key)
}

// Allow reports whether key may proceed, consuming one token on success. On
// rejection it returns the duration the caller should wait before retrying.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := l.cfg.RequestsPerWindow
	if override, ok := l.overrides[key]; ok {
		capacity = override
	}
	if capacity <= 0 {
		return true, 0 // unlimited tier
	}

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:     float64(capacity),
			capacity:   float64(capacity),
			refillRate: float64(capacity) / l.cfg.Window.Seconds(),
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	b.refill(now)

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	missing := 1 - b.tokens
	retryAfter := time.Duration(missing / b.refillRate * float64(time.Second))
	return false, retryAfter
}

// Cleanup removes buckets that have not been touched in longer than maxIdle,
// bounding memory growth from a long-lived process seeing many distinct
// keys.
func (l *Limiter) Cleanup(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > maxIdle {
			delete(l.buckets, key)
		}
	}
}
