// Package ratelimit adapts golang.org/x/time/rate to per-minute budgets.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fd1az/dexter/internal/cache"
)

// perMinute converts n events per minute to a token bucket. The bucket holds
// a tenth of the minute's budget, never less than one token.
func perMinute(n int) (rate.Limit, int) {
	return rate.Limit(float64(n) / 60), max(n/10, 1)
}

// Limiter is a single token bucket.
type Limiter struct {
	bucket *rate.Limiter
}

// New allows n events per minute.
func New(n int) *Limiter {
	return &Limiter{bucket: rate.NewLimiter(perMinute(n))}
}

// Wait blocks for a token or until ctx is done.
func (l *Limiter) Wait(ctx context.Context) error { return l.bucket.Wait(ctx) }

// Allow takes a token if one is available right now.
func (l *Limiter) Allow() bool { return l.bucket.Allow() }

// Tokens is the current bucket level.
func (l *Limiter) Tokens() float64 { return l.bucket.Tokens() }

// Keyed keeps one bucket per key, e.g. per client address. Buckets idle for
// longer than the idle window are dropped and start full on next use.
type Keyed struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu      sync.Mutex
	buckets *cache.Cache[string, *rate.Limiter]
}

// NewKeyed allows n events per minute for each key.
func NewKeyed(n int, idle time.Duration) *Keyed {
	limit, burst := perMinute(n)
	return &Keyed{
		limit:   limit,
		burst:   burst,
		idle:    idle,
		buckets: cache.New[string, *rate.Limiter](idle),
	}
}

// Allow takes a token from key's bucket.
func (k *Keyed) Allow(ctx context.Context, key string) bool {
	k.mu.Lock()
	b, ok := k.buckets.Get(ctx, key)
	if !ok {
		b = rate.NewLimiter(k.limit, k.burst)
	}
	k.buckets.Set(ctx, key, b, k.idle)
	k.mu.Unlock()
	return b.Allow()
}

// Len is the number of live buckets.
func (k *Keyed) Len() int { return k.buckets.Len() }

// Close stops the idle sweeper.
func (k *Keyed) Close() { k.buckets.Close() }
