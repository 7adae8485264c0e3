// Package ratelimit throttles repeated actions per key (client address,
// email) with a token bucket persisted in a kvs.Store.
package ratelimit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

// Limiter allows rate actions per interval for each key.
//
// Storage failures fail open: a request is allowed when the bucket cannot be
// read or written.
type Limiter struct {
	store    kvs.Store
	rate     int
	interval time.Duration
	clock    clockwork.Clock

	// serializes read-modify-write of buckets within this process
	mu sync.Mutex
}

type bucket struct {
	Tokens     int       `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

// NewLimiter creates a limiter. A nil clock uses the real clock.
func NewLimiter(rate int, interval time.Duration, store kvs.Store, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{
		store:    store,
		rate:     rate,
		interval: interval,
		clock:    clock,
	}
}

// Allow consumes one token for key and reports whether the action may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.rate <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	b, ok := l.load(ctx, key)
	if !ok {
		b = bucket{Tokens: l.rate, LastRefill: now}
	}

	if elapsed := now.Sub(b.LastRefill); elapsed >= l.interval {
		b.Tokens = l.rate
		b.LastRefill = b.LastRefill.Add(elapsed / l.interval * l.interval)
	}

	if b.Tokens <= 0 {
		return false
	}

	b.Tokens--
	l.save(ctx, key, b)
	return true
}

// RetryAfter reports how long until key regains a token. Zero means now.
func (l *Limiter) RetryAfter(ctx context.Context, key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.load(ctx, key)
	if !ok || b.Tokens > 0 {
		return 0
	}
	wait := b.LastRefill.Add(l.interval).Sub(l.clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}

// Reset forgets the bucket for key.
func (l *Limiter) Reset(ctx context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.store.Delete(ctx, key)
}

func (l *Limiter) load(ctx context.Context, key string) (bucket, bool) {
	var b bucket
	data, err := l.store.Get(ctx, key)
	if err != nil {
		return b, false
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, false
	}
	return b, true
}

// save writes the bucket with a TTL so idle keys disappear on their own.
func (l *Limiter) save(ctx context.Context, key string, b bucket) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	_ = l.store.Set(ctx, key, data, 2*l.interval)
}
