package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcoe/turingreg/pkg/shared/kvs"
)

func newTestLimiter(t *testing.T, rate int, interval time.Duration) (*Limiter, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	store, err := kvs.NewMemoryStore("ratelimit:", kvs.MemoryConfig{}, kvs.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewLimiter(rate, interval, store, clock), clock
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "10.0.0.1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "10.0.0.1") {
		t.Error("4th request should be blocked")
	}
	if !limiter.Allow(ctx, "10.0.0.2") {
		t.Error("other keys have independent buckets")
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "k"))
	assert.True(t, limiter.Allow(ctx, "k"))
	assert.False(t, limiter.Allow(ctx, "k"))

	clock.Advance(40 * time.Second)
	assert.Equal(t, 20*time.Second, limiter.RetryAfter(ctx, "k"))
	assert.False(t, limiter.Allow(ctx, "k"))

	clock.Advance(20 * time.Second)
	assert.Equal(t, time.Duration(0), limiter.RetryAfter(ctx, "k"))
	assert.True(t, limiter.Allow(ctx, "k"))
}

func TestLimiter_Reset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1, time.Hour)
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "jane"))
	assert.False(t, limiter.Allow(ctx, "jane"))

	limiter.Reset(ctx, "jane")
	assert.True(t, limiter.Allow(ctx, "jane"))
}

func TestLimiter_ZeroRate(t *testing.T) {
	limiter, _ := newTestLimiter(t, 0, time.Minute)
	assert.False(t, limiter.Allow(context.Background(), "k"))
}

func TestLimiter_FailsOpenOnClosedStore(t *testing.T) {
	store, err := kvs.NewMemoryStore("", kvs.MemoryConfig{})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	limiter := NewLimiter(1, time.Minute, store, nil)
	assert.True(t, limiter.Allow(context.Background(), "k"))
	assert.True(t, limiter.Allow(context.Background(), "k"), "unreadable buckets never block")
}
