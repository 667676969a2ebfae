package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerMinute(t *testing.T) {
	tests := []struct {
		n         int
		wantLimit float64
		wantBurst int
	}{
		{1200, 20, 120},
		{60, 1, 6},
		{5, 5.0 / 60, 1},
	}
	for _, tt := range tests {
		limit, burst := perMinute(tt.n)
		assert.InDelta(t, tt.wantLimit, float64(limit), 1e-9, "n=%d", tt.n)
		assert.Equal(t, tt.wantBurst, burst, "n=%d", tt.n)
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := New(60) // burst of 6, one token a second
	for i := range 6 {
		require.True(t, l.Allow(), "token %d", i)
	}
	assert.False(t, l.Allow())
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := New(1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func TestKeyed_IsolatesKeys(t *testing.T) {
	k := NewKeyed(10, time.Minute) // burst of 1
	t.Cleanup(k.Close)
	ctx := context.Background()

	assert.True(t, k.Allow(ctx, "10.0.0.1"))
	assert.False(t, k.Allow(ctx, "10.0.0.1"))
	assert.True(t, k.Allow(ctx, "10.0.0.2"))
	assert.Equal(t, 2, k.Len())
}

func TestKeyed_IdleBucketsReset(t *testing.T) {
	k := NewKeyed(10, 30*time.Millisecond)
	t.Cleanup(k.Close)
	ctx := context.Background()

	require.True(t, k.Allow(ctx, "a"))
	require.False(t, k.Allow(ctx, "a"))

	assert.Eventually(t, func() bool { return k.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, k.Allow(ctx, "a"))
}
