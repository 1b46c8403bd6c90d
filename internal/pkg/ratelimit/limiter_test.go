package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacesRequests(t *testing.T) {
	l := New("geonames", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}

	// first request passes immediately, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiter_Independent(t *testing.T) {
	a := New("overpass", time.Hour)
	b := New("overpass", time.Hour)
	ctx := context.Background()

	require.NoError(t, a.Wait(ctx))
	// a separate instance has its own budget
	require.NoError(t, b.Wait(ctx))
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := New("nominatim", time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "nominatim")
}

func TestLimiter_ZeroInterval(t *testing.T) {
	l := New("google", 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Equal(t, time.Duration(0), l.Interval())
}
