package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingAllowWindow(t *testing.T) {
	mr, client := newClient(t)
	window := 2 * time.Second
	limiter := Sliding{Client: client, Prefix: "test:", Window: window, Max: 2}
	ctx := context.Background()

	for i := 0; i < limiter.Max; i++ {
		d, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i)
		require.Equal(t, limiter.Max-(i+1), d.Remaining)
	}

	d, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	mr.FastForward(window)

	d, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestSlidingWithoutClientAllows(t *testing.T) {
	d, err := Sliding{Window: time.Second, Max: 3}.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 3, d.Remaining)
}
