package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/resilience"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock { return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)} }

func TestBreakerTransitions(t *testing.T) {
	clk := newClock()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Window: 4, MinRequests: 2, OpenFor: time.Minute, Now: clk.Now})
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.False(t, breaker.Allow(ctx), "two failures out of two opens the breaker")

	clk.Advance(59 * time.Second)
	require.False(t, breaker.Allow(ctx))

	clk.Advance(time.Second)
	require.True(t, breaker.Allow(ctx), "cool-off over, one trial call")
	require.Equal(t, resilience.HalfOpen, breaker.State())
	require.False(t, breaker.Allow(ctx), "only one trial in flight")

	breaker.Report(ctx, true)
	require.Equal(t, resilience.Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	clk := newClock()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Window: 2, MinRequests: 1, OpenFor: time.Minute, Now: clk.Now})
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())

	clk.Advance(time.Minute)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State())
	require.False(t, breaker.Allow(ctx), "cool-off restarts from the failed trial")
}

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Window: 4, MinRequests: 4, FailureRatio: 0.75})
	ctx := context.Background()

	for _, ok := range []bool{false, false, true, true, true, true, false, false} {
		breaker.Report(ctx, ok)
		require.Equal(t, resilience.Closed, breaker.State())
	}
	breaker.Report(ctx, false)
	require.Equal(t, resilience.Open, breaker.State(), "three of the last four failed")
}

func TestBreakerDo(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, Window: 1})
	ctx := context.Background()
	boom := errors.New("publish failed")

	calls := 0
	fn := func(context.Context) error {
		calls++
		return boom
	}
	require.ErrorIs(t, breaker.Do(ctx, fn), boom)
	require.Equal(t, resilience.Open, breaker.State())

	require.ErrorIs(t, breaker.Do(ctx, fn), resilience.ErrOpenCircuit)
	require.Equal(t, 1, calls)
}

func TestBreakerDoIgnoresCancelledContext(t *testing.T) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, Window: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := breaker.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerCancelledTrialFreesSlot(t *testing.T) {
	clk := newClock()
	breaker := resilience.NewBreaker(resilience.BreakerConfig{MinRequests: 1, Window: 1, OpenFor: time.Second, Now: clk.Now})
	breaker.Report(context.Background(), false)
	clk.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, breaker.Do(ctx, func(ctx context.Context) error { return ctx.Err() }), context.Canceled)
	require.Equal(t, resilience.HalfOpen, breaker.State())

	require.NoError(t, breaker.Do(context.Background(), func(context.Context) error { return nil }))
	require.Equal(t, resilience.Closed, breaker.State())
}
