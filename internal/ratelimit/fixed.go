package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Fixed is a fixed-window limiter backed by the ulule Redis store.
type Fixed struct {
	lim *limiter.Limiter
}

// NewFixed wires a fixed-window limiter for the formatted rate.
func NewFixed(rdb *redis.Client, rate, prefix string) (*Fixed, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	return &Fixed{lim: limiter.New(store, parsed)}, nil
}

// Allow implements Limiter.
func (f *Fixed) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := f.lim.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Limit:     int(res.Limit),
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}

// ParseRate splits a formatted rate into its window and request budget.
func ParseRate(rate string) (time.Duration, int, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return 0, 0, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	return parsed.Period, int(parsed.Limit), nil
}
