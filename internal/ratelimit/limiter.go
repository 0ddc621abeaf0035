package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backends accepted by New.
const (
	BackendFixed   = "fixed"
	BackendSliding = "sliding"
)

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// New builds a Redis-backed limiter from a formatted rate such as "120-M".
func New(rdb *redis.Client, backend, rate, prefix string) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFixed:
		return NewFixed(rdb, rate, prefix)
	case BackendSliding:
		window, max, err := ParseRate(rate)
		if err != nil {
			return nil, err
		}
		return Sliding{Client: rdb, Prefix: prefix, Window: window, Max: max}, nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}
}
