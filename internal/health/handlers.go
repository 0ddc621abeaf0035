package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/resilience"
)

var draining atomic.Bool

// SetReady flips readiness. The server clears it on shutdown so load
// balancers stop routing before connections close.
func SetReady(v bool) { draining.Store(!v) }

// Check is one readiness dependency. A failing Optional check is reported but
// leaves the instance ready: payments and totals never depend on it.
type Check struct {
	Name     string
	Timeout  time.Duration
	Optional bool
	Run      func(ctx context.Context) error
}

// DBPinger is implemented by *store.Store.
type DBPinger interface {
	Ping(ctx context.Context, timeout time.Duration) error
}

// Postgres checks the pool. Orders, payments and shifts all live there.
func Postgres(db DBPinger) Check {
	return Check{Name: "postgres", Timeout: 500 * time.Millisecond, Run: func(ctx context.Context) error {
		if db == nil {
			return errors.New("database not configured")
		}
		return db.Ping(ctx, 500*time.Millisecond)
	}}
}

// Redis checks the client backing idempotency keys, rate limits and the
// tier cache.
func Redis(rdb redis.UniversalClient) Check {
	return Check{Name: "redis", Timeout: 300 * time.Millisecond, Run: func(ctx context.Context) error {
		if rdb == nil {
			return errors.New("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}}
}

// Breaker reports an open circuit on a best-effort downstream.
func Breaker(name string, b *resilience.Breaker) Check {
	return Check{Name: name, Optional: true, Run: func(context.Context) error {
		if b != nil && b.State() == resilience.Open {
			return resilience.ErrOpenCircuit
		}
		return nil
	}}
}

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Checks []Check
}

// Report is the readiness response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Live always answers ok while the process serves HTTP.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every check concurrently. Status is "ok", "degraded" when only
// optional checks fail, or "unavailable" with a 503.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining", Checks: map[string]string{}})
		return
	}
	if len(h.Checks) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "unavailable", Checks: map[string]string{}})
		return
	}
	errs := make([]error, len(h.Checks))
	var wg sync.WaitGroup
	for i, c := range h.Checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := r.Context()
			if c.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.Timeout)
				defer cancel()
			}
			errs[i] = c.Run(ctx)
		}()
	}
	wg.Wait()

	rep := Report{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	code := http.StatusOK
	for i, c := range h.Checks {
		if errs[i] == nil {
			rep.Checks[c.Name] = "ok"
			continue
		}
		rep.Checks[c.Name] = errs[i].Error()
		if c.Optional {
			if rep.Status == "ok" {
				rep.Status = "degraded"
			}
			continue
		}
		rep.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	common.JSON(w, code, rep)
}
