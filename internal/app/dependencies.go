package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printshop/internal/cashshift"
	"github.com/noah-isme/backend-printshop/internal/catalog"
	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/config"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/health"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/order"
	"github.com/noah-isme/backend-printshop/internal/payment"
	"github.com/noah-isme/backend-printshop/internal/ratelimit"
	"github.com/noah-isme/backend-printshop/internal/resilience"
	"github.com/noah-isme/backend-printshop/internal/store"
)

// Dependencies holds the long-lived clients and domain services of the API.
type Dependencies struct {
	Store   *store.Store
	Redis   *redis.Client
	Bus     *events.Bus
	Limiter ratelimit.Limiter

	// EventsBreaker guards the Redis event channel.
	EventsBreaker *resilience.Breaker

	Catalog *catalog.Service
	Orders  *order.Service
	Ledger  *payment.Ledger
	Shifts  *cashshift.Tracker
}

// Build connects Postgres and Redis, applies migrations when configured and
// wires the domain services.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := store.Connect(connectCtx, store.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "printshop-api",
		Tracer:          obs.PGXTracer{},
	})
	if err != nil {
		return nil, err
	}
	st := store.NewStore(pool)

	rdb, err := newRedis(connectCtx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	limiter, err := ratelimit.New(rdb, cfg.RateLimitBackend, cfg.RateLimit, "printshop:ratelimit:")
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	deps, err := wire(st, rdb, cfg, logger)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}
	deps.Limiter = limiter
	return deps, nil
}

func newRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if cfg.Obs.TracingEnabled {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func wire(st *store.Store, rdb *redis.Client, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Target: "events_publisher",
		Logger: logger.With().Str("component", "events").Logger(),
	})
	publisher := events.Guarded{
		Notifier: events.RedisPublisher{Client: rdb, Prefix: cfg.EventsChannelPrefix},
		Breaker:  breaker,
	}
	bus := &events.Bus{Store: st, Notifiers: []events.Notifier{publisher}}

	catalogLog := logger.With().Str("component", "catalog").Logger()
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries: st,
		Cache:   catalog.NewCache(rdb, cfg.CatalogCacheTTL),
		Logger:  &catalogLog,
	})
	if err != nil {
		return nil, err
	}

	shifts := &cashshift.Tracker{
		Queries: st,
		Tx:      cashshift.PostgresRunner{Store: st},
		Events:  bus,
		Log:     logger.With().Str("component", "cashshift").Logger(),
	}

	ledger := &payment.Ledger{
		Tx:      payment.PostgresRunner{Store: st},
		Queries: st,
		Shifts:  shifts,
		Epsilon: cfg.PaymentEpsilon,
		Events:  bus,
		Log:     logger.With().Str("component", "payment").Logger(),
	}

	orderLog := logger.With().Str("component", "order").Logger()
	orders, err := order.NewService(order.ServiceConfig{
		Tx:      order.PostgresRunner{Store: st},
		Queries: st,
		Pricer:  catalogService,
		Epsilon: cfg.PaymentEpsilon,
		Events:  bus,
		Logger:  &orderLog,
	})
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Store:         st,
		Redis:         rdb,
		Bus:           bus,
		EventsBreaker: breaker,
		Catalog:       catalogService,
		Orders:        orders,
		Ledger:        ledger,
		Shifts:        shifts,
	}, nil
}

// Idempotency returns the Redis-backed Idempotency-Key middleware.
func (d *Dependencies) Idempotency(ttl time.Duration) common.Idem {
	return common.Idem{R: d.Redis, TTL: ttl}
}

// Health returns readiness checks over Postgres, Redis and the event
// publisher breaker.
func (d *Dependencies) Health() health.Handler {
	return health.Handler{Checks: []health.Check{
		health.Postgres(d.Store),
		health.Redis(d.Redis),
		health.Breaker("events_publisher", d.EventsBreaker),
	}}
}

// Close releases the pool and the Redis client.
func (d *Dependencies) Close() error {
	var err error
	if d.Redis != nil {
		err = errors.Join(err, d.Redis.Close())
	}
	if d.Store != nil && d.Store.Pool != nil {
		d.Store.Pool.Close()
	}
	return err
}
