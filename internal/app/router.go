package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printshop/internal/cashshift"
	"github.com/noah-isme/backend-printshop/internal/catalog"
	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/events"
	"github.com/noah-isme/backend-printshop/internal/health"
	"github.com/noah-isme/backend-printshop/internal/obs"
	"github.com/noah-isme/backend-printshop/internal/order"
	"github.com/noah-isme/backend-printshop/internal/payment"
	"github.com/noah-isme/backend-printshop/internal/ratelimit"
	"github.com/noah-isme/backend-printshop/internal/security"
)

// RouterConfig carries the services and middleware the HTTP surface needs.
// Nil optional fields disable the corresponding middleware or endpoint.
type RouterConfig struct {
	Logger zerolog.Logger

	Catalog *catalog.Service
	Orders  *order.Service
	Ledger  *payment.Ledger
	Shifts  *cashshift.Tracker
	Health  health.Handler
	History events.HistoryReader

	Idem        common.Idem
	Limiter     ratelimit.Limiter
	BodyLimit   int64
	CORSOrigins []string
	HSTS        time.Duration

	HTTPMetrics    *obs.HTTPMetrics
	Tracing        bool
	MetricsHandler http.Handler
}

// NewRouter builds the chi router serving /api/v1 plus health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: cfg.Catalog})
	orderHandler := &order.Handler{Service: cfg.Orders}
	paymentHandler := &payment.Handler{Ledger: cfg.Ledger}
	shiftHandler := &cashshift.Handler{Tracker: cfg.Shifts}

	limiter := ratelimit.Handler{
		Limiter: cfg.Limiter,
		OnError: func(err error) {
			cfg.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	writes := []func(http.Handler) http.Handler{
		security.BodyLimit{Max: cfg.BodyLimit}.Middleware,
		limiter.Middleware,
		cfg.Idem.Middleware,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.ActorHeader, "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{HSTS: cfg.HSTS}.Middleware)

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(common.ActorMiddleware)

		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}/tiers", catalogHandler.Tiers)
		v.Get("/products/{id}/tiers/check", catalogHandler.CheckTiers)
		v.Get("/products/{id}/quote", catalogHandler.Quote)

		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{id}", orderHandler.Get)
		v.Get("/orders/{id}/payments", paymentHandler.List)
		if cfg.History != nil {
			v.Get("/orders/{id}/events", events.HistoryHandler{Reader: cfg.History, AggregateType: events.AggregateOrder}.List)
		}
		v.Get("/cash-shifts/current", shiftHandler.Current)
		v.Get("/cash-shifts/{id}/summary", shiftHandler.Summary)

		v.Group(func(wr chi.Router) {
			wr.Use(writes...)
			wr.Post("/products/{id}/tiers/refresh", catalogHandler.RefreshTiers)
			wr.Post("/orders", orderHandler.Create)
			wr.Post("/orders/{id}/items", orderHandler.AddItem)
			wr.Put("/orders/{id}/items", orderHandler.ReplaceItems)
			wr.Patch("/orders/{id}/items/{itemId}", orderHandler.UpdateItem)
			wr.Delete("/orders/{id}/items/{itemId}", orderHandler.RemoveItem)
			wr.Put("/orders/{id}/discount", orderHandler.SetDiscount)
			wr.Post("/orders/{id}/recompute", orderHandler.Recompute)
			wr.Patch("/orders/{id}/status", orderHandler.UpdateStatus)
			wr.Post("/orders/{id}/payments", paymentHandler.Apply)
			wr.Post("/orders/{id}/payments/{paymentId}/reverse", paymentHandler.Reverse)
			wr.Post("/cash-shifts/open", shiftHandler.Open)
			wr.Post("/cash-shifts/close", shiftHandler.Close)
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
