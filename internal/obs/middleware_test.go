package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("printshop", []float64{1, 10}, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, path := range []string{"/api/v1/orders/1", "/api/v1/orders/2", "/wp-login.php", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, float64(2), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/orders/{id}", "204")))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, obs.UnmatchedRoute, "404")))
	require.Equal(t, 2, testutil.CollectAndCount(metrics.ReqTotal))
	require.Equal(t, 2, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))

	again := obs.NewHTTPMetrics("printshop", nil, registry)
	require.Same(t, metrics.ReqTotal, again.ReqTotal)
}

func TestParseBucketsCSV(t *testing.T) {
	require.Nil(t, obs.ParseBucketsCSV(""))
	require.Equal(t, []float64{5, 25, 100}, obs.ParseBucketsCSV("100, 5,abc,-1,25,5,0"))
}

func TestRequestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Post("/api/v1/orders/{id}/payments", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/api/v1/cash-shifts/current", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/9/payments", nil)
	req.Header.Set("X-Actor-ID", "4")
	req.Header.Set("Idempotency-Key", "k-1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cash-shifts/current", nil))

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))

	require.Equal(t, "warn", first["level"])
	require.Equal(t, "/api/v1/orders/{id}/payments", first["route"])
	require.Equal(t, "4", first["actor"])
	require.Equal(t, true, first["idempotent"])
	require.Equal(t, float64(http.StatusConflict), first["status"])

	require.Equal(t, "error", second["level"])
	require.NotContains(t, second, "actor")
}
