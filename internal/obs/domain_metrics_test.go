package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-printshop/internal/obs"
)

func TestDomainMetrics(t *testing.T) {
	obs.MustRegisterDomainMetrics("printshop_test", prometheus.NewRegistry())

	before := testutil.ToFloat64(obs.PaymentAmountTotal.WithLabelValues("cash"))
	obs.ObservePayment("cash", "ok", decimal.RequireFromString("150.25"))
	obs.ObservePayment("cash", "ok", decimal.RequireFromString("-150.25"))
	obs.ObservePayment("cash", "rejected", decimal.RequireFromString("99"))

	require.InDelta(t, before+150.25, testutil.ToFloat64(obs.PaymentAmountTotal.WithLabelValues("cash")), 0.0001)
	require.Equal(t, float64(1), testutil.ToFloat64(obs.PaymentsAppliedTotal.WithLabelValues("cash", "rejected")))

	obs.ObserveShiftEvent("opened")
	require.Equal(t, float64(1), testutil.ToFloat64(obs.CashShiftEventsTotal.WithLabelValues("opened")))
}

func TestTracingMiddlewarePassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(obs.TracingMiddleware)
	r.Get("/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/7", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
}
