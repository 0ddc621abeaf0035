package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	domainOnce sync.Once

	// PaymentsAppliedTotal counts payment application attempts by method and outcome.
	PaymentsAppliedTotal *prometheus.CounterVec
	// PaymentAmountTotal sums accepted payment amounts by method.
	PaymentAmountTotal *prometheus.CounterVec
	// CashShiftEventsTotal counts shift open/close events.
	CashShiftEventsTotal *prometheus.CounterVec
	// OrderRecomputeTotal counts order total recomputations by outcome.
	OrderRecomputeTotal *prometheus.CounterVec
	// CatalogCacheTotal counts tier table cache lookups by outcome.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_applied_total",
			Help:      "Count of payment application attempts by outcome.",
		}, []string{"method", "result"})
		PaymentAmountTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of accepted payment amounts.",
		}, []string{"method"})
		CashShiftEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cash_shift_events_total",
			Help:      "Count of cash shift lifecycle events.",
		}, []string{"event"})
		OrderRecomputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_recompute_total",
			Help:      "Count of order total recomputations by outcome.",
		}, []string{"result"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_tier_cache_total",
			Help:      "Count of tier table cache lookups by outcome.",
		}, []string{"result"})

		register(reg, &PaymentsAppliedTotal)
		register(reg, &PaymentAmountTotal)
		register(reg, &CashShiftEventsTotal)
		register(reg, &OrderRecomputeTotal)
		register(reg, &CatalogCacheTotal)
	})
}

// ObservePayment records a payment attempt. Amounts are only added for
// accepted positive payments; counters cannot decrease, so reversals only
// show up in the attempt count. Safe to call before registration.
func ObservePayment(method, result string, amount decimal.Decimal) {
	if PaymentsAppliedTotal != nil {
		PaymentsAppliedTotal.WithLabelValues(method, result).Inc()
	}
	if result == "ok" && amount.IsPositive() && PaymentAmountTotal != nil {
		PaymentAmountTotal.WithLabelValues(method).Add(amount.InexactFloat64())
	}
}

// ObserveShiftEvent records a shift lifecycle event.
func ObserveShiftEvent(event string) {
	if CashShiftEventsTotal != nil {
		CashShiftEventsTotal.WithLabelValues(event).Inc()
	}
}

// ObserveRecompute records an order recomputation outcome.
func ObserveRecompute(result string) {
	if OrderRecomputeTotal != nil {
		OrderRecomputeTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCatalogCache records a cache hit or miss.
func ObserveCatalogCache(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}
