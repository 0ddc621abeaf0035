package events

// Topic constants for domain events emitted by the service.
const (
	TopicOrderCreated          = "order.created"
	TopicOrderTotalsRecomputed = "order.totals_recomputed"
	TopicOrderStatusChanged    = "order.status_changed"
	TopicOrderPaid             = "order.paid"
	TopicPaymentApplied        = "payment.applied"
	TopicPaymentReversed       = "payment.reversed"
	TopicCashShiftOpened       = "cash_shift.opened"
	TopicCashShiftClosed       = "cash_shift.closed"
)

// Aggregate types recorded with each event.
const (
	AggregateOrder     = "order"
	AggregateCashShift = "cash_shift"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderTotalsRecomputed,
		TopicOrderStatusChanged,
		TopicOrderPaid,
		TopicPaymentApplied,
		TopicPaymentReversed,
		TopicCashShiftOpened,
		TopicCashShiftClosed,
	}
}
