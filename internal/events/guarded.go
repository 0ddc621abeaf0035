package events

import (
	"context"

	"github.com/noah-isme/backend-printshop/internal/resilience"
	"github.com/noah-isme/backend-printshop/internal/store"
)

// Guarded wraps a notifier with a circuit breaker so a failing downstream
// channel stops costing every request a timeout.
type Guarded struct {
	Notifier Notifier
	Breaker  *resilience.Breaker
}

// Notify implements Notifier. It returns resilience.ErrOpenCircuit while the
// breaker is open.
func (g Guarded) Notify(ctx context.Context, event store.DomainEvent) error {
	if g.Notifier == nil {
		return nil
	}
	if g.Breaker == nil {
		return g.Notifier.Notify(ctx, event)
	}
	return g.Breaker.Do(ctx, func(ctx context.Context) error {
		return g.Notifier.Notify(ctx, event)
	})
}
