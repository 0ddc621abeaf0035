package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-printshop/internal/store"
)

// Emitter is implemented by *Bus.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateType string, aggregateID int64, payload any) (store.DomainEvent, error)
}

// EmitLogged emits after a committed mutation. Failures are logged and
// otherwise ignored; the mutation has already been committed.
func EmitLogged(ctx context.Context, e Emitter, log zerolog.Logger, topic, aggregateType string, aggregateID int64, payload any) {
	if e == nil {
		return
	}
	if _, err := e.Emit(ctx, topic, aggregateType, aggregateID, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Int64("aggregate_id", aggregateID).Msg("emit event")
	}
}
