package common

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const actorIDKey ctxKey = "auth/actor-id"

// ActorHeader carries the identifier of the staff member performing a request.
const ActorHeader = "X-Actor-ID"

// WithActorID stores the acting staff member identifier on the provided context.
func WithActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// ActorID extracts the acting staff member identifier from the context if present.
func ActorID(ctx context.Context) (int64, bool) {
	v := ctx.Value(actorIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// ActorMiddleware reads ActorHeader into the request context. Requests with a
// malformed header are rejected; a missing header is left for handlers that
// require an actor to reject. The actor is also tagged on the server span.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(ActorHeader))
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, InvalidArgument("%s must be a positive integer", ActorHeader))
			return
		}
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int64("printshop.actor_id", id))
		next.ServeHTTP(w, r.WithContext(WithActorID(r.Context(), id)))
	})
}

// RequireActor returns the actor from ctx or an INVALID_ARGUMENT error.
func RequireActor(ctx context.Context) (int64, error) {
	id, ok := ActorID(ctx)
	if !ok {
		return 0, InvalidArgument("%s header is required", ActorHeader)
	}
	return id, nil
}
