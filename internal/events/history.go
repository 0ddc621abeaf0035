package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/noah-isme/backend-printshop/internal/common"
	"github.com/noah-isme/backend-printshop/internal/store"
)

// HistoryReader lists persisted events of one aggregate.
type HistoryReader interface {
	ListDomainEvents(ctx context.Context, aggregateType string, aggregateID int64) ([]store.DomainEvent, error)
}

// HistoryHandler serves the event trail of an aggregate.
type HistoryHandler struct {
	Reader        HistoryReader
	AggregateType string
}

// List handles GET /api/v1/orders/{id}/events.
func (h HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := common.URLParamID(r, "id", "aggregate id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	rows, err := h.Reader.ListDomainEvents(r.Context(), h.AggregateType, id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	out := make([]Envelope, 0, len(rows))
	for _, ev := range rows {
		out = append(out, Envelope{
			EventID:       ev.EventID,
			Topic:         ev.Topic,
			AggregateType: ev.AggregateType,
			AggregateID:   ev.AggregateID,
			OccurredAt:    ev.OccurredAt.Format(time.RFC3339Nano),
			Payload:       json.RawMessage(ev.Payload),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
