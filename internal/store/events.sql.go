package store

import (
	"context"
	"time"
)

const insertDomainEvent = `-- name: InsertDomainEvent :exec
INSERT INTO domain_events (event_id, topic, aggregate_type, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (event_id) DO NOTHING`

type InsertDomainEventParams struct {
	EventID       string
	Topic         string
	AggregateType string
	AggregateID   int64
	Payload       []byte
	OccurredAt    time.Time
}

func (q *Queries) InsertDomainEvent(ctx context.Context, arg InsertDomainEventParams) error {
	_, err := q.db.Exec(ctx, insertDomainEvent,
		arg.EventID, arg.Topic, arg.AggregateType, arg.AggregateID, arg.Payload, arg.OccurredAt,
	)
	return err
}

const listDomainEvents = `-- name: ListDomainEvents :many
SELECT id, event_id, topic, aggregate_type, aggregate_id, payload, occurred_at
FROM domain_events
WHERE aggregate_type = $1 AND aggregate_id = $2
ORDER BY occurred_at, id`

func (q *Queries) ListDomainEvents(ctx context.Context, aggregateType string, aggregateID int64) ([]DomainEvent, error) {
	rows, err := q.db.Query(ctx, listDomainEvents, aggregateType, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DomainEvent
	for rows.Next() {
		var e DomainEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.Topic, &e.AggregateType, &e.AggregateID, &e.Payload, &e.OccurredAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
