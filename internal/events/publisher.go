package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-printshop/internal/store"
)

// Envelope is the JSON message published for every event.
type Envelope struct {
	EventID       string          `json:"eventId"`
	Topic         string          `json:"topic"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   int64           `json:"aggregateId"`
	OccurredAt    string          `json:"occurredAt"`
	Payload       json.RawMessage `json:"payload"`
}

// RedisPublisher publishes events on "<prefix>:<topic>" channels.
type RedisPublisher struct {
	Client *redis.Client
	Prefix string
}

// Channel returns the pub/sub channel for topic.
func (p RedisPublisher) Channel(topic string) string {
	prefix := strings.TrimSpace(p.Prefix)
	if prefix == "" {
		return topic
	}
	return prefix + ":" + topic
}

// Notify implements Notifier.
func (p RedisPublisher) Notify(ctx context.Context, event store.DomainEvent) error {
	if p.Client == nil {
		return nil
	}
	data, err := json.Marshal(Envelope{
		EventID:       event.EventID,
		Topic:         event.Topic,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		OccurredAt:    event.OccurredAt.Format(time.RFC3339Nano),
		Payload:       json.RawMessage(event.Payload),
	})
	if err != nil {
		return err
	}
	return p.Client.Publish(ctx, p.Channel(event.Topic), data).Err()
}
