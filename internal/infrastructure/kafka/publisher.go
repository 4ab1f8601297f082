package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/taxrisk/pkg/events"
	pkgkafka "github.com/bibbank/taxrisk/pkg/kafka"
)

// Headers set on every published domain event.
const (
	EventTypeHeader   = "event_type"
	EventIDHeader     = "event_id"
	OccurredAtHeader  = "occurred_at"
	ContentTypeHeader = "content-type"
)

// Producer is the slice of pkg/kafka.Producer the publisher needs.
type Producer interface {
	Publish(ctx context.Context, topic string, messages ...pkgkafka.Message) error
}

// Publisher implements port.EventPublisher on a single events topic.
type Publisher struct {
	producer Producer
	logger   *slog.Logger
	topic    string
}

// NewPublisher creates a Publisher writing to topic.
func NewPublisher(producer Producer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// Publish writes the events as one batch keyed by aggregate ID, so all events of a
// verdict stay ordered on one partition. Nothing is written if any event fails to encode.
func (p *Publisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}
	batch := make([]pkgkafka.Message, len(domainEvents))
	for i, evt := range domainEvents {
		msg, err := encodeEvent(evt)
		if err != nil {
			return err
		}
		batch[i] = msg
	}

	if err := p.producer.Publish(ctx, p.topic, batch...); err != nil {
		return fmt.Errorf("failed to publish events to topic %s: %w", p.topic, err)
	}
	p.logger.DebugContext(ctx, "published domain events",
		slog.String("topic", p.topic),
		slog.String("aggregate_id", domainEvents[0].AggregateID()),
		slog.Int("count", len(batch)),
	)
	return nil
}

func encodeEvent(evt events.DomainEvent) (pkgkafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return pkgkafka.Message{}, fmt.Errorf("encode %s event: %w", evt.EventType(), err)
	}
	headers := map[string]string{
		EventTypeHeader:   evt.EventType(),
		EventIDHeader:     evt.EventID(),
		OccurredAtHeader:  evt.OccurredAt().UTC().Format(time.RFC3339Nano),
		ContentTypeHeader: "application/json",
	}
	if tenant := evt.TenantID(); tenant != "" {
		headers[TenantHeader] = tenant
	}
	return pkgkafka.Message{Key: []byte(evt.AggregateID()), Value: payload, Headers: headers}, nil
}
