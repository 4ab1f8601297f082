// Package messaging holds event publishers that do not need a broker.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bibbank/taxrisk/pkg/events"
)

// LogPublisher implements port.EventPublisher by logging each event. It is used
// when no Kafka brokers are configured and by the CLI.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that writes events to logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs every event at Info with its JSON payload at Debug.
func (p *LogPublisher) Publish(ctx context.Context, domainEvents ...events.DomainEvent) error {
	for _, evt := range domainEvents {
		payload, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event %s: %w", evt.EventType(), err)
		}

		p.logger.InfoContext(ctx, "domain event",
			slog.String("event_type", evt.EventType()),
			slog.String("event_id", evt.EventID()),
			slog.String("aggregate_id", evt.AggregateID()),
		)
		p.logger.DebugContext(ctx, "event payload",
			slog.String("event_type", evt.EventType()),
			slog.String("payload", string(payload)),
		)
	}
	return nil
}
