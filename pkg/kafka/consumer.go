package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/codes"
)

// Handler processes a consumed Kafka message.
type Handler func(ctx context.Context, msg Message) error

// permanentError marks a handler failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the consumer commits the message without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Consumer reads a topic within a consumer group and commits after each handled message.
type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
	logger  *slog.Logger
	retries int
	backoff time.Duration
}

// NewConsumer creates a Consumer for the given topic.
func NewConsumer(cfg Config, topic string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	dialer, err := cfg.dialer()
	if err != nil {
		return nil, err
	}
	readerCfg := kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
		Dialer:   dialer,
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Consumer{
		reader:  kafkago.NewReader(readerCfg),
		handler: handler,
		logger:  logger,
		retries: cfg.HandlerRetries,
		backoff: backoff,
	}, nil
}

// Start consumes until ctx is cancelled. A message is committed once the handler
// succeeds, returns a Permanent error, or exhausts its retries.
func (c *Consumer) Start(ctx context.Context) error {
	cfg := c.reader.Config()
	c.logger.Info("consumer starting", "topic", cfg.Topic, "group", cfg.GroupID)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping due to context cancellation")
				return nil
			}
			return fmt.Errorf("fetching message: %w", err)
		}

		msg := Message{Key: m.Key, Value: m.Value, Headers: fromKafkaHeaders(m.Headers)}
		msgCtx, span := startConsumeSpan(ctx, m.Topic, m.Partition, m.Offset, msg.Headers)
		err = c.handle(msgCtx, msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.ErrorContext(msgCtx, "handler error, skipping message",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"permanent", IsPermanent(err),
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit error",
				"topic", m.Topic,
				"partition", m.Partition,
				"offset", m.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg Message) error {
	return retry(ctx, c.retries, c.backoff, func() error { return c.handler(ctx, msg) })
}

// retry calls fn up to attempts+1 times, doubling the wait between tries.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	err := fn()
	for i := 0; i < attempts && err != nil && !IsPermanent(err); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff << i):
		}
		err = fn()
	}
	return err
}

// Close closes the reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("closing kafka reader: %w", err)
	}
	return nil
}
