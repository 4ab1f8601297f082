package kafka

import (
	"context"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Message is a record as seen by producers and handlers. Headers are flattened to strings.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer writes to any topic through one shared writer; the topic is set per message.
type Producer struct {
	writer *kafkago.Writer
}

// NewProducer creates a Producer. It fails on an empty broker list or an unusable SASL setup.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	transport, err := cfg.transport()
	if err != nil {
		return nil, err
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: false,
	}
	if transport != nil {
		w.Transport = transport
	}
	return &Producer{writer: w}, nil
}

// Publish writes messages to topic as one batch and injects the trace context of ctx
// into every message's headers. Messages sharing a key land on the same partition.
func (p *Producer) Publish(ctx context.Context, topic string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	out := make([]kafkago.Message, len(messages))
	for i, msg := range messages {
		out[i] = kafkago.Message{
			Topic:   topic,
			Key:     msg.Key,
			Value:   msg.Value,
			Headers: toKafkaHeaders(injectTrace(ctx, msg.Headers)),
		}
	}
	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("kafka: publish %d message(s) to %s: %w", len(out), topic, err)
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: close writer: %w", err)
	}
	return nil
}

func toKafkaHeaders(h map[string]string) []kafkago.Header {
	if len(h) == 0 {
		return nil
	}
	out := make([]kafkago.Header, 0, len(h))
	for k, v := range h {
		out = append(out, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaHeaders(h []kafkago.Header) map[string]string {
	out := make(map[string]string, len(h))
	for _, kh := range h {
		out[kh.Key] = string(kh.Value)
	}
	return out
}
