package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProducer(t *testing.T) {
	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewProducer(Config{})
		assert.Error(t, err)
	})

	t.Run("plain connection uses default transport", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
		require.NoError(t, err)
		assert.Equal(t, "localhost:9092,localhost:9093", p.writer.Addr.String())
		assert.Nil(t, p.writer.Transport)
	})

	t.Run("sasl scram with tls", func(t *testing.T) {
		p, err := NewProducer(Config{
			Brokers:       []string{"kafka:9093"},
			TLS:           true,
			SASLEnabled:   true,
			SASLMechanism: "SCRAM-SHA-512",
			SASLUsername:  "taxrisk",
			SASLPassword:  "secret",
		})
		require.NoError(t, err)
		transport, ok := p.writer.Transport.(*kafkago.Transport)
		require.True(t, ok)
		assert.NotNil(t, transport.TLS)
		assert.NotNil(t, transport.SASL)
	})

	t.Run("unknown sasl mechanism", func(t *testing.T) {
		_, err := NewProducer(Config{Brokers: []string{"kafka:9093"}, SASLEnabled: true, SASLMechanism: "GSSAPI"})
		assert.Error(t, err)
	})
}

func TestProducer_PublishNothing(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background(), "taxrisk.events"))
	assert.NoError(t, p.Close())
}

func TestTraceHeaders(t *testing.T) {
	prevProp, prevTP := otel.GetTextMapPropagator(), otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTextMapPropagator(prevProp)
		otel.SetTracerProvider(prevTP)
		_ = tp.Shutdown(context.Background())
	})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	in := map[string]string{"event_type": "taxrisk.verdict.issued"}
	out := injectTrace(ctx, in)
	assert.Len(t, in, 1, "input headers are not modified")
	assert.Equal(t, "taxrisk.verdict.issued", out["event_type"])
	assert.Equal(t, "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01", out["traceparent"])

	roundTrip := fromKafkaHeaders(toKafkaHeaders(out))
	assert.Equal(t, out, roundTrip)

	consumeCtx, span := startConsumeSpan(context.Background(), "taxrisk.events", 0, 42, roundTrip)
	defer span.End()
	assert.Equal(t, sc.TraceID(), trace.SpanContextFromContext(consumeCtx).TraceID())

	assert.NotContains(t, injectTrace(context.Background(), nil), "traceparent")
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		failures  int
		permanent bool
		wantCalls int
		wantErr   bool
	}{
		{name: "succeeds first time", attempts: 3, failures: 0, wantCalls: 1},
		{name: "succeeds after transient failures", attempts: 3, failures: 2, wantCalls: 3},
		{name: "gives up after attempts", attempts: 2, failures: 10, wantCalls: 3, wantErr: true},
		{name: "permanent is not retried", attempts: 5, failures: 10, permanent: true, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retry(context.Background(), tt.attempts, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					e := errors.New("broker unavailable")
					if tt.permanent {
						return Permanent(e)
					}
					return e
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retry(ctx, 5, time.Hour, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPermanent(t *testing.T) {
	base := errors.New("invalid filing")
	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.ErrorIs(t, Permanent(base), base)
	assert.False(t, IsPermanent(base))
}
