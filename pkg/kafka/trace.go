package kafka

import (
	"context"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/bibbank/taxrisk/pkg/kafka"

// injectTrace returns a copy of headers carrying the W3C trace context of ctx.
func injectTrace(ctx context.Context, headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+2)
	maps.Copy(out, headers)
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(out))
	return out
}

// startConsumeSpan continues the producer's trace, if any, for one consumed message.
func startConsumeSpan(ctx context.Context, topic string, partition int, offset int64, headers map[string]string) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
	return otel.Tracer(tracerName).Start(ctx, topic+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(topic),
			attribute.Int64("messaging.kafka.message.offset", offset),
			attribute.Int("messaging.kafka.partition", partition),
		),
	)
}
