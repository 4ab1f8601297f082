package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/internal/infrastructure/telemetry"
)

var (
	_ service.Observer        = (*telemetry.Observer)(nil)
	_ service.VerdictObserver = (*telemetry.Observer)(nil)
)

func setup(t *testing.T) (*telemetry.Observer, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	o, err := telemetry.NewObserver(mp, tp)
	require.NoError(t, err)
	return o, reader, spans
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestObserver_ObserveUnit(t *testing.T) {
	o, reader, spans := setup(t)
	ctx := context.Background()

	_, done := o.ObserveUnit(ctx, "openai")
	done(model.NewOKResult("openai", valueobject.ScorerGroupAI, 0.9, 82, 0.82, "gap"), 120*time.Millisecond)

	_, done = o.ObserveUnit(ctx, "gemini")
	done(model.NewFailedResult("gemini", valueobject.ScorerGroupAI, 0.8, valueobject.ReasonParseError, "no JSON"), time.Second)

	metrics := collect(t, reader)
	units, ok := metrics["taxrisk_scorer_units"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, units.DataPoints, 2)
	for _, dp := range units.DataPoints {
		scorer, _ := dp.Attributes.Value(attribute.Key("scorer"))
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		switch scorer.AsString() {
		case "openai":
			assert.Equal(t, "OK", status.AsString())
		case "gemini":
			assert.Equal(t, "FAILED", status.AsString())
		default:
			t.Fatalf("unexpected scorer %q", scorer.AsString())
		}
		assert.Equal(t, int64(1), dp.Value)
	}

	_, ok = metrics["taxrisk_scorer_duration"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "scorer.openai", ended[0].Name())
	assert.Equal(t, "scorer.gemini", ended[1].Name())
	assert.Equal(t, "Error", ended[1].Status().Code.String())
}

func TestObserver_ObserveVerdict(t *testing.T) {
	o, reader, _ := setup(t)

	ml := 0.9
	v := model.NewConsensusVerdict(0.9, valueobject.RiskTierCritical, nil, nil, &ml, nil, "")
	o.ObserveVerdict(context.Background(), v)
	o.ObserveVerdict(context.Background(), v)

	verdicts, ok := collect(t, reader)["taxrisk_verdicts"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, verdicts.DataPoints, 1)
	assert.Equal(t, int64(2), verdicts.DataPoints[0].Value)
	tier, _ := verdicts.DataPoints[0].Attributes.Value(attribute.Key("tier"))
	assert.Equal(t, "CRITICAL", tier.AsString())
}
