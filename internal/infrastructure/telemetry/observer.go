// Package telemetry records scorer-unit metrics and spans for the scoring engine.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/taxrisk/internal/domain/model"
)

const instrumentationName = "github.com/bibbank/taxrisk/internal/infrastructure/telemetry"

// Observer implements service.Observer and service.VerdictObserver.
type Observer struct {
	tracer   trace.Tracer
	units    metric.Int64Counter
	duration metric.Float64Histogram
	verdicts metric.Int64Counter
	final    metric.Float64Histogram
}

// NewObserver creates the engine instruments on the given providers.
func NewObserver(mp metric.MeterProvider, tp trace.TracerProvider) (*Observer, error) {
	meter := mp.Meter(instrumentationName)

	units, err := meter.Int64Counter("taxrisk_scorer_units",
		metric.WithDescription("Scorer units run, by scorer and outcome."))
	if err != nil {
		return nil, fmt.Errorf("telemetry: units counter: %w", err)
	}
	duration, err := meter.Float64Histogram("taxrisk_scorer_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Wall time of a scorer unit."),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15, 30))
	if err != nil {
		return nil, fmt.Errorf("telemetry: duration histogram: %w", err)
	}
	verdicts, err := meter.Int64Counter("taxrisk_verdicts",
		metric.WithDescription("Consensus verdicts issued, by risk tier."))
	if err != nil {
		return nil, fmt.Errorf("telemetry: verdicts counter: %w", err)
	}
	final, err := meter.Float64Histogram("taxrisk_final_score",
		metric.WithDescription("Distribution of final consensus scores."),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.85, 1))
	if err != nil {
		return nil, fmt.Errorf("telemetry: final score histogram: %w", err)
	}

	return &Observer{
		tracer:   tp.Tracer(instrumentationName),
		units:    units,
		duration: duration,
		verdicts: verdicts,
		final:    final,
	}, nil
}

// ObserveUnit opens a span for one scorer unit and records its outcome when done.
func (o *Observer) ObserveUnit(ctx context.Context, scorerID string) (context.Context, func(model.ScoreResult, time.Duration)) {
	ctx, span := o.tracer.Start(ctx, "scorer."+scorerID, trace.WithAttributes(
		attribute.String("taxrisk.scorer", scorerID),
	))

	return ctx, func(r model.ScoreResult, elapsed time.Duration) {
		defer span.End()

		status := r.Status()
		attrs := metric.WithAttributes(
			attribute.String("scorer", scorerID),
			attribute.String("group", r.Group().String()),
			attribute.String("status", status.Kind()),
		)
		o.units.Add(ctx, 1, attrs)
		o.duration.Record(ctx, elapsed.Seconds(), attrs)

		span.SetAttributes(attribute.String("taxrisk.status", status.Kind()))
		if status.IsOK() {
			span.SetAttributes(attribute.Float64("taxrisk.normalized_score", r.NormalizedScore()))
			return
		}
		span.SetAttributes(attribute.String("taxrisk.reason", status.Code()))
		if status.IsFailed() {
			span.SetStatus(codes.Error, status.String())
		}
	}
}

// ObserveVerdict counts the verdict by tier.
func (o *Observer) ObserveVerdict(ctx context.Context, v model.ConsensusVerdict) {
	attrs := metric.WithAttributes(
		attribute.String("tier", v.RiskTier().String()),
		attribute.Bool("partial", v.IsPartial()),
	)
	o.verdicts.Add(ctx, 1, attrs)
	o.final.Record(ctx, v.FinalScore())
}
