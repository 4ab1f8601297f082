package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// Observer receives a callback around every scorer unit. The returned context is passed
// to the unit; done is called once with the unit's result.
type Observer interface {
	ObserveUnit(ctx context.Context, scorerID string) (unitCtx context.Context, done func(result model.ScoreResult, elapsed time.Duration))
}

// VerdictObserver is an optional extension of Observer told about every verdict.
type VerdictObserver interface {
	ObserveVerdict(ctx context.Context, verdict model.ConsensusVerdict)
}

type noopObserver struct{}

func (noopObserver) ObserveUnit(ctx context.Context, _ string) (context.Context, func(model.ScoreResult, time.Duration)) {
	return ctx, func(model.ScoreResult, time.Duration) {}
}

// Evaluation is the full outcome of scoring one profile.
type Evaluation struct {
	Profile  model.BusinessProfile
	Estimate model.RevenueEstimate
	GapRatio *float64
	Features model.FeatureVector
	Patterns model.PatternReport
	Results  []model.ScoreResult
	Verdict  model.ConsensusVerdict
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver attaches a metrics/tracing observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// Engine orchestrates one scoring request: revenue estimate, pattern rules, features,
// concurrent scorer fan-out, then aggregation once every unit has finished.
type Engine struct {
	estimator  *RevenueEstimator
	detector   *PatternDetector
	aggregator *ConsensusAggregator
	scorers    []Scorer
	observer   Observer
	logger     *slog.Logger
}

// NewEngine wires the scoring pipeline.
func NewEngine(estimator *RevenueEstimator, aggregator *ConsensusAggregator, scorers []Scorer, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		estimator:  estimator,
		detector:   NewPatternDetector(estimator.Benchmarks()),
		aggregator: aggregator,
		scorers:    append([]Scorer(nil), scorers...),
		observer:   noopObserver{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scorers returns the configured units.
func (e *Engine) Scorers() []Scorer {
	return append([]Scorer(nil), e.scorers...)
}

// Estimator returns the revenue estimator in use.
func (e *Engine) Estimator() *RevenueEstimator {
	return e.estimator
}

// Evaluate scores one profile. Scorer failures are carried in the results; the only
// errors returned are a revenue estimation failure, caller cancellation, and
// ErrNoScorersAvailable (in which case the returned Evaluation still lists the results).
func (e *Engine) Evaluate(ctx context.Context, profile model.BusinessProfile) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("evaluation cancelled: %w", err)
	}

	estimate, err := e.estimator.ExpectedRevenue(profile)
	if err != nil {
		return Evaluation{}, fmt.Errorf("estimate revenue: %w", err)
	}

	var gapRatio *float64
	if declared, ok := profile.DeclaredRevenue(); ok {
		g, err := RevenueGapRatio(declared, estimate)
		if err != nil {
			return Evaluation{}, err
		}
		gapRatio = &g
	}

	patterns := e.detector.Detect(profile, estimate)

	features, err := BuildFeatures(profile, estimate, gapRatio, patterns)
	if err != nil {
		return Evaluation{}, err
	}

	in := ScoringInput{Profile: profile, Estimate: estimate, GapRatio: gapRatio, Features: features, Patterns: patterns}

	results := make([]model.ScoreResult, len(e.scorers))
	var g errgroup.Group
	for i, s := range e.scorers {
		g.Go(func() error {
			results[i] = e.runUnit(ctx, s, in)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("evaluation cancelled: %w", err)
	}

	ev := Evaluation{
		Profile:  profile,
		Estimate: estimate,
		GapRatio: gapRatio,
		Features: features,
		Patterns: patterns,
		Results:  results,
	}

	verdict, err := e.aggregator.Aggregate(results)
	if err != nil {
		e.logger.Warn("no scorer produced a usable result", "business_id", profile.BusinessID(), "error", err)
		return ev, err
	}
	ev.Verdict = verdict
	if vo, ok := e.observer.(VerdictObserver); ok {
		vo.ObserveVerdict(ctx, verdict)
	}

	e.logger.Info("filing scored",
		"business_id", profile.BusinessID(),
		"final_score", verdict.FinalScore(),
		"risk_tier", verdict.RiskTier().String(),
		"excluded", len(verdict.ExcludedScorers()),
		"matched_patterns", len(patterns.Matched()),
	)
	return ev, nil
}

func (e *Engine) runUnit(ctx context.Context, s Scorer, in ScoringInput) (result model.ScoreResult) {
	unitCtx, done := e.observer.ObserveUnit(ctx, s.ID())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("scorer panicked", "scorer", s.ID(), "panic", r)
			result = model.NewFailedResult(s.ID(), s.Group(), 0, valueobject.ReasonPanic, fmt.Sprint(r))
		}
		done(result, time.Since(start))
	}()

	result = s.Score(unitCtx, in)
	if result.ScorerID() == "" {
		result = model.NewFailedResult(s.ID(), s.Group(), 0, valueobject.ReasonInvalidScore, "scorer returned an empty result")
	}
	if result.Status().IsOK() {
		e.logger.Debug("scorer finished", "scorer", s.ID(), "score", result.NormalizedScore())
	}
	return result
}
