package service

import (
	"context"
	"errors"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

var (
	// ErrNoScorersAvailable is returned when no scorer produced a usable result.
	ErrNoScorersAvailable = errors.New("no scorers available")

	// ErrModelUnavailable marks a model artifact that is not loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrParse marks an LLM reply that could not be interpreted.
	ErrParse = errors.New("judge response parse error")

	// ErrProvider marks a transport or authentication failure talking to an LLM.
	ErrProvider = errors.New("judge provider error")
)

// ScoringInput is everything a scorer may read for one filing.
type ScoringInput struct {
	Profile  model.BusinessProfile
	Estimate model.RevenueEstimate
	GapRatio *float64
	Features model.FeatureVector
	Patterns model.PatternReport
}

// Scorer is one independent unit in the ensemble. Score never returns an error:
// every outcome is reported through the result's status.
type Scorer interface {
	ID() string
	Group() valueobject.ScorerGroup
	Score(ctx context.Context, in ScoringInput) model.ScoreResult
}
