package model

import (
	"fmt"
	"math"

	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// ScoreResult is one scorer's contribution to a verdict.
type ScoreResult struct {
	scorerID   string
	group      valueobject.ScorerGroup
	rawScore   float64
	normalized float64
	weight     float64
	rationale  string
	status     valueobject.ScoreStatus
}

// NewOKResult builds a usable result. A non-finite raw or normalized score turns the
// result into Failed(InvalidScore); otherwise normalized is clamped to [0,1].
func NewOKResult(scorerID string, group valueobject.ScorerGroup, weight, raw, normalized float64, rationale string) ScoreResult {
	r := ScoreResult{
		scorerID:  scorerID,
		group:     group,
		weight:    clamp01(weight),
		rawScore:  raw,
		rationale: rationale,
		status:    valueobject.StatusOK,
	}
	if !isFinite(raw) || !isFinite(normalized) {
		r.rawScore = 0
		r.status = valueobject.Failed(valueobject.ReasonInvalidScore, fmt.Sprintf("raw=%v normalized=%v", raw, normalized))
		return r
	}
	r.normalized = clamp01(normalized)
	return r
}

// NewUnavailableResult records a scorer that could not be consulted.
func NewUnavailableResult(scorerID string, group valueobject.ScorerGroup, weight float64, code, detail string) ScoreResult {
	return ScoreResult{
		scorerID: scorerID,
		group:    group,
		weight:   clamp01(weight),
		status:   valueobject.Unavailable(code, detail),
	}
}

// NewFailedResult records a scorer that ran but produced nothing usable.
func NewFailedResult(scorerID string, group valueobject.ScorerGroup, weight float64, code, detail string) ScoreResult {
	return ScoreResult{
		scorerID: scorerID,
		group:    group,
		weight:   clamp01(weight),
		status:   valueobject.Failed(code, detail),
	}
}

// ReconstructScoreResult rebuilds a result from persisted data (no validation).
func ReconstructScoreResult(
	scorerID string,
	group valueobject.ScorerGroup,
	weight, raw, normalized float64,
	rationale string,
	status valueobject.ScoreStatus,
) ScoreResult {
	return ScoreResult{
		scorerID:   scorerID,
		group:      group,
		weight:     weight,
		rawScore:   raw,
		normalized: normalized,
		rationale:  rationale,
		status:     status,
	}
}

// --- Accessors ---

func (r ScoreResult) ScorerID() string                { return r.scorerID }
func (r ScoreResult) Group() valueobject.ScorerGroup  { return r.group }
func (r ScoreResult) RawScore() float64               { return r.rawScore }
func (r ScoreResult) NormalizedScore() float64        { return r.normalized }
func (r ScoreResult) ConfidenceWeight() float64       { return r.weight }
func (r ScoreResult) Rationale() string               { return r.rationale }
func (r ScoreResult) Status() valueobject.ScoreStatus { return r.status }

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
