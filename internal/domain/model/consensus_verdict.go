package model

import "github.com/bibbank/taxrisk/internal/domain/valueobject"

// ExcludedScorer records a scorer left out of the consensus and why.
type ExcludedScorer struct {
	ScorerID string
	Group    valueobject.ScorerGroup
	Status   valueobject.ScoreStatus
}

// ConsensusVerdict is the aggregated outcome for one filing. It carries no timestamps
// or identifiers so identical inputs produce identical verdicts.
type ConsensusVerdict struct {
	finalScore   float64
	tier         valueobject.RiskTier
	contributing []ScoreResult
	excluded     []ExcludedScorer
	mlGroup      *float64
	aiGroup      *float64
	explanation  string
}

// NewConsensusVerdict copies its slices; callers keep no handle on verdict internals.
func NewConsensusVerdict(
	finalScore float64,
	tier valueobject.RiskTier,
	contributing []ScoreResult,
	excluded []ExcludedScorer,
	mlGroup, aiGroup *float64,
	explanation string,
) ConsensusVerdict {
	v := ConsensusVerdict{
		finalScore:   finalScore,
		tier:         tier,
		contributing: append([]ScoreResult(nil), contributing...),
		excluded:     append([]ExcludedScorer(nil), excluded...),
		explanation:  explanation,
	}
	if mlGroup != nil {
		ml := *mlGroup
		v.mlGroup = &ml
	}
	if aiGroup != nil {
		ai := *aiGroup
		v.aiGroup = &ai
	}
	return v
}

func (v ConsensusVerdict) FinalScore() float64            { return v.finalScore }
func (v ConsensusVerdict) RiskTier() valueobject.RiskTier { return v.tier }
func (v ConsensusVerdict) Explanation() string            { return v.explanation }

// ContributingScores returns the Ok results in presentation order.
func (v ConsensusVerdict) ContributingScores() []ScoreResult {
	return append([]ScoreResult(nil), v.contributing...)
}

// ExcludedScorers returns the scorers that did not contribute.
func (v ConsensusVerdict) ExcludedScorers() []ExcludedScorer {
	return append([]ExcludedScorer(nil), v.excluded...)
}

// MLGroupScore returns the ML group average, if the group had any Ok result.
func (v ConsensusVerdict) MLGroupScore() (float64, bool) {
	if v.mlGroup == nil {
		return 0, false
	}
	return *v.mlGroup, true
}

// AIGroupScore returns the AI group average, if the group had any Ok result.
func (v ConsensusVerdict) AIGroupScore() (float64, bool) {
	if v.aiGroup == nil {
		return 0, false
	}
	return *v.aiGroup, true
}

// IsPartial reports whether any scorer was excluded.
func (v ConsensusVerdict) IsPartial() bool {
	return len(v.excluded) > 0
}
