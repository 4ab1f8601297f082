package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// GroupWeights sets the blend between the ML and AI group scores.
type GroupWeights struct {
	ML float64 `yaml:"ml"`
	AI float64 `yaml:"ai"`
}

// AggregatorConfig holds the fixed aggregation parameters.
type AggregatorConfig struct {
	GroupWeights       GroupWeights               `yaml:"group_weights"`
	Thresholds         valueobject.TierThresholds `yaml:"thresholds"`
	AgreementTolerance float64                    `yaml:"agreement_tolerance"`
}

// DefaultAggregatorConfig returns ML 0.5 / AI 0.5, tiers 0.3 / 0.6 / 0.85 and a 0.2 agreement band.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		GroupWeights:       GroupWeights{ML: 0.5, AI: 0.5},
		Thresholds:         valueobject.DefaultTierThresholds(),
		AgreementTolerance: 0.2,
	}
}

// ConsensusAggregator folds scorer results into a verdict. It holds no mutable state.
type ConsensusAggregator struct {
	cfg AggregatorConfig
}

// NewConsensusAggregator validates cfg, falling back to defaults for unset parts.
func NewConsensusAggregator(cfg AggregatorConfig) (*ConsensusAggregator, error) {
	def := DefaultAggregatorConfig()
	if cfg.GroupWeights.ML == 0 && cfg.GroupWeights.AI == 0 {
		cfg.GroupWeights = def.GroupWeights
	}
	if cfg.Thresholds == (valueobject.TierThresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.AgreementTolerance <= 0 {
		cfg.AgreementTolerance = def.AgreementTolerance
	}
	if cfg.GroupWeights.ML < 0 || cfg.GroupWeights.AI < 0 {
		return nil, fmt.Errorf("group weights must be non-negative")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &ConsensusAggregator{cfg: cfg}, nil
}

// Config returns the effective configuration.
func (a *ConsensusAggregator) Config() AggregatorConfig {
	return a.cfg
}

// Aggregate combines results into a verdict. Only Ok results contribute; a group with
// no Ok result is left out of the blend rather than counted as zero. When neither group
// has an Ok result it returns ErrNoScorersAvailable. The output depends only on the
// multiset of results, not on their order.
func (a *ConsensusAggregator) Aggregate(results []model.ScoreResult) (model.ConsensusVerdict, error) {
	sorted := append([]model.ScoreResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessResult(sorted[i], sorted[j])
	})

	var (
		contributing []model.ScoreResult
		excluded     []model.ExcludedScorer
		sums         = map[valueobject.ScorerGroup]*[2]float64{
			valueobject.ScorerGroupML: {},
			valueobject.ScorerGroupAI: {},
		}
	)
	for _, r := range sorted {
		if !r.Status().IsOK() {
			excluded = append(excluded, model.ExcludedScorer{ScorerID: r.ScorerID(), Group: r.Group(), Status: r.Status()})
			continue
		}
		contributing = append(contributing, r)
		if s, ok := sums[r.Group()]; ok {
			s[0] += r.NormalizedScore() * r.ConfidenceWeight()
			s[1] += r.ConfidenceWeight()
		}
	}

	ml := groupMean(sums[valueobject.ScorerGroupML])
	ai := groupMean(sums[valueobject.ScorerGroupAI])

	var final float64
	switch {
	case ml != nil && ai != nil:
		wML, wAI := a.cfg.GroupWeights.ML, a.cfg.GroupWeights.AI
		if wML+wAI == 0 {
			wML, wAI = 1, 1
		}
		final = (*ml*wML + *ai*wAI) / (wML + wAI)
	case ml != nil:
		final = *ml
	case ai != nil:
		final = *ai
	default:
		return model.ConsensusVerdict{}, fmt.Errorf("%w: %d scorer(s) excluded", ErrNoScorersAvailable, len(excluded))
	}
	final = math.Max(0, math.Min(1, final))

	tier := a.cfg.Thresholds.Tier(final)
	explanation := a.explain(contributing, excluded, ml, ai)

	return model.NewConsensusVerdict(final, tier, contributing, excluded, ml, ai, explanation), nil
}

func groupMean(s *[2]float64) *float64 {
	if s[1] <= 0 {
		return nil
	}
	m := s[0] / s[1]
	return &m
}

// lessResult orders ML before AI, then weight descending, then scorer id.
func lessResult(x, y model.ScoreResult) bool {
	if x.Group().Rank() != y.Group().Rank() {
		return x.Group().Rank() < y.Group().Rank()
	}
	if x.ConfidenceWeight() != y.ConfidenceWeight() {
		return x.ConfidenceWeight() > y.ConfidenceWeight()
	}
	if x.ScorerID() != y.ScorerID() {
		return x.ScorerID() < y.ScorerID()
	}
	if x.Status().Kind() != y.Status().Kind() {
		return x.Status().Kind() < y.Status().Kind()
	}
	return x.NormalizedScore() < y.NormalizedScore()
}

func (a *ConsensusAggregator) explain(contributing []model.ScoreResult, excluded []model.ExcludedScorer, ml, ai *float64) string {
	var lines []string

	for _, r := range contributing {
		if r.Group() != valueobject.ScorerGroupAI || r.Rationale() == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s, weight %.2f] %s", r.ScorerID(), r.ConfidenceWeight(), r.Rationale()))
	}

	switch {
	case ml != nil && ai != nil:
		delta := math.Abs(*ml - *ai)
		if delta <= a.cfg.AgreementTolerance {
			lines = append(lines, fmt.Sprintf("ML and AI consensus agree (ML %.2f, AI %.2f)", *ml, *ai))
		} else {
			lines = append(lines, fmt.Sprintf("ML and AI consensus diverge by Δ=%.2f (ML %.2f, AI %.2f)", delta, *ml, *ai))
		}
	case ml != nil:
		lines = append(lines, fmt.Sprintf("ML-only consensus (ML %.2f); no AI judge contributed", *ml))
	case ai != nil:
		lines = append(lines, fmt.Sprintf("AI-only consensus (AI %.2f); no ML scorer contributed", *ai))
	}

	if len(excluded) > 0 {
		parts := make([]string, 0, len(excluded))
		for _, x := range excluded {
			parts = append(parts, fmt.Sprintf("%s %s", x.ScorerID, x.Status))
		}
		lines = append(lines, "Excluded: "+strings.Join(parts, "; "))
	}

	return strings.Join(lines, "\n")
}
