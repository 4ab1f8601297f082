package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Tree ensemble aggregation modes.
const (
	AggregateMean     = "mean"
	AggregateLogitSum = "logit_sum"
)

type treeEnsembleArtifact struct {
	ID          string   `json:"id"`
	Features    []string `json:"features"`
	Aggregation string   `json:"aggregation"`
	BaseScore   float64  `json:"base_score"`
	Trees       []tree   `json:"trees"`
}

// TreeEnsemble is a serialized random forest (leaf probabilities averaged) or
// gradient-boosted ensemble (leaf margins summed, then a sigmoid).
type TreeEnsemble struct {
	id          string
	features    []string
	aggregation string
	baseScore   float64
	trees       []tree
}

// LoadTreeEnsemble reads a JSON tree ensemble artifact. id overrides the artifact's own id when set.
func LoadTreeEnsemble(path, id string) (*TreeEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree ensemble: %w", err)
	}
	var a treeEnsembleArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode tree ensemble: %w", err)
	}
	if len(a.Trees) == 0 || len(a.Features) == 0 {
		return nil, fmt.Errorf("tree ensemble %q has no trees or features", a.ID)
	}
	switch a.Aggregation {
	case "":
		a.Aggregation = AggregateMean
	case AggregateMean, AggregateLogitSum:
	default:
		return nil, fmt.Errorf("tree ensemble %q: unknown aggregation %q", a.ID, a.Aggregation)
	}
	if id != "" {
		a.ID = id
	}
	return &TreeEnsemble{
		id:          a.ID,
		features:    a.Features,
		aggregation: a.Aggregation,
		baseScore:   a.BaseScore,
		trees:       a.Trees,
	}, nil
}

func (e *TreeEnsemble) ID() string                 { return e.id }
func (e *TreeEnsemble) RequiredFeatures() []string { return append([]string(nil), e.features...) }

// PredictProba returns P(fraud) in [0,1].
func (e *TreeEnsemble) PredictProba(_ context.Context, values []float64) (float64, error) {
	if len(values) != len(e.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(e.features), len(values))
	}
	var sum float64
	for i, t := range e.trees {
		n, _, err := t.leaf(values)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += n.Value
	}
	if e.aggregation == AggregateLogitSum {
		return 1 / (1 + math.Exp(-(e.baseScore + sum))), nil
	}
	return math.Max(0, math.Min(1, sum/float64(len(e.trees)))), nil
}
