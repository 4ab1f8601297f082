package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const eulerGamma = 0.5772156649

// treeNode is one node of a serialized tree. Leaves have Left == -1.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Size      int     `json:"size,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type tree struct {
	Nodes []treeNode `json:"nodes"`
}

// leaf walks the tree for x and returns the leaf node and its depth.
func (t tree) leaf(x []float64) (treeNode, int, error) {
	if len(t.Nodes) == 0 {
		return treeNode{}, 0, fmt.Errorf("empty tree")
	}
	idx, depth := 0, 0
	for {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return n, depth, nil
		}
		if n.Feature < 0 || n.Feature >= len(x) {
			return treeNode{}, 0, fmt.Errorf("node %d references feature %d of %d", idx, n.Feature, len(x))
		}
		next := n.Right
		if x[n.Feature] <= n.Threshold {
			next = n.Left
		}
		if next <= idx || next >= len(t.Nodes) {
			return treeNode{}, 0, fmt.Errorf("node %d has invalid child %d", idx, next)
		}
		idx = next
		depth++
	}
}

type isolationForestArtifact struct {
	ID         string   `json:"id"`
	Features   []string `json:"features"`
	SampleSize int      `json:"sample_size"`
	Trees      []tree   `json:"trees"`
}

// IsolationForest scores anomalies from a serialized isolation forest. Raw scores
// follow the usual convention: near 1 is anomalous, well below 0.5 is normal.
type IsolationForest struct {
	id       string
	features []string
	trees    []tree
	cn       float64
}

// LoadIsolationForest reads a JSON isolation forest artifact.
func LoadIsolationForest(path string) (*IsolationForest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read isolation forest: %w", err)
	}
	var a isolationForestArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode isolation forest: %w", err)
	}
	if len(a.Trees) == 0 || len(a.Features) == 0 {
		return nil, fmt.Errorf("isolation forest %q has no trees or features", a.ID)
	}
	if a.SampleSize < 2 {
		return nil, fmt.Errorf("isolation forest %q: sample_size must be at least 2", a.ID)
	}
	if a.ID == "" {
		a.ID = "isolation_forest"
	}
	return &IsolationForest{id: a.ID, features: a.Features, trees: a.Trees, cn: averagePathLength(a.SampleSize)}, nil
}

func (f *IsolationForest) ID() string                 { return f.id }
func (f *IsolationForest) RequiredFeatures() []string { return append([]string(nil), f.features...) }

// Score returns 2^(-E[h(x)]/c(n)).
func (f *IsolationForest) Score(_ context.Context, values []float64) (float64, error) {
	if len(values) != len(f.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(f.features), len(values))
	}
	var total float64
	for i, t := range f.trees {
		n, depth, err := t.leaf(values)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		total += float64(depth) + averagePathLength(n.Size)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/f.cn), nil
}

// averagePathLength is c(n), the expected path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
