package ml_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	"github.com/bibbank/taxrisk/internal/infrastructure/ml"
)

// One split on feature 0 at 0.5. Low values isolate immediately (anomalous),
// high values land in a large leaf (normal).
const forestJSON = `{
  "id": "iforest_v1",
  "features": ["revenue_gap_ratio"],
  "sample_size": 256,
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 0.5, "left": 1, "right": 2},
      {"left": -1, "right": -1, "size": 1},
      {"left": -1, "right": -1, "size": 255}
    ]}
  ]
}`

const forestJSONBadChild = `{
  "features": ["a"], "sample_size": 16,
  "trees": [{"nodes": [{"feature": 0, "threshold": 1, "left": 7, "right": 8}]}]
}`

const rfJSON = `{
  "id": "rf_v3",
  "features": ["revenue_gap_ratio", "is_small_vendor"],
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 0.3, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": 0.9},
      {"left": -1, "right": -1, "value": 0.2}
    ]},
    {"nodes": [
      {"feature": 1, "threshold": 0.5, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": 0.4},
      {"left": -1, "right": -1, "value": 0.7}
    ]}
  ]
}`

const gbJSON = `{
  "features": ["revenue_gap_ratio"],
  "aggregation": "logit_sum",
  "base_score": 0,
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 0.3, "left": 1, "right": 2},
      {"left": -1, "right": -1, "value": 2.0},
      {"left": -1, "right": -1, "value": -2.0}
    ]}
  ]
}`

func writeArtifact(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestIsolationForest(t *testing.T) {
	f, err := ml.LoadIsolationForest(writeArtifact(t, "iforest.json", forestJSON))
	require.NoError(t, err)

	assert.Equal(t, "iforest_v1", f.ID())
	assert.Equal(t, []string{"revenue_gap_ratio"}, f.RequiredFeatures())

	anomalous, err := f.Score(context.Background(), []float64{0.01})
	require.NoError(t, err)
	normal, err := f.Score(context.Background(), []float64{1.0})
	require.NoError(t, err)

	assert.Greater(t, anomalous, 0.5)
	assert.Less(t, normal, anomalous)
	assert.LessOrEqual(t, anomalous, 1.0)

	_, err = f.Score(context.Background(), []float64{1, 2})
	assert.Error(t, err)
}

func TestIsolationForest_InvalidArtifacts(t *testing.T) {
	_, err := ml.LoadIsolationForest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ml.LoadIsolationForest(writeArtifact(t, "bad.json", "{"))
	assert.Error(t, err)

	_, err = ml.LoadIsolationForest(writeArtifact(t, "empty.json", `{"features": ["a"], "sample_size": 16, "trees": []}`))
	assert.Error(t, err)

	f, err := ml.LoadIsolationForest(writeArtifact(t, "child.json", forestJSONBadChild))
	require.NoError(t, err)
	_, err = f.Score(context.Background(), []float64{0})
	assert.ErrorContains(t, err, "invalid child")
}

func TestTreeEnsemble(t *testing.T) {
	t.Run("random forest averages leaves", func(t *testing.T) {
		rf, err := ml.LoadTreeEnsemble(writeArtifact(t, "rf.json", rfJSON), "random_forest")
		require.NoError(t, err)
		assert.Equal(t, "random_forest", rf.ID())

		p, err := rf.PredictProba(context.Background(), []float64{0.01, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.8, p, 1e-9)
	})

	t.Run("boosted ensemble applies sigmoid", func(t *testing.T) {
		gb, err := ml.LoadTreeEnsemble(writeArtifact(t, "gb.json", gbJSON), "")
		require.NoError(t, err)

		hi, err := gb.PredictProba(context.Background(), []float64{0.1})
		require.NoError(t, err)
		lo, err := gb.PredictProba(context.Background(), []float64{0.9})
		require.NoError(t, err)
		assert.InDelta(t, 0.8808, hi, 1e-4)
		assert.InDelta(t, 0.1192, lo, 1e-4)
	})

	t.Run("unknown aggregation", func(t *testing.T) {
		_, err := ml.LoadTreeEnsemble(writeArtifact(t, "x.json", `{"features":["a"],"aggregation":"vote","trees":[{"nodes":[{"left":-1,"right":-1}]}]}`), "")
		assert.Error(t, err)
	})
}

func TestLoadRegistry(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.MLConfig{
		AnomalyModelPath: writeArtifact(t, "iforest.json", forestJSON),
		Classifiers: []config.ClassifierConfig{
			{ID: "random_forest", Path: writeArtifact(t, "rf.json", rfJSON), Format: config.FormatTreeEnsemble, Weight: 0.35},
			{ID: "missing", Path: filepath.Join(t.TempDir(), "none.json"), Format: config.FormatTreeEnsemble, Weight: 0.35},
			{ID: "onnx_without_features", Path: "model.onnx", Format: config.FormatONNX, Weight: 0.3},
		},
	}

	r := ml.LoadRegistry(cfg, logger)
	t.Cleanup(func() { _ = r.Close() })

	require.NotNil(t, r.Anomaly())
	require.Len(t, r.Classifiers(), 1)
	assert.Equal(t, 0.35, r.Classifiers()[0].Weight)
	assert.Equal(t, []string{"iforest_v1", "random_forest"}, r.Loaded())
}

func TestLoadRegistry_Empty(t *testing.T) {
	r := ml.LoadRegistry(config.MLConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Nil(t, r.Anomaly())
	assert.Empty(t, r.Classifiers())
	assert.NoError(t, r.Close())
}
