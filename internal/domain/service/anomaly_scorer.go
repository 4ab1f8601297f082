package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// Calibration methods.
const (
	CalibrationSigmoid = "sigmoid"
	CalibrationMinMax  = "minmax"
)

// Calibration maps an unbounded raw anomaly score onto [0,1].
type Calibration struct {
	Method string  `yaml:"method"`
	Center float64 `yaml:"center"`
	Scale  float64 `yaml:"scale"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

// DefaultCalibration suits isolation-forest scores, where 0.5 is the usual decision boundary.
func DefaultCalibration() Calibration {
	return Calibration{Method: CalibrationSigmoid, Center: 0.5, Scale: 0.05}
}

// Normalize applies the calibration and clamps the result to [0,1].
func (c Calibration) Normalize(raw float64) float64 {
	var v float64
	switch c.Method {
	case CalibrationMinMax:
		span := c.Max - c.Min
		if span <= 0 {
			return 0
		}
		v = (raw - c.Min) / span
	default:
		scale := c.Scale
		if scale <= 0 {
			scale = 1
		}
		v = 1 / (1 + math.Exp(-(raw-c.Center)/scale))
	}
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// AnomalyScorer wraps an unsupervised model such as an isolation forest.
type AnomalyScorer struct {
	model       port.AnomalyModel
	calibration Calibration
	weight      float64
	logger      *slog.Logger
}

// NewAnomalyScorer creates the scorer. A nil model reports Unavailable on every call.
func NewAnomalyScorer(m port.AnomalyModel, calibration Calibration, weight float64, logger *slog.Logger) *AnomalyScorer {
	return &AnomalyScorer{model: m, calibration: calibration, weight: weight, logger: logger}
}

func (s *AnomalyScorer) ID() string                     { return "anomaly" }
func (s *AnomalyScorer) Group() valueobject.ScorerGroup { return valueobject.ScorerGroupML }

// Score runs the model over its required features.
func (s *AnomalyScorer) Score(ctx context.Context, in ScoringInput) model.ScoreResult {
	if s.model == nil {
		return model.NewUnavailableResult(s.ID(), s.Group(), s.weight, valueobject.ReasonModelUnavailable, "no anomaly model loaded")
	}

	required := s.model.RequiredFeatures()
	if missing := in.Features.Missing(required); len(missing) > 0 {
		return model.NewUnavailableResult(s.ID(), s.Group(), s.weight, valueobject.ReasonMissingFeatures, strings.Join(missing, ","))
	}
	values, err := in.Features.Select(required)
	if err != nil {
		return model.NewUnavailableResult(s.ID(), s.Group(), s.weight, valueobject.ReasonMissingFeatures, err.Error())
	}

	raw, err := s.model.Score(ctx, values)
	if err != nil {
		s.logger.Warn("anomaly model inference failed", "model", s.model.ID(), "error", err)
		return model.NewFailedResult(s.ID(), s.Group(), s.weight, valueobject.ReasonInferenceError, err.Error())
	}

	normalized := s.calibration.Normalize(raw)
	rationale := fmt.Sprintf("%s anomaly score %.3f (calibrated %.3f)", s.model.ID(), raw, normalized)
	return model.NewOKResult(s.ID(), s.Group(), s.weight, raw, normalized, rationale)
}
