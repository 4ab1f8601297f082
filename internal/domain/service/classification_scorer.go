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

// WeightedClassifier pairs a classifier with its fixed ensemble weight.
type WeightedClassifier struct {
	Classifier port.Classifier
	Weight     float64
}

// ClassificationScorer combines several supervised classifiers into one fraud probability.
type ClassificationScorer struct {
	classifiers []WeightedClassifier
	weight      float64
	logger      *slog.Logger
}

// NewClassificationScorer creates the scorer. Classifiers with a non-positive weight are ignored.
func NewClassificationScorer(classifiers []WeightedClassifier, weight float64, logger *slog.Logger) *ClassificationScorer {
	kept := make([]WeightedClassifier, 0, len(classifiers))
	for _, c := range classifiers {
		if c.Classifier != nil && c.Weight > 0 {
			kept = append(kept, c)
		}
	}
	return &ClassificationScorer{classifiers: kept, weight: weight, logger: logger}
}

func (s *ClassificationScorer) ID() string                     { return "classifier" }
func (s *ClassificationScorer) Group() valueobject.ScorerGroup { return valueobject.ScorerGroupML }

// Score returns sum(p*w)/sum(w) over classifiers whose inputs are present. A classifier
// that lacks features or errors is left out of this request only.
func (s *ClassificationScorer) Score(ctx context.Context, in ScoringInput) model.ScoreResult {
	if len(s.classifiers) == 0 {
		return model.NewUnavailableResult(s.ID(), s.Group(), s.weight, valueobject.ReasonModelUnavailable, "no classifiers loaded")
	}

	var (
		sumPW, sumW float64
		used, notes []string
		inferErrs   int
	)
	for _, wc := range s.classifiers {
		id := wc.Classifier.ID()
		required := wc.Classifier.RequiredFeatures()
		if missing := in.Features.Missing(required); len(missing) > 0 {
			notes = append(notes, fmt.Sprintf("%s excluded: missing %s", id, strings.Join(missing, ",")))
			continue
		}
		values, err := in.Features.Select(required)
		if err != nil {
			notes = append(notes, fmt.Sprintf("%s excluded: %v", id, err))
			continue
		}
		p, err := wc.Classifier.PredictProba(ctx, values)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			inferErrs++
			s.logger.Warn("classifier inference failed", "classifier", id, "error", err, "probability", p)
			notes = append(notes, fmt.Sprintf("%s excluded: inference error", id))
			continue
		}
		p = math.Max(0, math.Min(1, p))
		sumPW += p * wc.Weight
		sumW += wc.Weight
		used = append(used, fmt.Sprintf("%s=%.3f (w=%.2f)", id, p, wc.Weight))
	}

	if sumW == 0 {
		detail := strings.Join(notes, "; ")
		if inferErrs > 0 && inferErrs == len(s.classifiers) {
			return model.NewFailedResult(s.ID(), s.Group(), s.weight, valueobject.ReasonInferenceError, detail)
		}
		return model.NewUnavailableResult(s.ID(), s.Group(), s.weight, valueobject.ReasonMissingFeatures, detail)
	}

	combined := sumPW / sumW
	rationale := "classifiers " + strings.Join(used, ", ")
	if len(notes) > 0 {
		rationale += "; " + strings.Join(notes, "; ")
	}
	return model.NewOKResult(s.ID(), s.Group(), s.weight, combined, combined, rationale)
}
