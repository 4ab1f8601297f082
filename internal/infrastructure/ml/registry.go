package ml

import (
	"errors"
	"io"
	"log/slog"

	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/infrastructure/config"
)

// Registry holds the models loaded at startup. It is read-only after LoadRegistry.
type Registry struct {
	anomaly     port.AnomalyModel
	classifiers []service.WeightedClassifier
	closers     []io.Closer
}

// LoadRegistry loads every configured artifact. An artifact that fails to load is
// logged and left out, so its scorer reports Unavailable instead of blocking startup.
func LoadRegistry(cfg config.MLConfig, logger *slog.Logger) *Registry {
	r := &Registry{}

	if cfg.AnomalyModelPath != "" {
		forest, err := LoadIsolationForest(cfg.AnomalyModelPath)
		if err != nil {
			logger.Warn("anomaly model not loaded", slog.String("path", cfg.AnomalyModelPath), slog.String("error", err.Error()))
		} else {
			r.anomaly = forest
			logger.Info("anomaly model loaded", slog.String("model", forest.ID()), slog.Int("features", len(forest.RequiredFeatures())))
		}
	}

	for _, cc := range cfg.Classifiers {
		c, closer, err := loadClassifier(cc, cfg.ONNXRuntimeLib)
		if err != nil {
			logger.Warn("classifier not loaded", slog.String("classifier", cc.ID), slog.String("path", cc.Path), slog.String("error", err.Error()))
			continue
		}
		if closer != nil {
			r.closers = append(r.closers, closer)
		}
		r.classifiers = append(r.classifiers, service.WeightedClassifier{Classifier: c, Weight: cc.Weight})
		logger.Info("classifier loaded", slog.String("classifier", cc.ID), slog.String("format", cc.Format))
	}

	return r
}

func loadClassifier(cc config.ClassifierConfig, libPath string) (port.Classifier, io.Closer, error) {
	if cc.Format == config.FormatONNX {
		c, err := LoadONNXClassifier(cc.ID, cc.Path, libPath, cc.Features)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	}
	c, err := LoadTreeEnsemble(cc.Path, cc.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}

// NewRegistry builds a registry from already-constructed models.
func NewRegistry(anomaly port.AnomalyModel, classifiers []service.WeightedClassifier) *Registry {
	return &Registry{anomaly: anomaly, classifiers: append([]service.WeightedClassifier(nil), classifiers...)}
}

// Anomaly returns the anomaly model, or nil when none is loaded.
func (r *Registry) Anomaly() port.AnomalyModel { return r.anomaly }

// Classifiers returns the loaded classifiers with their ensemble weights.
func (r *Registry) Classifiers() []service.WeightedClassifier {
	return append([]service.WeightedClassifier(nil), r.classifiers...)
}

// Loaded lists the ids of every loaded model.
func (r *Registry) Loaded() []string {
	var ids []string
	if r.anomaly != nil {
		ids = append(ids, r.anomaly.ID())
	}
	for _, c := range r.classifiers {
		ids = append(ids, c.Classifier.ID())
	}
	return ids
}

// Close releases native resources held by loaded models.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
