// Package ensemble assembles the scoring engine from configuration.
package ensemble

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	"github.com/bibbank/taxrisk/internal/infrastructure/llm"
	"github.com/bibbank/taxrisk/internal/infrastructure/ml"
)

// NewHTTPClient returns the client shared by every judge. Per-call deadlines come
// from the judge timeout, so the client timeout only bounds a stuck connection.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   2 * time.Minute,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Scorers builds one scorer per ensemble member: the anomaly scorer, the
// classification scorer, then each configured judge in file order.
func Scorers(cfg *config.ScoringConfig, registry *ml.Registry, client *http.Client, logger *slog.Logger) []service.Scorer {
	scorers := []service.Scorer{
		service.NewAnomalyScorer(registry.Anomaly(), cfg.ML.Calibration, cfg.ML.AnomalyWeight, logger),
		service.NewClassificationScorer(registry.Classifiers(), cfg.ML.ClassifierWeight, logger),
	}
	for _, j := range cfg.Judges {
		provider := llm.NewJudgeProvider(j, client, logger)
		scorers = append(scorers, service.NewAIJudge(j.Name, j.Weight, j.Timeout, provider, logger))
	}
	return scorers
}

// NewEngine wires estimator, scorers, and aggregator into a ready engine.
func NewEngine(
	cfg *config.ScoringConfig,
	registry *ml.Registry,
	client *http.Client,
	logger *slog.Logger,
	opts ...service.EngineOption,
) (*service.Engine, error) {
	agg, err := service.NewConsensusAggregator(cfg.Aggregator)
	if err != nil {
		return nil, err
	}
	scorers := Scorers(cfg, registry, client, logger)
	return service.NewEngine(service.NewRevenueEstimator(cfg.EffectiveBenchmarks()), agg, scorers, logger, opts...), nil
}

// ConfiguredJudges lists the judges that have credentials.
func ConfiguredJudges(cfg *config.ScoringConfig) []string {
	var names []string
	for _, j := range cfg.Judges {
		if j.APIKey() != "" {
			names = append(names, j.Name)
		}
	}
	return names
}
