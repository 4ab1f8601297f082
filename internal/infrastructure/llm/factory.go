package llm

import (
	"log/slog"
	"net/http"

	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/infrastructure/config"
)

// NewJudgeProvider builds the breaker-guarded provider for one judge. It returns
// nil when the judge has no credential, which the judge reports as Unavailable.
func NewJudgeProvider(cfg config.JudgeConfig, client *http.Client, logger *slog.Logger) port.JudgeProvider {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		logger.Warn("judge has no credentials; it will be reported unavailable",
			slog.String("judge", cfg.Name),
			slog.String("api_key_env", cfg.APIKeyEnv),
		)
		return nil
	}

	var p port.JudgeProvider
	switch cfg.Type {
	case config.ProviderAnthropic:
		p = NewAnthropic(cfg.BaseURL, apiKey, cfg.Model, client)
	case config.ProviderGemini:
		p = NewGemini(cfg.BaseURL, apiKey, cfg.Model, client)
	default:
		p = NewOpenAI(cfg.BaseURL, apiKey, cfg.Model, client)
	}

	return NewBreakerProvider(p, BreakerSettings{
		Interval:         cfg.Breaker.Interval,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		HalfOpenRequests: cfg.Breaker.HalfOpenRequests,
	}, logger)
}
