package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// DefaultJudgeTimeout bounds a single LLM call when none is configured.
const DefaultJudgeTimeout = 30 * time.Second

// AIJudge asks one LLM provider for a risk assessment.
type AIJudge struct {
	name     string
	weight   float64
	timeout  time.Duration
	provider port.JudgeProvider
	logger   *slog.Logger
}

// NewAIJudge creates a judge. A nil provider means no credentials were configured:
// the judge reports Unavailable and never makes a call.
func NewAIJudge(name string, weight float64, timeout time.Duration, provider port.JudgeProvider, logger *slog.Logger) *AIJudge {
	if timeout <= 0 {
		timeout = DefaultJudgeTimeout
	}
	return &AIJudge{name: name, weight: weight, timeout: timeout, provider: provider, logger: logger}
}

func (j *AIJudge) ID() string                     { return j.name }
func (j *AIJudge) Group() valueobject.ScorerGroup { return valueobject.ScorerGroupAI }
func (j *AIJudge) Weight() float64                { return j.weight }

// Configured reports whether the judge has a provider.
func (j *AIJudge) Configured() bool { return j.provider != nil }

// Score prompts the provider under the judge's own timeout and parses the reply.
func (j *AIJudge) Score(ctx context.Context, in ScoringInput) model.ScoreResult {
	if j.provider == nil {
		return model.NewUnavailableResult(j.name, j.Group(), j.weight, valueobject.ReasonNoCredentials, "no credentials configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	reply, err := j.provider.Complete(callCtx, BuildJudgePrompt(in))
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			j.logger.Warn("judge timed out", "judge", j.name, "timeout", j.timeout)
			return model.NewUnavailableResult(j.name, j.Group(), j.weight, valueobject.ReasonTimeout,
				fmt.Sprintf("no reply within %s", j.timeout))
		}
		j.logger.Warn("judge provider error", "judge", j.name, "error", err)
		return model.NewUnavailableResult(j.name, j.Group(), j.weight, valueobject.ReasonProviderError, err.Error())
	}

	v, err := ParseJudgeResponse(reply)
	if err != nil {
		j.logger.Warn("judge reply rejected", "judge", j.name, "error", err)
		return model.NewFailedResult(j.name, j.Group(), j.weight, valueobject.ReasonParseError, err.Error())
	}

	return model.NewOKResult(j.name, j.Group(), j.weight, v.RiskScore, v.RiskScore/100, v.Rationale)
}
