package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/domain/model"
	pkgkafka "github.com/bibbank/taxrisk/pkg/kafka"
)

// TenantHeader carries the tenant when the message body does not.
const TenantHeader = "tenant_id"

// FilingScorer is satisfied by usecase.ScoreFiling.
type FilingScorer interface {
	Execute(ctx context.Context, req dto.ScoreFilingRequest) (dto.VerdictResponse, error)
}

// NewFilingHandler returns a consumer handler that scores each submitted filing.
// Undecodable or invalid filings are permanent failures; everything else may be retried.
func NewFilingHandler(scorer FilingScorer, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, msg pkgkafka.Message) error {
		req, err := decodeFiling(msg)
		if err != nil {
			return pkgkafka.Permanent(err)
		}

		resp, err := scorer.Execute(ctx, req)
		if err != nil {
			if errors.Is(err, model.ErrValidation) {
				return pkgkafka.Permanent(err)
			}
			return err
		}

		logger.InfoContext(ctx, "filing scored",
			slog.String("verdict_id", resp.ID.String()),
			slog.String("business_id", resp.BusinessID),
			slog.String("risk_tier", resp.RiskTier),
			slog.Float64("final_score", resp.FinalScore),
			slog.Bool("partial", resp.Partial),
		)
		return nil
	}
}

func decodeFiling(msg pkgkafka.Message) (dto.ScoreFilingRequest, error) {
	var req dto.ScoreFilingRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return req, fmt.Errorf("failed to decode filing message: %w", err)
	}
	if req.TenantID == uuid.Nil {
		if h, ok := msg.Headers[TenantHeader]; ok {
			id, err := uuid.Parse(h)
			if err != nil {
				return req, fmt.Errorf("invalid %s header: %w", TenantHeader, err)
			}
			req.TenantID = id
		}
	}
	if req.TenantID == uuid.Nil {
		return req, fmt.Errorf("filing message has no tenant")
	}
	return req, nil
}
