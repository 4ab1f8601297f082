package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
)

// ScoreFiling is the use case for scoring a tax filing and recording the verdict.
type ScoreFiling struct {
	repo      port.VerdictRepository
	publisher port.EventPublisher
	engine    *service.Engine
}

// NewScoreFiling creates a new ScoreFiling use case.
func NewScoreFiling(
	repo port.VerdictRepository,
	publisher port.EventPublisher,
	engine *service.Engine,
) *ScoreFiling {
	return &ScoreFiling{
		repo:      repo,
		publisher: publisher,
		engine:    engine,
	}
}

// Execute normalizes the filing, runs the scoring engine, persists the verdict, and publishes events.
func (uc *ScoreFiling) Execute(ctx context.Context, req dto.ScoreFilingRequest) (dto.VerdictResponse, error) {
	// 1. Normalize the raw filing.
	profile, err := model.NewBusinessProfile(req.Filing)
	if err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to normalize filing: %w", err)
	}

	// 2. Run every scorer and aggregate.
	ev, err := uc.engine.Evaluate(ctx, profile)
	if err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to score filing: %w", err)
	}

	// 3. Create the verdict aggregate.
	record, err := model.NewVerdictRecord(req.TenantID, profile, ev.Estimate, ev.GapRatio, ev.Verdict, ev.Patterns)
	if err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to create verdict record: %w", err)
	}

	// 4. Persist.
	if err := uc.repo.Save(ctx, record); err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to save verdict: %w", err)
	}

	// 5. Publish domain events.
	events := record.DomainEvents()
	if len(events) > 0 {
		if err := uc.publisher.Publish(ctx, events...); err != nil {
			return dto.VerdictResponse{}, fmt.Errorf("failed to publish events: %w", err)
		}
	}

	return dto.FromModel(record), nil
}
