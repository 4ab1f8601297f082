package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bibbank/taxrisk/internal/application/dto"
	"github.com/bibbank/taxrisk/internal/domain/port"
)

var (
	// ErrVerdictNotFound is returned when no verdict matches the lookup.
	ErrVerdictNotFound = errors.New("verdict not found")
	// ErrInvalidRequest marks a request the use case refuses before touching storage.
	ErrInvalidRequest = errors.New("invalid request")
)

// DefaultListLimit caps a history page when the caller gives no limit.
const DefaultListLimit = 50

// GetVerdict is the use case for retrieving an existing verdict.
type GetVerdict struct {
	repo port.VerdictRepository
}

// NewGetVerdict creates a new GetVerdict use case.
func NewGetVerdict(repo port.VerdictRepository) *GetVerdict {
	return &GetVerdict{repo: repo}
}

// Execute retrieves a verdict by ID.
func (uc *GetVerdict) Execute(ctx context.Context, req dto.GetVerdictRequest) (dto.VerdictResponse, error) {
	record, err := uc.repo.FindByID(ctx, req.TenantID, req.VerdictID)
	if err != nil {
		return dto.VerdictResponse{}, fmt.Errorf("failed to find verdict: %w", err)
	}
	if record == nil {
		return dto.VerdictResponse{}, fmt.Errorf("%w: %s", ErrVerdictNotFound, req.VerdictID)
	}

	return dto.FromModel(record), nil
}

// ListVerdicts is the use case for a business's verdict history.
type ListVerdicts struct {
	repo port.VerdictRepository
}

// NewListVerdicts creates a new ListVerdicts use case.
func NewListVerdicts(repo port.VerdictRepository) *ListVerdicts {
	return &ListVerdicts{repo: repo}
}

// Execute lists verdicts for one business, newest first.
func (uc *ListVerdicts) Execute(ctx context.Context, req dto.ListVerdictsRequest) (dto.ListVerdictsResponse, error) {
	if req.BusinessID == "" {
		return dto.ListVerdictsResponse{}, fmt.Errorf("%w: business ID is required", ErrInvalidRequest)
	}
	limit := req.Limit
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	offset := max(req.Offset, 0)

	records, err := uc.repo.FindByBusinessID(ctx, req.TenantID, req.BusinessID, limit, offset)
	if err != nil {
		return dto.ListVerdictsResponse{}, fmt.Errorf("failed to list verdicts: %w", err)
	}

	resp := dto.ListVerdictsResponse{Verdicts: make([]dto.VerdictResponse, 0, len(records))}
	for _, r := range records {
		resp.Verdicts = append(resp.Verdicts, dto.FromModel(r))
	}
	return resp, nil
}
