package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/pkg/events"
)

// VerdictRepository defines the persistence port for scored filings.
type VerdictRepository interface {
	// Save persists a verdict record.
	Save(ctx context.Context, record *model.VerdictRecord) error

	// FindByID retrieves a verdict by its identifier. Returns nil, nil when absent.
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.VerdictRecord, error)

	// FindByBusinessID lists verdicts for one business, newest first.
	FindByBusinessID(ctx context.Context, tenantID uuid.UUID, businessID string, limit, offset int) ([]*model.VerdictRecord, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// AnomalyModel is a pre-trained unsupervised model. Higher raw scores are more anomalous.
type AnomalyModel interface {
	ID() string
	RequiredFeatures() []string
	Score(ctx context.Context, values []float64) (float64, error)
}

// Classifier is a pre-trained binary classifier returning P(fraud).
type Classifier interface {
	ID() string
	RequiredFeatures() []string
	PredictProba(ctx context.Context, values []float64) (float64, error)
}

// JudgeRequest is the prompt handed to an LLM provider.
type JudgeRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// JudgeProvider sends one completion request to an LLM backend and returns its text.
type JudgeProvider interface {
	Name() string
	Complete(ctx context.Context, req JudgeRequest) (string, error)
}
