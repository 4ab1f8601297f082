package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// --- mock anomaly model ---

type mockAnomalyModel struct {
	required []string
	scoreFn  func(ctx context.Context, values []float64) (float64, error)
}

func (m *mockAnomalyModel) ID() string                 { return "mock_iforest" }
func (m *mockAnomalyModel) RequiredFeatures() []string { return m.required }
func (m *mockAnomalyModel) Score(ctx context.Context, values []float64) (float64, error) {
	return m.scoreFn(ctx, values)
}

// --- mock classifier ---

type mockClassifier struct {
	id        string
	required  []string
	predictFn func(ctx context.Context, values []float64) (float64, error)
}

func (m *mockClassifier) ID() string                 { return m.id }
func (m *mockClassifier) RequiredFeatures() []string { return m.required }
func (m *mockClassifier) PredictProba(ctx context.Context, values []float64) (float64, error) {
	return m.predictFn(ctx, values)
}

func fixedClassifier(id string, p float64, required ...string) *mockClassifier {
	return &mockClassifier{
		id:       id,
		required: required,
		predictFn: func(context.Context, []float64) (float64, error) {
			return p, nil
		},
	}
}

// --- mock judge provider ---

type mockProvider struct {
	completeFn func(ctx context.Context, req port.JudgeRequest) (string, error)
}

func (m *mockProvider) Name() string { return "mock" }
func (m *mockProvider) Complete(ctx context.Context, req port.JudgeRequest) (string, error) {
	return m.completeFn(ctx, req)
}

func replyProvider(reply string) *mockProvider {
	return &mockProvider{completeFn: func(context.Context, port.JudgeRequest) (string, error) {
		return reply, nil
	}}
}

// --- mock scorer ---

type mockScorer struct {
	id      string
	group   valueobject.ScorerGroup
	scoreFn func(ctx context.Context, in service.ScoringInput) model.ScoreResult
}

func (m *mockScorer) ID() string                     { return m.id }
func (m *mockScorer) Group() valueobject.ScorerGroup { return m.group }
func (m *mockScorer) Score(ctx context.Context, in service.ScoringInput) model.ScoreResult {
	return m.scoreFn(ctx, in)
}

// --- fixtures ---

func vendorProfile(t *testing.T, outlets int) model.BusinessProfile {
	t.Helper()
	p, err := model.NewBusinessProfile(model.RawFiling{
		BusinessID:            "VND-001",
		Category:              "STREET_VENDOR_GOODS",
		DeclaredAnnualRevenue: ptr(50000.0),
		NumOutlets:            outlets,
		DailyRevenueMin:       ptr(500.0),
		DailyRevenueMax:       ptr(15000.0),
		Location:              "Mumbai",
	})
	require.NoError(t, err)
	return p
}

func scoringInput(t *testing.T) service.ScoringInput {
	t.Helper()
	p := vendorProfile(t, 2)
	est, err := service.NewRevenueEstimator(nil).ExpectedRevenue(p)
	require.NoError(t, err)
	declared, _ := p.DeclaredRevenue()
	gap, err := service.RevenueGapRatio(declared, est)
	require.NoError(t, err)
	patterns := service.NewPatternDetector(nil).Detect(p, est)
	fv, err := service.BuildFeatures(p, est, &gap, patterns)
	require.NoError(t, err)
	return service.ScoringInput{Profile: p, Estimate: est, GapRatio: &gap, Features: fv, Patterns: patterns}
}

func okResult(id string, group valueobject.ScorerGroup, weight, score float64, rationale string) model.ScoreResult {
	return model.NewOKResult(id, group, weight, score, score, rationale)
}
