package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/internal/infrastructure/postgres"
	"github.com/bibbank/taxrisk/pkg/money"
	"github.com/bibbank/taxrisk/pkg/testutil"
)

var _ port.VerdictRepository = (*postgres.VerdictRepository)(nil)

func TestNewVerdictRepository(t *testing.T) {
	assert.NotNil(t, postgres.NewVerdictRepository(nil))
}

func ptr[T any](v T) *T { return &v }

func vendorRecord(t *testing.T, tenantID uuid.UUID, final float64, tier valueobject.RiskTier) *model.VerdictRecord {
	t.Helper()

	profile, err := model.NewBusinessProfile(model.RawFiling{
		BusinessID:            testutil.TestVendorBusinessID,
		Category:              "STREET_VENDOR_GOODS",
		DeclaredAnnualRevenue: ptr(50000.0),
		NumOutlets:            2,
		DailyRevenueMin:       ptr(500.0),
		DailyRevenueMax:       ptr(15000.0),
	})
	require.NoError(t, err)

	inr := money.MustCurrency("INR")
	estimate, err := model.NewRevenueEstimate(
		money.FromFloat(300000, inr), money.FromFloat(9000000, inr), model.MethodDailyRange)
	require.NoError(t, err)

	contributing := []model.ScoreResult{
		model.NewOKResult("openai", valueobject.ScorerGroupAI, 0.9, 92, 0.92, "Declared revenue is about 1% of expected."),
		model.NewOKResult("anomaly", valueobject.ScorerGroupML, 0.3, 0.71, 0.88, "isolation forest path length"),
	}
	excluded := []model.ExcludedScorer{
		{ScorerID: "gemini", Group: valueobject.ScorerGroupAI, Status: valueobject.Unavailable(valueobject.ReasonNoCredentials, "no credentials configured")},
	}
	verdict := model.NewConsensusVerdict(final, tier, contributing, excluded, ptr(0.88), ptr(0.92),
		"[openai, weight 0.90] Declared revenue is about 1% of expected.")

	patterns := model.NewPatternReport(
		[]model.PatternCheck{
			{Type: model.PatternFrontOperation, Score: 0},
			{Type: model.PatternBlackMoney, Score: 60, Indicators: []string{
				"Significantly under-reported revenue - likely cash hoarding",
				"Asset value far exceeds declared income capacity",
			}},
		},
		[]model.RiskFactor{
			{Factor: "Black Money Indicator", Severity: model.SeverityHigh, Description: "Significantly under-reported revenue - likely cash hoarding", Score: 60},
			{Factor: "Revenue Anomaly", Severity: model.SeverityMedium, Description: "Revenue 50000.00 INR outside expected range", Score: 49.46},
		},
	)

	record, err := model.NewVerdictRecord(tenantID, profile, estimate, ptr(0.0107), verdict, patterns)
	require.NoError(t, err)
	return record
}

func TestVerdictRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pg := testutil.StartPostgres(ctx, t, "../../../migrations")

	repo := postgres.NewVerdictRepository(pg.Pool)

	t.Run("save and find by id", func(t *testing.T) {
		record := vendorRecord(t, testutil.TestTenantID, 0.9, valueobject.RiskTierCritical)
		require.NoError(t, repo.Save(ctx, record))

		got, err := repo.FindByID(ctx, testutil.TestTenantID, record.ID())
		require.NoError(t, err)
		testutil.AssertVerdictRecordsEqual(t, record, got)

		gap, ok := got.GapRatio()
		require.True(t, ok)
		assert.InDelta(t, 0.0107, gap, 1e-12)
		ai, ok := got.Verdict().AIGroupScore()
		require.True(t, ok)
		assert.InDelta(t, 0.92, ai, 1e-12)
		assert.Empty(t, got.DomainEvents(), "reconstructed records carry no events")
	})

	t.Run("other tenant cannot see the verdict", func(t *testing.T) {
		record := vendorRecord(t, testutil.TestTenantID, 0.4, valueobject.RiskTierMedium)
		require.NoError(t, repo.Save(ctx, record))

		got, err := repo.FindByID(ctx, testutil.TestOtherTenantID, record.ID())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		got, err := repo.FindByID(ctx, testutil.TestTenantID, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("history is newest first and paged", func(t *testing.T) {
		tenant := uuid.New()
		var saved []*model.VerdictRecord
		for _, score := range []float64{0.1, 0.5, 0.7} {
			r := vendorRecord(t, tenant, score, valueobject.DefaultTierThresholds().Tier(score))
			require.NoError(t, repo.Save(ctx, r))
			saved = append(saved, r)
		}

		all, err := repo.FindByBusinessID(ctx, tenant, testutil.TestVendorBusinessID, 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, saved[2].ID(), all[0].ID())
		assert.Equal(t, saved[0].ID(), all[2].ID())
		assert.Len(t, all[0].Verdict().ExcludedScorers(), 1)

		page, err := repo.FindByBusinessID(ctx, tenant, testutil.TestVendorBusinessID, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, saved[1].ID(), page[0].ID())

		none, err := repo.FindByBusinessID(ctx, tenant, testutil.TestRetailBusinessID, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}
