package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/model"
)

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), expected)
}

// AssertVerdictRecordsEqual compares two records field by field. Timestamps are
// compared to the microsecond, the precision Postgres keeps.
func AssertVerdictRecordsEqual(t *testing.T, want, got *model.VerdictRecord) {
	t.Helper()
	require.NotNil(t, got)

	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.TenantID(), got.TenantID())
	assert.Equal(t, want.BusinessID(), got.BusinessID())
	assert.True(t, want.Category().Equal(got.Category()), "category %s != %s", want.Category(), got.Category())
	assert.True(t, want.Estimate().Low().Equal(got.Estimate().Low()), "estimate low")
	assert.True(t, want.Estimate().High().Equal(got.Estimate().High()), "estimate high")
	assert.Equal(t, want.Estimate().Method(), got.Estimate().Method())
	assert.WithinDuration(t, want.ScoredAt(), got.ScoredAt(), time.Microsecond)

	wd, wok := want.DeclaredRevenue()
	gd, gok := got.DeclaredRevenue()
	require.Equal(t, wok, gok, "declared revenue presence")
	if wok {
		assert.True(t, wd.Equal(gd), "declared %s != %s", wd, gd)
	}

	wv, gv := want.Verdict(), got.Verdict()
	assert.InDelta(t, wv.FinalScore(), gv.FinalScore(), 1e-12)
	assert.Equal(t, wv.RiskTier(), gv.RiskTier())
	assert.Equal(t, wv.Explanation(), gv.Explanation())
	assert.Equal(t, wv.ContributingScores(), gv.ContributingScores())
	assert.Equal(t, wv.ExcludedScorers(), gv.ExcludedScorers())

	assert.Equal(t, want.Patterns().Checks(), got.Patterns().Checks())
	assert.Equal(t, want.Patterns().RiskFactors(), got.Patterns().RiskFactors())
}
