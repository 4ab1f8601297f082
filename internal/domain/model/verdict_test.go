package model_test

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/event"
	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/pkg/money"
)

func TestNewOKResult_ClampsAndRejectsNonFinite(t *testing.T) {
	r := model.NewOKResult("iforest", valueobject.ScorerGroupML, 1.4, 3.2, 1.7, "")
	assert.True(t, r.Status().IsOK())
	assert.Equal(t, 1.0, r.NormalizedScore())
	assert.Equal(t, 1.0, r.ConfidenceWeight())

	r = model.NewOKResult("iforest", valueobject.ScorerGroupML, 0.5, -1, -0.2, "")
	assert.Equal(t, 0.0, r.NormalizedScore())

	r = model.NewOKResult("iforest", valueobject.ScorerGroupML, 0.5, math.NaN(), 0.5, "")
	assert.True(t, r.Status().IsFailed())
	assert.Equal(t, valueobject.ReasonInvalidScore, r.Status().Code())
}

func TestFeatureVector(t *testing.T) {
	_, err := model.NewFeatureVector(map[string]float64{"a": math.Inf(1)})
	require.Error(t, err)

	src := map[string]float64{"b": 2, "a": 1}
	fv, err := model.NewFeatureVector(src)
	require.NoError(t, err)
	src["a"] = 99

	v, ok := fv.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, v, "vector must not alias the input map")
	assert.Equal(t, []string{"a", "b"}, fv.Names())
	assert.Equal(t, []string{"c"}, fv.Missing([]string{"a", "c"}))

	got, err := fv.Select([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, got)

	_, err = fv.Select([]string{"z"})
	assert.Error(t, err)
}

func TestRevenueEstimate(t *testing.T) {
	_, err := model.NewRevenueEstimate(money.FromFloat(10, money.INR), money.FromFloat(5, money.INR), model.MethodOutlets)
	require.Error(t, err)

	e, err := model.NewRevenueEstimate(money.FromFloat(100, money.INR), money.FromFloat(300, money.INR), model.MethodOutlets)
	require.NoError(t, err)
	assert.True(t, e.Midpoint().Equal(money.FromFloat(200, money.INR)))
}

func newVerdict(tier valueobject.RiskTier, score float64) model.ConsensusVerdict {
	ml := score
	return model.NewConsensusVerdict(
		score, tier,
		[]model.ScoreResult{model.NewOKResult("iforest", valueobject.ScorerGroupML, 1, 0.1, score, "")},
		[]model.ExcludedScorer{{ScorerID: "openai", Group: valueobject.ScorerGroupAI, Status: valueobject.Unavailable(valueobject.ReasonNoCredentials, "")}},
		&ml, nil, "explanation",
	)
}

func TestConsensusVerdict_Immutable(t *testing.T) {
	v := newVerdict(valueobject.RiskTierLow, 0.1)

	scores := v.ContributingScores()
	scores[0] = model.ScoreResult{}
	assert.Equal(t, "iforest", v.ContributingScores()[0].ScorerID())

	ml, ok := v.MLGroupScore()
	assert.True(t, ok)
	assert.Equal(t, 0.1, ml)

	_, ok = v.AIGroupScore()
	assert.False(t, ok)
	assert.True(t, v.IsPartial())
}

func TestNewVerdictRecord_Events(t *testing.T) {
	p, err := model.NewBusinessProfile(vendorFiling())
	require.NoError(t, err)
	est, err := model.NewRevenueEstimate(money.FromFloat(300000, money.INR), money.FromFloat(9000000, money.INR), model.MethodDailyRange)
	require.NoError(t, err)
	gap := 0.01

	patterns := model.NewPatternReport([]model.PatternCheck{
		{Type: model.PatternBlackMoney, Score: 60, Indicators: []string{"Significantly under-reported revenue - likely cash hoarding"}},
		{Type: model.PatternMoneyLaundering, Score: 0},
	}, nil)

	t.Run("low tier emits one event", func(t *testing.T) {
		rec, err := model.NewVerdictRecord(uuid.New(), p, est, &gap, newVerdict(valueobject.RiskTierLow, 0.1), patterns)
		require.NoError(t, err)

		evts := rec.DomainEvents()
		require.Len(t, evts, 1)
		assert.Equal(t, event.EventTypeVerdictIssued, evts[0].EventType())
		assert.Equal(t, rec.ID().String(), evts[0].AggregateID())
		issued, ok := evts[0].(event.VerdictIssued)
		require.True(t, ok)
		assert.Equal(t, []string{model.PatternBlackMoney}, issued.MatchedPatterns)
		assert.Empty(t, rec.DomainEvents(), "events are cleared after read")

		g, ok := rec.GapRatio()
		assert.True(t, ok)
		assert.Equal(t, 0.01, g)
	})

	t.Run("critical tier emits alert", func(t *testing.T) {
		rec, err := model.NewVerdictRecord(uuid.New(), p, est, nil, newVerdict(valueobject.RiskTierCritical, 0.92), model.PatternReport{})
		require.NoError(t, err)

		evts := rec.DomainEvents()
		require.Len(t, evts, 2)
		assert.Equal(t, event.EventTypeCriticalRiskDetected, evts[1].EventType())
	})

	t.Run("nil tenant rejected", func(t *testing.T) {
		_, err := model.NewVerdictRecord(uuid.Nil, p, est, nil, newVerdict(valueobject.RiskTierLow, 0.1), model.PatternReport{})
		assert.ErrorContains(t, err, "tenant ID is required")
	})
}

func TestPatternReport(t *testing.T) {
	r := model.NewPatternReport(
		[]model.PatternCheck{
			{Type: model.PatternShellCompany, Score: 80, Indicators: []string{"a"}},
			{Type: model.PatternMoneyLaundering, Score: 30, Indicators: []string{"b"}},
			{Type: model.PatternCircularTrading, Score: 50, Indicators: []string{"c"}},
		},
		[]model.RiskFactor{
			{Factor: "Employee Count Anomaly", Score: 20},
			{Factor: "Revenue Anomaly", Score: 90},
			{Factor: "Shell Company Indicator", Score: 80},
		},
	)

	var matched []string
	for _, c := range r.Matched() {
		matched = append(matched, c.Type)
	}
	assert.Equal(t, []string{model.PatternShellCompany, model.PatternCircularTrading}, matched)
	assert.InDelta(t, 65, r.PatternScore(), 1e-9)

	var order []string
	for _, f := range r.RiskFactors() {
		order = append(order, f.Factor)
	}
	assert.Equal(t, []string{"Revenue Anomaly", "Shell Company Indicator", "Employee Count Anomaly"}, order)

	assert.Equal(t, "Circular Trading", model.PatternLabel(model.PatternCircularTrading))
	assert.Zero(t, model.PatternReport{}.PatternScore())
}
