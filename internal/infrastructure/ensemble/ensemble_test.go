package ensemble_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/internal/infrastructure/config"
	"github.com/bibbank/taxrisk/internal/infrastructure/ensemble"
	"github.com/bibbank/taxrisk/internal/infrastructure/ml"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func vendorProfile(t *testing.T) model.BusinessProfile {
	t.Helper()
	declared, lo, hi := 50000.0, 500.0, 15000.0
	p, err := model.NewBusinessProfile(model.RawFiling{
		BusinessID:            "VND-001",
		Category:              "STREET_VENDOR_GOODS",
		DeclaredAnnualRevenue: &declared,
		NumOutlets:            2,
		DailyRevenueMin:       &lo,
		DailyRevenueMax:       &hi,
	})
	require.NoError(t, err)
	return p
}

func scoringConfig(t *testing.T, judgeURL string) *config.ScoringConfig {
	t.Helper()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")
	t.Setenv("TEST_ANTHROPIC_KEY", "")
	cfg, err := config.ParseScoring([]byte(`
judges:
  - name: openai
    base_url: ` + judgeURL + `
    api_key_env: TEST_OPENAI_KEY
  - name: anthropic
    api_key_env: TEST_ANTHROPIC_KEY
`))
	require.NoError(t, err)
	return cfg
}

func TestScorers_Order(t *testing.T) {
	cfg := scoringConfig(t, "http://127.0.0.1:1")
	scorers := ensemble.Scorers(cfg, ml.NewRegistry(nil, nil), ensemble.NewHTTPClient(), testLogger())

	ids := make([]string, 0, len(scorers))
	for _, s := range scorers {
		ids = append(ids, s.ID())
	}
	assert.Equal(t, []string{"anomaly", "classifier", "openai", "anthropic"}, ids)
	assert.Equal(t, []string{"openai"}, ensemble.ConfiguredJudges(cfg))
}

func TestNewEngine_JudgeOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		reply := `{"risk_score": 90, "rationale": "Declared revenue is far below the vendor range."}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	defer srv.Close()

	engine, err := ensemble.NewEngine(scoringConfig(t, srv.URL), ml.NewRegistry(nil, nil), srv.Client(), testLogger())
	require.NoError(t, err)

	ev, err := engine.Evaluate(context.Background(), vendorProfile(t))
	require.NoError(t, err)

	v := ev.Verdict
	assert.InDelta(t, 0.9, v.FinalScore(), 1e-9)
	assert.Equal(t, valueobject.RiskTierCritical, v.RiskTier())
	assert.True(t, v.IsPartial())

	excluded := map[string]string{}
	for _, x := range v.ExcludedScorers() {
		excluded[x.ScorerID] = x.Status.Code()
	}
	assert.Equal(t, valueobject.ReasonModelUnavailable, excluded["anomaly"])
	assert.Equal(t, valueobject.ReasonModelUnavailable, excluded["classifier"])
	assert.Equal(t, valueobject.ReasonNoCredentials, excluded["anthropic"])
}

func TestNewEngine_NothingConfigured(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	for i := range cfg.Judges {
		cfg.Judges[i].APIKeyEnv = "TEST_UNSET_KEY"
	}
	t.Setenv("TEST_UNSET_KEY", "")

	engine, err := ensemble.NewEngine(&cfg, ml.NewRegistry(nil, nil), ensemble.NewHTTPClient(), testLogger())
	require.NoError(t, err)

	_, err = engine.Evaluate(context.Background(), vendorProfile(t))
	assert.ErrorIs(t, err, service.ErrNoScorersAvailable)
}

func corporateProfile(t *testing.T) model.BusinessProfile {
	t.Helper()
	declared, area := 20000000.0, 5000.0
	p, err := model.NewBusinessProfile(model.RawFiling{
		BusinessID:            "CORP-001",
		Category:              "CORPORATE",
		DeclaredAnnualRevenue: &declared,
		FloorAreaSqft:         &area,
	})
	require.NoError(t, err)
	return p
}

func TestNewEngine_ShippedConfigEstimatesEveryCategory(t *testing.T) {
	cfg, err := config.LoadScoring(filepath.Join("..", "..", "..", "configs", "scoring.yaml"))
	require.NoError(t, err)

	engine, err := ensemble.NewEngine(cfg, ml.NewRegistry(nil, nil), ensemble.NewHTTPClient(), testLogger())
	require.NoError(t, err)

	est, err := engine.Estimator().ExpectedRevenue(corporateProfile(t))
	require.NoError(t, err)
	assert.Equal(t, model.MethodFloorArea, est.Method())
	assert.InDelta(t, 7500000, est.Low().Float64(), 1e-6)
	assert.InDelta(t, 40000000, est.High().Float64(), 1e-6)

	for _, c := range valueobject.AllCategories() {
		if c.IsSmallVendor() {
			continue
		}
		_, ok := engine.Estimator().Benchmarks().Lookup(c)
		assert.True(t, ok, c.String())
	}
}

func TestNewEngine_SingleOverrideKeepsOtherCategories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, os.WriteFile(path, []byte("benchmarks:\n  RETAIL:\n    revenue_per_sqft: {low: 100, high: 200}\n"), 0o600))
	cfg, err := config.LoadScoring(path)
	require.NoError(t, err)

	engine, err := ensemble.NewEngine(cfg, ml.NewRegistry(nil, nil), ensemble.NewHTTPClient(), testLogger())
	require.NoError(t, err)

	_, err = engine.Estimator().ExpectedRevenue(corporateProfile(t))
	require.NoError(t, err)

	retail, ok := engine.Estimator().Benchmarks().Lookup(valueobject.CategoryRetail)
	require.True(t, ok)
	assert.Equal(t, 200.0, retail.RevenuePerSqft.High)
	assert.Equal(t, 2000.0, retail.SqftPerOutlet.High)
}

func TestNewEngine_HandBuiltConfigGetsBuiltInTable(t *testing.T) {
	cfg := config.DefaultScoringConfig()
	cfg.Benchmarks = service.BenchmarkTable{}

	engine, err := ensemble.NewEngine(&cfg, ml.NewRegistry(nil, nil), ensemble.NewHTTPClient(), testLogger())
	require.NoError(t, err)

	_, err = engine.Estimator().ExpectedRevenue(corporateProfile(t))
	assert.NoError(t, err)
}
