package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/service"
)

func detect(t *testing.T, raw model.RawFiling) model.PatternReport {
	t.Helper()
	p, err := model.NewBusinessProfile(raw)
	require.NoError(t, err)
	est, err := service.NewRevenueEstimator(nil).ExpectedRevenue(p)
	require.NoError(t, err)
	return service.NewPatternDetector(nil).Detect(p, est)
}

func checkOf(t *testing.T, r model.PatternReport, patternType string) model.PatternCheck {
	t.Helper()
	for _, c := range r.Checks() {
		if c.Type == patternType {
			return c
		}
	}
	require.Failf(t, "check not run", "%s", patternType)
	return model.PatternCheck{}
}

func matchedTypes(r model.PatternReport) []string {
	var out []string
	for _, c := range r.Matched() {
		out = append(out, c.Type)
	}
	return out
}

func TestPatternDetector_ChecksPerCategory(t *testing.T) {
	corp := detect(t, model.RawFiling{BusinessID: "C", Category: "CORPORATE", DeclaredAnnualRevenue: ptr(4750000.0), FloorAreaSqft: ptr(1000.0)})
	vendor := detect(t, model.RawFiling{BusinessID: "V", Category: "TEA_STALL", DailyRevenueMin: ptr(1000.0), DailyRevenueMax: ptr(8000.0)})

	types := func(r model.PatternReport) []string {
		var out []string
		for _, c := range r.Checks() {
			out = append(out, c.Type)
		}
		return out
	}
	assert.Equal(t, []string{
		model.PatternShellCompany, model.PatternMoneyLaundering, model.PatternBlackMoney, model.PatternCircularTrading,
	}, types(corp))
	assert.Equal(t, []string{
		model.PatternFrontOperation, model.PatternMoneyLaundering, model.PatternBlackMoney, model.PatternCircularTrading,
	}, types(vendor))
}

func TestPatternDetector_Rules(t *testing.T) {
	tests := []struct {
		name       string
		raw        model.RawFiling
		pattern    string
		wantScore  float64
		indicators []string
	}{
		{
			name: "shell company",
			raw: model.RawFiling{
				BusinessID: "SHL-1", Category: "CORPORATE",
				DeclaredAnnualRevenue: ptr(20000000.0), FloorAreaSqft: ptr(1000.0),
				NumEmployees: 2, YearsInOperation: 1,
			},
			pattern:   model.PatternShellCompany,
			wantScore: 80,
			indicators: []string{
				"Minimal employee count (2 for 1 outlet(s)) - paper company indicator",
				"High revenue with low operational footprint",
				"New company (1 year(s)) with unusually high revenue",
			},
		},
		{
			name: "money laundering through a cash business",
			raw: model.RawFiling{
				BusinessID: "JWL-1", Category: "JEWELRY",
				DeclaredAnnualRevenue: ptr(120000000.0), FloorAreaSqft: ptr(1000.0),
			},
			pattern:   model.PatternMoneyLaundering,
			wantScore: 55,
			indicators: []string{
				"Revenue significantly exceeds business capacity - possible integration of illicit funds",
				"Cash-intensive business with unusually high revenue",
			},
		},
		{
			name: "black money",
			raw: model.RawFiling{
				BusinessID: "RTL-1", Category: "RETAIL",
				DeclaredAnnualRevenue: ptr(500000.0), FloorAreaSqft: ptr(1000.0),
				DeclaredTaxPaid: ptr(5000.0), LifestyleAssets: ptr(6000000.0),
			},
			pattern:   model.PatternBlackMoney,
			wantScore: 90,
			indicators: []string{
				"Significantly under-reported revenue - likely cash hoarding",
				"Extremely low effective tax rate (1.0% against an expected 20.0%)",
				"Asset value far exceeds declared income capacity",
			},
		},
		{
			name: "circular trading",
			raw: model.RawFiling{
				BusinessID: "TRD-1", Category: "TRADING",
				DeclaredAnnualRevenue: ptr(60000000.0), FloorAreaSqft: ptr(1000.0),
				YearsInOperation: 2,
			},
			pattern:   model.PatternCircularTrading,
			wantScore: 90,
			indicators: []string{
				"Revenue massively exceeds operational capacity - possible fake invoices",
				"Trading business with inflated transactions",
				"New entity (2 year(s)) with massive transaction volume",
			},
		},
		{
			name: "front operation",
			raw: model.RawFiling{
				BusinessID: "TEA-1", Category: "TEA_STALL",
				DeclaredAnnualRevenue: ptr(6000000.0),
				DailyRevenueMin:       ptr(1000.0), DailyRevenueMax: ptr(8000.0),
				LifestyleExpenses: ptr(7000000.0), LifestyleAssets: ptr(20000000.0),
			},
			pattern:   model.PatternFrontOperation,
			wantScore: 85,
			indicators: []string{
				"Declared revenue 6000000.00 INR far exceeds what a Tea Stall typically earns",
				"Lifestyle spending 7000000.00 INR exceeds small vendor income",
				"Asset holdings 20000000.00 INR inconsistent with small vendor income",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := detect(t, tt.raw)

			c := checkOf(t, r, tt.pattern)
			assert.InDelta(t, tt.wantScore, c.Score, 1e-9)
			assert.Equal(t, tt.indicators, c.Indicators)
			assert.True(t, c.Matched())
			assert.Contains(t, matchedTypes(r), tt.pattern)

			var flagged int
			for _, rf := range r.RiskFactors() {
				if rf.Factor == model.PatternLabel(tt.pattern)+" Indicator" {
					flagged++
					assert.Equal(t, model.SeverityHigh, rf.Severity)
					assert.InDelta(t, tt.wantScore, rf.Score, 1e-9)
				}
			}
			assert.Equal(t, len(tt.indicators), flagged, "each indicator of a matched pattern is a risk factor")
		})
	}
}

func TestPatternDetector_LowTaxRateAloneDoesNotMatch(t *testing.T) {
	r := detect(t, model.RawFiling{
		BusinessID: "RTL-2", Category: "RETAIL",
		DeclaredAnnualRevenue: ptr(1750000.0), FloorAreaSqft: ptr(1000.0),
		DeclaredTaxPaid: ptr(17500.0),
	})

	c := checkOf(t, r, model.PatternBlackMoney)
	assert.InDelta(t, 25, c.Score, 1e-9)
	assert.False(t, c.Matched())
	assert.Empty(t, r.Matched())
	assert.Empty(t, r.RiskFactors())
}

func TestPatternDetector_CleanFiling(t *testing.T) {
	r := detect(t, model.RawFiling{
		BusinessID: "CORP-OK", Category: "CORPORATE",
		DeclaredAnnualRevenue: ptr(4750000.0), FloorAreaSqft: ptr(1000.0),
		NumEmployees: 50, YearsInOperation: 10, DeclaredTaxPaid: ptr(1200000.0),
	})

	for _, c := range r.Checks() {
		assert.Zero(t, c.Score, c.Type)
		assert.Empty(t, c.Indicators, c.Type)
	}
	assert.Empty(t, r.RiskFactors())
	assert.Zero(t, r.PatternScore())
}

func TestPatternDetector_BenchmarkDeviations(t *testing.T) {
	r := detect(t, model.RawFiling{
		BusinessID: "CORP-DEV", Category: "CORPORATE",
		DeclaredAnnualRevenue: ptr(500000.0), FloorAreaSqft: ptr(1000.0),
		NumEmployees: 500,
	})

	factors := r.RiskFactors()
	require.Len(t, factors, 2)

	assert.Equal(t, "Employee Count Anomaly", factors[0].Factor)
	assert.Equal(t, model.SeverityMedium, factors[0].Severity)
	assert.Equal(t, "500 employees outside expected range 10-100", factors[0].Description)
	assert.InDelta(t, 100, factors[0].Score, 1e-9)

	assert.Equal(t, "Revenue Anomaly", factors[1].Factor)
	assert.Equal(t, model.SeverityMedium, factors[1].Severity)
	assert.Equal(t, "Revenue 500000.00 INR outside expected range 1500000.00 INR to 8000000.00 INR", factors[1].Description)
	assert.InDelta(t, 4250000.0/4750000.0*50, factors[1].Score, 1e-9)
}

func TestPatternDetector_RiskFactorsOrderedByScore(t *testing.T) {
	r := detect(t, model.RawFiling{
		BusinessID: "SHL-2", Category: "CORPORATE",
		DeclaredAnnualRevenue: ptr(20000000.0), FloorAreaSqft: ptr(1000.0),
		NumEmployees: 2, YearsInOperation: 1,
	})

	var got []string
	for _, rf := range r.RiskFactors() {
		got = append(got, rf.Factor)
	}
	assert.Equal(t, []string{
		"Revenue Anomaly",
		"Shell Company Indicator",
		"Shell Company Indicator",
		"Shell Company Indicator",
		"Employee Count Anomaly",
	}, got)
	assert.Equal(t, model.SeverityHigh, r.RiskFactors()[0].Severity)
	assert.InDelta(t, 80, r.PatternScore(), 1e-9)
}

func TestPatternDetector_UsesConfiguredBenchmarks(t *testing.T) {
	p, err := model.NewBusinessProfile(model.RawFiling{
		BusinessID: "RTL-3", Category: "RETAIL",
		DeclaredAnnualRevenue: ptr(1750000.0), FloorAreaSqft: ptr(1000.0),
		DeclaredTaxPaid: ptr(17500.0),
	})
	require.NoError(t, err)
	table := service.DefaultBenchmarks().Merge(service.BenchmarkTable{
		"RETAIL": {ExpectedTaxRate: service.Range{Low: 0, High: 0.02}},
	})
	est, err := service.NewRevenueEstimator(table).ExpectedRevenue(p)
	require.NoError(t, err)

	c := checkOf(t, service.NewPatternDetector(table).Detect(p, est), model.PatternBlackMoney)
	assert.Zero(t, c.Score, "a 1 percent rate clears 30 percent of a 1 percent benchmark")
}
