package service

import (
	"fmt"
	"math"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
)

// Absolute revenue levels used by the new-entity rules, in the filing currency.
const (
	newCompanyRevenue    = 10_000_000
	newEntityTradeVolume = 50_000_000
)

// PatternDetector runs the deterministic fraud-pattern rules over a profile and its
// revenue estimate. It never calls out and holds no mutable state.
type PatternDetector struct {
	benchmarks BenchmarkTable
}

// NewPatternDetector creates a detector over the given benchmark table.
func NewPatternDetector(benchmarks BenchmarkTable) *PatternDetector {
	if benchmarks == nil {
		benchmarks = DefaultBenchmarks()
	}
	return &PatternDetector{benchmarks: benchmarks}
}

// filingFacts are the quantities every rule reads.
type filingFacts struct {
	profile     model.BusinessProfile
	estimate    model.RevenueEstimate
	bench       Benchmark
	declared    float64
	hasDeclared bool
	expected    float64
	// ratio is declared / expected midpoint; zero when either side is missing.
	ratio float64
}

// Detect runs every rule that applies to the profile's category. Shell company checks
// apply to established categories and front operation checks to small vendors.
func (d *PatternDetector) Detect(p model.BusinessProfile, est model.RevenueEstimate) model.PatternReport {
	f := filingFacts{profile: p, estimate: est, expected: est.Midpoint().Float64()}
	f.bench, _ = d.benchmarks.Lookup(p.Category())
	if declared, ok := p.DeclaredRevenue(); ok {
		f.declared, f.hasDeclared = declared.Float64(), true
		if f.expected > 0 {
			f.ratio = f.declared / f.expected
		}
	}

	var checks []model.PatternCheck
	if p.Category().IsSmallVendor() {
		checks = append(checks, frontOperation(f))
	} else {
		checks = append(checks, shellCompany(f))
	}
	checks = append(checks, moneyLaundering(f), blackMoney(f), circularTrading(f))

	var factors []model.RiskFactor
	for _, c := range checks {
		if !c.Matched() {
			continue
		}
		for _, ind := range c.Indicators {
			factors = append(factors, model.RiskFactor{
				Factor:      model.PatternLabel(c.Type) + " Indicator",
				Severity:    model.SeverityHigh,
				Description: ind,
				Score:       c.Score,
			})
		}
	}
	if rf, ok := revenueDeviation(f); ok {
		factors = append(factors, rf)
	}
	if rf, ok := employeeDeviation(f); ok {
		factors = append(factors, rf)
	}

	return model.NewPatternReport(checks, factors)
}

type checkBuilder struct {
	check model.PatternCheck
}

func newCheck(patternType string) *checkBuilder {
	return &checkBuilder{check: model.PatternCheck{Type: patternType}}
}

func (b *checkBuilder) add(points float64, format string, args ...any) {
	b.check.Score += points
	b.check.Indicators = append(b.check.Indicators, fmt.Sprintf(format, args...))
}

func (b *checkBuilder) done() model.PatternCheck {
	b.check.Score = math.Min(100, b.check.Score)
	return b.check
}

func shellCompany(f filingFacts) model.PatternCheck {
	c := newCheck(model.PatternShellCompany)
	if n := f.profile.NumEmployees(); n > 0 && f.bench.EmployeesPerOutlet.isSet() {
		expected := float64(f.profile.NumOutlets()) * f.bench.EmployeesPerOutlet.mid()
		if float64(n) < math.Max(expected*0.1, 3) {
			c.add(25, "Minimal employee count (%d for %d outlet(s)) - paper company indicator", n, f.profile.NumOutlets())
		}
		if f.ratio > 3 && float64(n) < expected*0.3 {
			c.add(35, "High revenue with low operational footprint")
		}
	}
	if y := f.profile.YearsInOperation(); y > 0 && y <= 2 && f.declared > newCompanyRevenue {
		c.add(20, "New company (%d year(s)) with unusually high revenue", y)
	}
	return c.done()
}

func moneyLaundering(f filingFacts) model.PatternCheck {
	c := newCheck(model.PatternMoneyLaundering)
	if f.ratio > 4 {
		c.add(30, "Revenue significantly exceeds business capacity - possible integration of illicit funds")
	}
	if f.profile.Category().IsCashIntensive() && f.ratio > 2 {
		c.add(25, "Cash-intensive business with unusually high revenue")
	}
	return c.done()
}

func blackMoney(f filingFacts) model.PatternCheck {
	c := newCheck(model.PatternBlackMoney)
	if f.hasDeclared && f.expected > 0 && f.ratio < 0.4 {
		c.add(35, "Significantly under-reported revenue - likely cash hoarding")
	}
	if tax, ok := f.profile.DeclaredTaxPaid(); ok && f.hasDeclared && f.bench.ExpectedTaxRate.isSet() {
		rate := tax.Float64() / math.Max(f.declared, 1)
		want := f.bench.ExpectedTaxRate.mid()
		if rate < want*0.3 {
			c.add(25, "Extremely low effective tax rate (%.1f%% against an expected %.1f%%)", rate*100, want*100)
		}
	}
	if ls, ok := f.profile.Lifestyle(); ok && ls.Assets.IsPositive() {
		income := f.expected
		if f.hasDeclared {
			income = f.declared
		}
		if ls.Assets.Float64() > income*10 {
			c.add(30, "Asset value far exceeds declared income capacity")
		}
	}
	return c.done()
}

func circularTrading(f filingFacts) model.PatternCheck {
	c := newCheck(model.PatternCircularTrading)
	if f.ratio > 5 {
		c.add(35, "Revenue massively exceeds operational capacity - possible fake invoices")
	}
	if f.profile.Category().Equal(valueobject.CategoryTrading) && f.ratio > 3 {
		c.add(30, "Trading business with inflated transactions")
	}
	if y := f.profile.YearsInOperation(); y > 0 && y <= 3 && f.declared > newEntityTradeVolume {
		c.add(25, "New entity (%d year(s)) with massive transaction volume", y)
	}
	return c.done()
}

// frontOperation looks for a small vendor fronting for larger cash flows.
func frontOperation(f filingFacts) model.PatternCheck {
	c := newCheck(model.PatternFrontOperation)
	annualHigh := f.bench.DailyRevenue.High * float64(model.DefaultOperatingDays) * float64(f.profile.NumOutlets())
	if f.hasDeclared && f.bench.DailyRevenue.isSet() && f.declared > annualHigh*2 {
		c.add(35, "Declared revenue %s far exceeds what a %s typically earns", f.declaredMoney(), f.profile.Category().Label())
	}
	if ls, ok := f.profile.Lifestyle(); ok {
		income := f.estimate.High().Float64()
		if f.hasDeclared {
			income = f.declared
		}
		if ls.Expenses.IsPositive() && ls.Expenses.Float64() > income {
			c.add(25, "Lifestyle spending %s exceeds small vendor income", ls.Expenses)
		}
		if ls.Assets.IsPositive() && annualHigh > 0 && ls.Assets.Float64() > annualHigh*5 {
			c.add(25, "Asset holdings %s inconsistent with small vendor income", ls.Assets)
		}
	}
	return c.done()
}

// revenueDeviation flags declared revenue below half the expected low or above twice the high.
func revenueDeviation(f filingFacts) (model.RiskFactor, bool) {
	if !f.hasDeclared {
		return model.RiskFactor{}, false
	}
	low, high := f.estimate.Low().Float64(), f.estimate.High().Float64()
	if f.declared >= low*0.5 && f.declared <= high*2 {
		return model.RiskFactor{}, false
	}
	score := math.Min(100, math.Abs(f.declared-f.expected)/math.Max(f.expected, 1)*50)
	severity := model.SeverityHigh
	if score < 50 {
		severity = model.SeverityMedium
	}
	return model.RiskFactor{
		Factor:   "Revenue Anomaly",
		Severity: severity,
		Description: fmt.Sprintf("Revenue %s outside expected range %s to %s",
			f.declaredMoney(), f.estimate.Low(), f.estimate.High()),
		Score: score,
	}, true
}

// employeeDeviation compares headcount with outlets x the employees-per-outlet band.
func employeeDeviation(f filingFacts) (model.RiskFactor, bool) {
	n := float64(f.profile.NumEmployees())
	if n <= 0 || !f.bench.EmployeesPerOutlet.isSet() {
		return model.RiskFactor{}, false
	}
	outlets := float64(f.profile.NumOutlets())
	low, high := outlets*f.bench.EmployeesPerOutlet.Low, outlets*f.bench.EmployeesPerOutlet.High
	if n >= low*0.5 && n <= high*2 {
		return model.RiskFactor{}, false
	}
	mean := (low + high) / 2
	return model.RiskFactor{
		Factor:      "Employee Count Anomaly",
		Severity:    model.SeverityMedium,
		Description: fmt.Sprintf("%.0f employees outside expected range %.0f-%.0f", n, low, high),
		Score:       math.Min(100, math.Abs(n-mean)/math.Max(mean, 1)*50),
	}, true
}

func (f filingFacts) declaredMoney() string {
	declared, _ := f.profile.DeclaredRevenue()
	return declared.String()
}
