package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/pkg/money"
)

// MaxGapRatio caps declared / expected so a single outlier cannot dominate the features.
const MaxGapRatio = 10.0

// Range is a closed numeric interval.
type Range struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

func (r Range) isSet() bool { return r.High > 0 }

func (r Range) mid() float64 { return (r.Low + r.High) / 2 }

// Benchmark is the expected operating profile of one business category.
type Benchmark struct {
	RevenuePerSqft     Range `yaml:"revenue_per_sqft" json:"revenue_per_sqft"`
	SqftPerOutlet      Range `yaml:"sqft_per_outlet" json:"sqft_per_outlet"`
	EmployeesPerOutlet Range `yaml:"employees_per_outlet" json:"employees_per_outlet"`
	ExpectedTaxRate    Range `yaml:"expected_tax_rate" json:"expected_tax_rate"`
	DailyRevenue       Range `yaml:"daily_revenue,omitempty" json:"daily_revenue,omitempty"`
}

// BenchmarkTable maps category codes to benchmarks.
type BenchmarkTable map[string]Benchmark

// DefaultBenchmarks returns the built-in benchmark table.
func DefaultBenchmarks() BenchmarkTable {
	return BenchmarkTable{
		valueobject.CategoryCorporate.String(): {
			RevenuePerSqft: Range{1500, 8000}, SqftPerOutlet: Range{1000, 20000},
			EmployeesPerOutlet: Range{10, 100}, ExpectedTaxRate: Range{0.20, 0.32},
		},
		valueobject.CategoryManufacturing.String(): {
			RevenuePerSqft: Range{500, 3000}, SqftPerOutlet: Range{10000, 200000},
			EmployeesPerOutlet: Range{50, 500}, ExpectedTaxRate: Range{0.20, 0.32},
		},
		valueobject.CategoryService.String(): {
			RevenuePerSqft: Range{1000, 6000}, SqftPerOutlet: Range{500, 5000},
			EmployeesPerOutlet: Range{5, 50}, ExpectedTaxRate: Range{0.18, 0.30},
		},
		valueobject.CategoryRetail.String(): {
			RevenuePerSqft: Range{500, 3000}, SqftPerOutlet: Range{200, 2000},
			EmployeesPerOutlet: Range{1, 10}, ExpectedTaxRate: Range{0.15, 0.25},
		},
		valueobject.CategoryTrading.String(): {
			RevenuePerSqft: Range{2000, 15000}, SqftPerOutlet: Range{2000, 20000},
			EmployeesPerOutlet: Range{5, 50}, ExpectedTaxRate: Range{0.18, 0.30},
		},
		valueobject.CategoryMegaMart.String(): {
			RevenuePerSqft: Range{1000, 5000}, SqftPerOutlet: Range{20000, 100000},
			EmployeesPerOutlet: Range{50, 300}, ExpectedTaxRate: Range{0.20, 0.30},
		},
		valueobject.CategoryMNC.String(): {
			RevenuePerSqft: Range{2000, 10000}, SqftPerOutlet: Range{5000, 50000},
			EmployeesPerOutlet: Range{20, 200}, ExpectedTaxRate: Range{0.22, 0.35},
		},
		valueobject.CategoryRental.String(): {
			RevenuePerSqft: Range{200, 1500}, SqftPerOutlet: Range{500, 10000},
			EmployeesPerOutlet: Range{1, 5}, ExpectedTaxRate: Range{0.15, 0.28},
		},
		valueobject.CategoryECommerce.String(): {
			RevenuePerSqft: Range{5000, 20000}, SqftPerOutlet: Range{1000, 50000},
			EmployeesPerOutlet: Range{10, 200}, ExpectedTaxRate: Range{0.18, 0.28},
		},
		valueobject.CategoryRestaurant.String(): {
			RevenuePerSqft: Range{800, 4000}, SqftPerOutlet: Range{500, 5000},
			EmployeesPerOutlet: Range{5, 30}, ExpectedTaxRate: Range{0.15, 0.25},
		},
		valueobject.CategoryHealthcare.String(): {
			RevenuePerSqft: Range{2000, 15000}, SqftPerOutlet: Range{1000, 30000},
			EmployeesPerOutlet: Range{10, 100}, ExpectedTaxRate: Range{0.18, 0.30},
		},
		valueobject.CategoryEducation.String(): {
			RevenuePerSqft: Range{500, 2000}, SqftPerOutlet: Range{5000, 100000},
			EmployeesPerOutlet: Range{20, 200}, ExpectedTaxRate: Range{0, 0.15},
		},
		valueobject.CategoryRealEstate.String(): {
			RevenuePerSqft: Range{1000, 5000}, SqftPerOutlet: Range{50000, 500000},
			EmployeesPerOutlet: Range{10, 100}, ExpectedTaxRate: Range{0.20, 0.35},
		},
		valueobject.CategoryJewelry.String(): {
			RevenuePerSqft: Range{5000, 50000}, SqftPerOutlet: Range{500, 5000},
			EmployeesPerOutlet: Range{3, 20}, ExpectedTaxRate: Range{0.15, 0.28},
		},
		valueobject.CategoryConstruction.String(): {
			RevenuePerSqft: Range{1000, 5000}, SqftPerOutlet: Range{5000, 50000},
			EmployeesPerOutlet: Range{20, 200}, ExpectedTaxRate: Range{0.18, 0.30},
		},
		valueobject.CategoryStreetVendorFood.String(): {
			DailyRevenue: Range{500, 5000}, EmployeesPerOutlet: Range{1, 3}, ExpectedTaxRate: Range{0, 0.10},
		},
		valueobject.CategoryStreetVendorGoods.String(): {
			DailyRevenue: Range{1000, 15000}, EmployeesPerOutlet: Range{1, 4}, ExpectedTaxRate: Range{0, 0.10},
		},
		valueobject.CategoryHawker.String(): {
			DailyRevenue: Range{200, 2000}, EmployeesPerOutlet: Range{1, 2}, ExpectedTaxRate: Range{0, 0.05},
		},
		valueobject.CategoryRoadsideStall.String(): {
			DailyRevenue: Range{1000, 10000}, EmployeesPerOutlet: Range{1, 5}, ExpectedTaxRate: Range{0, 0.12},
		},
		valueobject.CategoryMobileVendor.String(): {
			DailyRevenue: Range{300, 3000}, EmployeesPerOutlet: Range{1, 2}, ExpectedTaxRate: Range{0, 0.05},
		},
		valueobject.CategoryKiosk.String(): {
			DailyRevenue: Range{2000, 20000}, EmployeesPerOutlet: Range{1, 3}, ExpectedTaxRate: Range{0.05, 0.15},
		},
		valueobject.CategoryDhaba.String(): {
			DailyRevenue: Range{3000, 25000}, EmployeesPerOutlet: Range{3, 10}, ExpectedTaxRate: Range{0.05, 0.15},
		},
		valueobject.CategoryPanShop.String(): {
			DailyRevenue: Range{2000, 15000}, EmployeesPerOutlet: Range{1, 2}, ExpectedTaxRate: Range{0.05, 0.15},
		},
		valueobject.CategoryProduceVendor.String(): {
			DailyRevenue: Range{1000, 8000}, EmployeesPerOutlet: Range{1, 3}, ExpectedTaxRate: Range{0, 0.08},
		},
		valueobject.CategoryTeaStall.String(): {
			DailyRevenue: Range{1000, 8000}, EmployeesPerOutlet: Range{1, 4}, ExpectedTaxRate: Range{0, 0.10},
		},
	}
}

// Merge returns a copy of t with overrides applied. Within an overridden category only
// the ranges the override sets replace the base entry.
func (t BenchmarkTable) Merge(overrides BenchmarkTable) BenchmarkTable {
	out := make(BenchmarkTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for k, o := range overrides {
		b := out[k]
		for _, f := range []struct{ dst, src *Range }{
			{&b.RevenuePerSqft, &o.RevenuePerSqft},
			{&b.SqftPerOutlet, &o.SqftPerOutlet},
			{&b.EmployeesPerOutlet, &o.EmployeesPerOutlet},
			{&b.ExpectedTaxRate, &o.ExpectedTaxRate},
			{&b.DailyRevenue, &o.DailyRevenue},
		} {
			if f.src.isSet() {
				*f.dst = *f.src
			}
		}
		out[k] = b
	}
	return out
}

// Lookup returns the benchmark for a category.
func (t BenchmarkTable) Lookup(c valueobject.BusinessCategory) (Benchmark, bool) {
	b, ok := t[c.String()]
	return b, ok
}

// RevenueEstimator computes expected annual revenue bands.
type RevenueEstimator struct {
	benchmarks BenchmarkTable
}

// NewRevenueEstimator creates an estimator over the given benchmark table.
func NewRevenueEstimator(benchmarks BenchmarkTable) *RevenueEstimator {
	if benchmarks == nil {
		benchmarks = DefaultBenchmarks()
	}
	return &RevenueEstimator{benchmarks: benchmarks}
}

// Benchmarks exposes the table in use.
func (e *RevenueEstimator) Benchmarks() BenchmarkTable {
	return e.benchmarks
}

// ExpectedRevenue returns the expected annual revenue range for a profile.
//
// Small vendors use daily range x operating days x outlets from the filing itself and
// never consult area benchmarks. Other categories use floor area x revenue per sqft
// when floor area was declared, and outlets x typical outlet size otherwise.
func (e *RevenueEstimator) ExpectedRevenue(p model.BusinessProfile) (model.RevenueEstimate, error) {
	if p.Category().IsSmallVendor() {
		daily, ok := p.DailyRevenueRange()
		if !ok {
			return model.RevenueEstimate{}, fmt.Errorf("small vendor %s has no daily revenue range", p.BusinessID())
		}
		outlets := int64(p.NumOutlets())
		if outlets < 1 {
			outlets = 1
		}
		days := int64(p.OperatingDaysPerYear())
		if days < 1 {
			days = model.DefaultOperatingDays
		}
		return model.NewRevenueEstimate(
			daily.Min().MultiplyInt(days).MultiplyInt(outlets),
			daily.Max().MultiplyInt(days).MultiplyInt(outlets),
			model.MethodDailyRange,
		)
	}

	b, ok := e.benchmarks.Lookup(p.Category())
	if !ok || !b.RevenuePerSqft.isSet() {
		return model.RevenueEstimate{}, fmt.Errorf("no revenue benchmark for category %s", p.Category())
	}

	cur := p.Currency()
	perSqftLow := money.New(decimal.NewFromFloat(b.RevenuePerSqft.Low), cur)
	perSqftHigh := money.New(decimal.NewFromFloat(b.RevenuePerSqft.High), cur)

	if area := p.FloorAreaSqft(); area > 0 {
		a := decimal.NewFromFloat(area)
		return model.NewRevenueEstimate(perSqftLow.Multiply(a), perSqftHigh.Multiply(a), model.MethodFloorArea)
	}

	outlets := int64(p.NumOutlets())
	low := perSqftLow.Multiply(decimal.NewFromFloat(b.SqftPerOutlet.Low)).MultiplyInt(outlets)
	high := perSqftHigh.Multiply(decimal.NewFromFloat(b.SqftPerOutlet.High)).MultiplyInt(outlets)
	return model.NewRevenueEstimate(low, high, model.MethodOutlets)
}

// RevenueGapRatio returns declared / expected midpoint clipped to [0, MaxGapRatio].
// A zero midpoint yields MaxGapRatio.
func RevenueGapRatio(declared money.Money, estimate model.RevenueEstimate) (float64, error) {
	ratio, ok, err := declared.Ratio(estimate.Midpoint())
	if err != nil {
		return 0, fmt.Errorf("revenue gap ratio: %w", err)
	}
	if !ok {
		return MaxGapRatio, nil
	}
	switch {
	case ratio < 0:
		return 0, nil
	case ratio > MaxGapRatio:
		return MaxGapRatio, nil
	default:
		return ratio, nil
	}
}
