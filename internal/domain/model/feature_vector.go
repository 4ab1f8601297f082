package model

import (
	"fmt"
	"math"
	"sort"
)

// Feature names shared by the feature builder, the ML artifacts and the judge prompt.
const (
	FeatureRevenueGapRatio       = "revenue_gap_ratio"
	FeatureLogDeclaredRevenue    = "log_declared_revenue"
	FeatureLogExpectedRevenue    = "log_expected_revenue"
	FeatureNumOutlets            = "num_outlets"
	FeatureIsSmallVendor         = "is_small_vendor"
	FeatureOperatingDays         = "operating_days"
	FeatureTaxRate               = "tax_rate"
	FeatureRevenuePerEmployee    = "log_revenue_per_employee"
	FeatureYearsInOperation      = "years_in_operation"
	FeatureLifestyleExpenseRatio = "lifestyle_expense_ratio"
	FeatureLifestyleAssetRatio   = "lifestyle_asset_ratio"
	FeaturePatternScore          = "pattern_score"
	FeatureMatchedPatterns       = "matched_patterns"
)

// FeatureVector is an immutable name to value mapping derived from one profile.
type FeatureVector struct {
	values map[string]float64
	names  []string
}

// NewFeatureVector copies values and rejects non-finite entries.
func NewFeatureVector(values map[string]float64) (FeatureVector, error) {
	fv := FeatureVector{
		values: make(map[string]float64, len(values)),
		names:  make([]string, 0, len(values)),
	}
	for name, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FeatureVector{}, fmt.Errorf("feature %q is not finite", name)
		}
		fv.values[name] = v
		fv.names = append(fv.names, name)
	}
	sort.Strings(fv.names)
	return fv, nil
}

// Get returns a single feature.
func (f FeatureVector) Get(name string) (float64, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Missing returns the subset of names not present, in the given order.
func (f FeatureVector) Missing(names []string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := f.values[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Select returns the values for names in order. It fails on the first absent name.
func (f FeatureVector) Select(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, n := range names {
		v, ok := f.values[n]
		if !ok {
			return nil, fmt.Errorf("feature %q not present", n)
		}
		out[i] = v
	}
	return out, nil
}

// Names returns the sorted feature names.
func (f FeatureVector) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Values returns a copy of the underlying map.
func (f FeatureVector) Values() map[string]float64 {
	out := make(map[string]float64, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func (f FeatureVector) Len() int {
	return len(f.names)
}
