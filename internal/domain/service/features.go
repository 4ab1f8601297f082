package service

import (
	"fmt"
	"math"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/pkg/money"
)

const maxLifestyleRatio = 100.0

// BuildFeatures derives the feature vector for one profile. Features whose inputs were
// not filed are omitted rather than imputed, so classifiers that need them drop out.
// The pattern features are always present.
func BuildFeatures(p model.BusinessProfile, est model.RevenueEstimate, gapRatio *float64, patterns model.PatternReport) (model.FeatureVector, error) {
	f := map[string]float64{
		model.FeatureNumOutlets:         float64(p.NumOutlets()),
		model.FeatureOperatingDays:      float64(p.OperatingDaysPerYear()),
		model.FeatureLogExpectedRevenue: math.Log1p(est.Midpoint().Float64()),
		model.FeatureIsSmallVendor:      0,
		model.FeaturePatternScore:       patterns.PatternScore() / 100,
		model.FeatureMatchedPatterns:    float64(len(patterns.Matched())),
	}
	if p.Category().IsSmallVendor() {
		f[model.FeatureIsSmallVendor] = 1
	}
	if gapRatio != nil {
		f[model.FeatureRevenueGapRatio] = *gapRatio
	}
	if y := p.YearsInOperation(); y > 0 {
		f[model.FeatureYearsInOperation] = float64(y)
	}

	declared, hasDeclared := p.DeclaredRevenue()
	if hasDeclared {
		f[model.FeatureLogDeclaredRevenue] = math.Log1p(declared.Float64())

		if tax, ok := p.DeclaredTaxPaid(); ok {
			if rate, ok, err := tax.Ratio(declared); err == nil && ok {
				f[model.FeatureTaxRate] = rate
			}
		}
		if n := p.NumEmployees(); n > 0 {
			f[model.FeatureRevenuePerEmployee] = math.Log1p(declared.Float64() / float64(n))
		}
	}

	if ls, ok := p.Lifestyle(); ok {
		base := est.Midpoint()
		if hasDeclared {
			base = declared
		}
		if ls.Expenses.IsPositive() {
			r, err := lifestyleRatio(ls.Expenses, base)
			if err != nil {
				return model.FeatureVector{}, err
			}
			f[model.FeatureLifestyleExpenseRatio] = r
		}
		if ls.Assets.IsPositive() {
			r, err := lifestyleRatio(ls.Assets, base)
			if err != nil {
				return model.FeatureVector{}, err
			}
			f[model.FeatureLifestyleAssetRatio] = r
		}
	}

	fv, err := model.NewFeatureVector(f)
	if err != nil {
		return model.FeatureVector{}, fmt.Errorf("build features: %w", err)
	}
	return fv, nil
}

func lifestyleRatio(amount, income money.Money) (float64, error) {
	r, ok, err := amount.Ratio(income)
	if err != nil {
		return 0, fmt.Errorf("lifestyle ratio: %w", err)
	}
	if !ok || r > maxLifestyleRatio {
		return maxLifestyleRatio, nil
	}
	return r, nil
}
