package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/pkg/money"
)

// DefaultOperatingDays is applied when a filing does not state its trading days.
const DefaultOperatingDays = 300

// ErrValidation is the sentinel every *ValidationError unwraps to.
var ErrValidation = errors.New("validation failed")

// ValidationError lists every field that failed, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid filing: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// RawFiling is the filing record as submitted. Monetary values are in Currency (INR when empty).
type RawFiling struct {
	BusinessID            string   `json:"business_id" validate:"required,max=64"`
	Category              string   `json:"business_category" validate:"required"`
	Currency              string   `json:"currency,omitempty" validate:"omitempty,iso4217"`
	DeclaredAnnualRevenue *float64 `json:"declared_annual_revenue,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	NumOutlets            int      `json:"num_outlets,omitempty" validate:"gte=0,lte=100000"`
	DailyRevenueMin       *float64 `json:"daily_revenue_min,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	DailyRevenueMax       *float64 `json:"daily_revenue_max,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	OperatingDaysPerYear  int      `json:"operating_days_per_year,omitempty" validate:"gte=0,lte=366"`
	Location              string   `json:"location,omitempty" validate:"max=128"`
	LifestyleAssets       *float64 `json:"lifestyle_assets,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	LifestyleExpenses     *float64 `json:"lifestyle_expenses,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	DeclaredTaxPaid       *float64 `json:"declared_tax_paid,omitempty" validate:"omitempty,gt=0,lte=1e15"`
	NumEmployees          int      `json:"num_employees,omitempty" validate:"gte=0,lte=10000000"`
	FloorAreaSqft         *float64 `json:"floor_area_sqft,omitempty" validate:"omitempty,gt=0,lte=1e9"`
	YearsInOperation      int      `json:"years_in_operation,omitempty" validate:"gte=0,lte=500"`
}

var filingValidator = newFilingValidator()

func newFilingValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RevenueRange is a (min, max) daily takings band with 0 < min <= max.
type RevenueRange struct {
	min money.Money
	max money.Money
}

// NewRevenueRange validates the band.
func NewRevenueRange(min, max money.Money) (RevenueRange, error) {
	if !min.IsPositive() || !max.IsPositive() {
		return RevenueRange{}, fmt.Errorf("daily revenue range bounds must be positive")
	}
	if min.Currency() != max.Currency() {
		return RevenueRange{}, money.ErrCurrencyMismatch
	}
	if !min.LessThanOrEqual(max) {
		return RevenueRange{}, fmt.Errorf("daily revenue min %s exceeds max %s", min, max)
	}
	return RevenueRange{min: min, max: max}, nil
}

func (r RevenueRange) Min() money.Money { return r.min }
func (r RevenueRange) Max() money.Money { return r.max }

// Lifestyle holds the filer's observed wealth indicators. A zero amount means not reported.
type Lifestyle struct {
	Assets   money.Money
	Expenses money.Money
}

// BusinessProfile is the validated, normalized view of one filing.
type BusinessProfile struct {
	businessID       string
	category         valueobject.BusinessCategory
	currency         money.Currency
	declaredRevenue  money.Money
	hasDeclared      bool
	numOutlets       int
	dailyRange       RevenueRange
	hasDailyRange    bool
	operatingDays    int
	location         string
	lifestyle        Lifestyle
	hasLifestyle     bool
	declaredTaxPaid  money.Money
	hasTaxPaid       bool
	numEmployees     int
	floorAreaSqft    float64
	yearsInOperation int
}

// NewBusinessProfile validates a raw filing and normalizes it. Small-vendor categories
// need a daily revenue range; the other categories need a declared annual revenue.
// A missing outlet count becomes 1 and missing operating days become 300.
func NewBusinessProfile(raw RawFiling) (BusinessProfile, error) {
	verr := &ValidationError{}

	if err := filingValidator.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return BusinessProfile{}, fmt.Errorf("validate filing: %w", err)
		}
		for _, fe := range fieldErrs {
			verr.add(fe.Field(), describeTag(fe))
		}
	}

	category, err := valueobject.CategoryFromString(raw.Category)
	if raw.Category != "" && err != nil {
		verr.add("business_category", "unknown category")
	}

	currency := money.INR
	if raw.Currency != "" {
		if c, cerr := money.NewCurrency(raw.Currency); cerr == nil {
			currency = c
		}
	}

	p := BusinessProfile{
		businessID:       strings.TrimSpace(raw.BusinessID),
		category:         category,
		currency:         currency,
		numOutlets:       raw.NumOutlets,
		operatingDays:    raw.OperatingDaysPerYear,
		location:         strings.TrimSpace(raw.Location),
		numEmployees:     raw.NumEmployees,
		yearsInOperation: raw.YearsInOperation,
	}
	if p.numOutlets == 0 {
		p.numOutlets = 1
	}
	if p.operatingDays == 0 {
		p.operatingDays = DefaultOperatingDays
	}
	if raw.DeclaredAnnualRevenue != nil {
		p.declaredRevenue = money.FromFloat(*raw.DeclaredAnnualRevenue, currency)
		p.hasDeclared = true
	}
	if raw.DeclaredTaxPaid != nil {
		p.declaredTaxPaid = money.FromFloat(*raw.DeclaredTaxPaid, currency)
		p.hasTaxPaid = true
	}
	if raw.FloorAreaSqft != nil {
		p.floorAreaSqft = *raw.FloorAreaSqft
	}
	if raw.LifestyleAssets != nil || raw.LifestyleExpenses != nil {
		p.hasLifestyle = true
		p.lifestyle = Lifestyle{Assets: money.Zero(currency), Expenses: money.Zero(currency)}
		if raw.LifestyleAssets != nil {
			p.lifestyle.Assets = money.FromFloat(*raw.LifestyleAssets, currency)
		}
		if raw.LifestyleExpenses != nil {
			p.lifestyle.Expenses = money.FromFloat(*raw.LifestyleExpenses, currency)
		}
	}

	switch {
	case raw.DailyRevenueMin == nil && raw.DailyRevenueMax == nil:
	case raw.DailyRevenueMin == nil || raw.DailyRevenueMax == nil:
		verr.add("daily_revenue_range", "both min and max are required")
	default:
		r, rerr := NewRevenueRange(money.FromFloat(*raw.DailyRevenueMin, currency), money.FromFloat(*raw.DailyRevenueMax, currency))
		if rerr != nil {
			verr.add("daily_revenue_range", rerr.Error())
		} else {
			p.dailyRange = r
			p.hasDailyRange = true
		}
	}

	if !category.IsZero() {
		if category.IsSmallVendor() {
			if !p.hasDailyRange {
				verr.add("daily_revenue_range", "required for small-vendor categories")
			}
		} else if raw.DeclaredAnnualRevenue == nil {
			verr.add("declared_annual_revenue", "required for "+category.Label())
		}
	}

	if len(verr.Fields) > 0 {
		return BusinessProfile{}, verr
	}
	return p, nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "iso4217":
		return "must be an ISO 4217 currency code"
	default:
		return "failed " + fe.Tag()
	}
}

// --- Accessors ---

func (p BusinessProfile) BusinessID() string                     { return p.businessID }
func (p BusinessProfile) Category() valueobject.BusinessCategory { return p.category }
func (p BusinessProfile) Currency() money.Currency               { return p.currency }
func (p BusinessProfile) NumOutlets() int                        { return p.numOutlets }
func (p BusinessProfile) OperatingDaysPerYear() int              { return p.operatingDays }
func (p BusinessProfile) Location() string                       { return p.location }
func (p BusinessProfile) NumEmployees() int                      { return p.numEmployees }
func (p BusinessProfile) FloorAreaSqft() float64                 { return p.floorAreaSqft }
func (p BusinessProfile) YearsInOperation() int                  { return p.yearsInOperation }

// DeclaredRevenue returns the declared annual revenue, if filed.
func (p BusinessProfile) DeclaredRevenue() (money.Money, bool) {
	return p.declaredRevenue, p.hasDeclared
}

// DailyRevenueRange returns the daily takings band, if filed.
func (p BusinessProfile) DailyRevenueRange() (RevenueRange, bool) {
	return p.dailyRange, p.hasDailyRange
}

// Lifestyle returns lifestyle indicators, if any were reported.
func (p BusinessProfile) Lifestyle() (Lifestyle, bool) {
	return p.lifestyle, p.hasLifestyle
}

// DeclaredTaxPaid returns the tax paid, if filed.
func (p BusinessProfile) DeclaredTaxPaid() (money.Money, bool) {
	return p.declaredTaxPaid, p.hasTaxPaid
}
