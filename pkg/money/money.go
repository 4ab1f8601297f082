package money

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var currencyCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// ErrCurrencyMismatch is returned when two amounts in different currencies are combined.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Currency is an ISO 4217 currency code.
type Currency struct {
	code string
}

// NewCurrency creates a Currency after validating the code is exactly 3 uppercase letters.
func NewCurrency(code string) (Currency, error) {
	if !currencyCodeRe.MatchString(code) {
		return Currency{}, fmt.Errorf("invalid currency code %q: must be exactly 3 uppercase letters", code)
	}
	return Currency{code: code}, nil
}

// MustCurrency panics on an invalid code. Package-level initialization only.
func MustCurrency(code string) Currency {
	c, err := NewCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Currency) Code() string {
	return c.code
}

func (c Currency) String() string {
	return c.code
}

// Filing currencies.
var (
	INR = MustCurrency("INR")
	USD = MustCurrency("USD")
)

// Money is an immutable monetary amount with currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New creates a Money value from a decimal amount and currency.
func New(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// FromFloat converts a declared figure into Money. Filings arrive as JSON numbers,
// so this is the usual entry point.
func FromFloat(amount float64, currency Currency) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: currency}
}

// Zero returns a Money value of zero in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() Currency {
	return m.currency
}

// Float64 returns the amount as a float for feature extraction. Precision loss is acceptable there.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Add returns the sum of m and other.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: cannot add %s to %s", ErrCurrencyMismatch, other.currency, m.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Multiply returns m multiplied by the given factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// MultiplyInt scales m by a whole count such as days or outlets.
func (m Money) MultiplyInt(n int64) Money {
	return m.Multiply(decimal.NewFromInt(n))
}

// Midpoint returns the arithmetic mean of m and other.
func (m Money) Midpoint(other Money) (Money, error) {
	sum, err := m.Add(other)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: sum.amount.Div(decimal.NewFromInt(2)), currency: m.currency}, nil
}

// Ratio returns m / other as a float. A zero denominator yields ok=false.
func (m Money) Ratio(other Money) (ratio float64, ok bool, err error) {
	if m.currency != other.currency {
		return 0, false, fmt.Errorf("%w: cannot divide %s by %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	if other.amount.IsZero() {
		return 0, false, nil
	}
	f, _ := m.amount.Div(other.amount).Float64()
	return f, true, nil
}

// LessThanOrEqual compares two amounts in the same currency.
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

// Equal returns true if both the amount and currency of m and other are equal.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String formats the Money value as "<amount> <currency>", for example "300000.00 INR".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(2), m.currency.Code())
}
