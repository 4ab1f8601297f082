package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Currency
// ---------------------------------------------------------------------------

func TestNewCurrency_Valid(t *testing.T) {
	for _, code := range []string{"INR", "USD", "EUR"} {
		c, err := NewCurrency(code)
		if err != nil {
			t.Errorf("NewCurrency(%q) unexpected error: %v", code, err)
		}
		if c.Code() != code {
			t.Errorf("NewCurrency(%q).Code() = %q, want %q", code, c.Code(), code)
		}
	}
}

func TestNewCurrency_Invalid(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"lowercase", "inr"},
		{"too short", "IN"},
		{"digits", "IN1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCurrency(tt.code); err == nil {
				t.Errorf("NewCurrency(%q) expected error, got nil", tt.code)
			}
		})
	}
}

func TestMustCurrency_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustCurrency(\"bad\") did not panic")
		}
	}()
	MustCurrency("bad")
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestFromFloat(t *testing.T) {
	m := FromFloat(50000, INR)
	if !m.Amount().Equal(decimal.NewFromInt(50000)) {
		t.Errorf("amount = %s, want 50000", m.Amount())
	}
	if m.Float64() != 50000 {
		t.Errorf("Float64() = %v, want 50000", m.Float64())
	}
}

// ---------------------------------------------------------------------------
// Arithmetic
// ---------------------------------------------------------------------------

func TestMultiplyInt_ScalesExactly(t *testing.T) {
	daily := FromFloat(500, INR)
	yearly := daily.MultiplyInt(300)
	if !yearly.Equal(FromFloat(150000, INR)) {
		t.Errorf("500 x 300 = %s, want 150000.00 INR", yearly)
	}
	if !yearly.MultiplyInt(2).Equal(FromFloat(300000, INR)) {
		t.Errorf("doubling = %s, want 300000.00 INR", yearly.MultiplyInt(2))
	}
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := FromFloat(10, INR).Add(FromFloat(10, USD))
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Add error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestMidpoint(t *testing.T) {
	mid, err := FromFloat(300000, INR).Midpoint(FromFloat(9000000, INR))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mid.Equal(FromFloat(4650000, INR)) {
		t.Errorf("Midpoint = %s, want 4650000.00 INR", mid)
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name   string
		num    Money
		den    Money
		want   float64
		wantOK bool
	}{
		{"half", FromFloat(50, INR), FromFloat(100, INR), 0.5, true},
		{"equal", FromFloat(100, INR), FromFloat(100, INR), 1, true},
		{"zero denominator", FromFloat(100, INR), Zero(INR), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.num.Ratio(tt.den)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Ratio = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if _, _, err := FromFloat(1, INR).Ratio(FromFloat(1, USD)); !errors.Is(err, ErrCurrencyMismatch) {
		t.Errorf("Ratio error = %v, want ErrCurrencyMismatch", err)
	}
}

func TestPredicates(t *testing.T) {
	if !Zero(INR).IsZero() {
		t.Error("Zero(INR).IsZero() = false")
	}
	if !FromFloat(1, INR).IsPositive() {
		t.Error("1 should be positive")
	}
	if FromFloat(-1, INR).IsPositive() {
		t.Error("-1 should not be positive")
	}
	if !FromFloat(1, INR).LessThanOrEqual(FromFloat(1, INR)) {
		t.Error("1 <= 1 should hold")
	}
}
