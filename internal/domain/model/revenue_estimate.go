package model

import (
	"fmt"

	"github.com/bibbank/taxrisk/pkg/money"
)

// Estimation methods recorded on a RevenueEstimate.
const (
	MethodDailyRange = "daily_range"
	MethodFloorArea  = "floor_area"
	MethodOutlets    = "outlets"
)

// RevenueEstimate is the expected annual revenue band for a profile.
type RevenueEstimate struct {
	low    money.Money
	high   money.Money
	method string
}

// NewRevenueEstimate requires low <= high in one currency.
func NewRevenueEstimate(low, high money.Money, method string) (RevenueEstimate, error) {
	if low.Currency() != high.Currency() {
		return RevenueEstimate{}, fmt.Errorf("revenue estimate: %w", money.ErrCurrencyMismatch)
	}
	if !low.LessThanOrEqual(high) {
		return RevenueEstimate{}, fmt.Errorf("revenue estimate low %s exceeds high %s", low, high)
	}
	return RevenueEstimate{low: low, high: high, method: method}, nil
}

func (e RevenueEstimate) Low() money.Money  { return e.low }
func (e RevenueEstimate) High() money.Money { return e.high }
func (e RevenueEstimate) Method() string    { return e.method }

// Midpoint returns (low+high)/2.
func (e RevenueEstimate) Midpoint() money.Money {
	mid, err := e.low.Midpoint(e.high)
	if err != nil {
		// currencies are checked in NewRevenueEstimate
		return money.Zero(e.low.Currency())
	}
	return mid
}

func (e RevenueEstimate) String() string {
	return fmt.Sprintf("%s - %s (%s)", e.low, e.high, e.method)
}
