package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Prices are stored as NUMERIC(12,2) and minutes as INTEGER.
const (
	PriceScale     = 2
	MaxTimeMinutes = math.MaxInt32
)

// MaxPrice is the first price the price columns cannot hold.
var MaxPrice = decimal.New(1, 10)

var (
	ErrNegativeAmount = errors.New("cannot be negative")
	ErrPricePrecision = errors.New("must have at most 2 decimal places")
	ErrPriceRange     = errors.New("must be below 10000000000")
	ErrTimeRange      = errors.New("must be at most 2147483647 minutes")
)

// CheckPrice reports whether d can be stored without rounding or overflow.
func CheckPrice(d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return ErrNegativeAmount
	case !d.Equal(d.Truncate(PriceScale)):
		return ErrPricePrecision
	case d.GreaterThanOrEqual(MaxPrice):
		return ErrPriceRange
	}
	return nil
}

// CheckMinutes reports whether m fits the minute columns.
func CheckMinutes(m int) error {
	switch {
	case m < 0:
		return ErrNegativeAmount
	case int64(m) > MaxTimeMinutes:
		return ErrTimeRange
	}
	return nil
}
