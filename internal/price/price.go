// Package price converts human-entered decimal prices into the
// fixed-point integers the on-chain program expects. All amounts on the
// wire are integers in the payment currency's smallest unit; the decimals
// count comes from the payment mint.
package price

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativePrice rejects prices below zero.
	ErrNegativePrice = errors.New("price must not be negative")

	// ErrPriceOverflow rejects prices that do not fit a uint64 after
	// scaling to base units.
	ErrPriceOverflow = errors.New("price overflows uint64 base units")
)

// Mantissa scales a decimal price by 10^decimals and rounds half away
// from zero to the nearest base unit.
func Mantissa(price decimal.Decimal, decimals uint8) (uint64, error) {
	if price.IsNegative() {
		return 0, ErrNegativePrice
	}

	scaled := price.Shift(int32(decimals)).Round(0)

	v := scaled.BigInt()
	if v.Cmp(new(big.Int).SetUint64(math.MaxUint64)) > 0 {
		return 0, ErrPriceOverflow
	}
	return v.Uint64(), nil
}

// Parse converts a price string straight to base units. Non-numeric input
// (including NaN/Inf spellings) is rejected by the decimal parser.
func Parse(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return Mantissa(d, decimals)
}

// FromFloat converts a float price to base units, rejecting NaN and Inf
// before they can reach the decimal constructor.
func FromFloat(f float64, decimals uint8) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid price %v: must be finite", f)
	}
	return Mantissa(decimal.NewFromFloat(f), decimals)
}
