// Package money converts between decimal amounts and integer cents.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the number of minor units digits. Balances are stored in cents.
const Scale = 2

var (
	// ErrAmountMustBePositive is returned for zero or negative amounts.
	ErrAmountMustBePositive = errors.New("amount must be positive")
	// ErrTooManyDecimals is returned when an amount has sub-cent precision.
	ErrTooManyDecimals = errors.New("amount must have at most two decimal places")
	// ErrAmountTooLarge is returned when an amount does not fit in int64 cents.
	ErrAmountTooLarge = errors.New("amount exceeds maximum supported value")
	// ErrInvalidAmount is returned when an amount cannot be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
)

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Parse converts a positive decimal amount into cents.
func Parse(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, ErrAmountMustBePositive
	}
	cents := d.Shift(Scale)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	if cents.GreaterThan(maxCents) {
		return 0, ErrAmountTooLarge
	}
	return cents.IntPart(), nil
}

// ParseString parses a textual amount such as "12.50" into cents.
func ParseString(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidAmount, s)
	}
	return Parse(d)
}

// Format renders cents with exactly two decimals, e.g. 123456 -> "1234.56".
func Format(cents int64) string {
	return ToDecimal(cents).StringFixed(Scale)
}

func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -Scale)
}
