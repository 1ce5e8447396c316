package ir

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseUnits parses a human decimal string in whole units ("0.01", "1000")
// into base units. More than Decimals fractional digits is an error, never
// a silent rounding.
func ParseUnits(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if d.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	shifted := d.Shift(Decimals)
	if !shifted.IsInteger() {
		return Amount{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}
	return AmountFromBig(shifted.BigInt())
}

// MustParseUnits is like ParseUnits but panics on error.
// Use only in tests or with literal inputs.
func MustParseUnits(s string) Amount {
	a, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatUnits renders an amount as a whole-unit decimal string with
// trailing zeros trimmed: Units(1000) -> "1000", 10^16 base units -> "0.01".
func FormatUnits(a Amount) string {
	return decimal.NewFromBigInt(a.BigInt(), -Decimals).String()
}
