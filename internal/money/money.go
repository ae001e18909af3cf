// Package money provides the Amount type used across the ledger.
//
// Amounts are stored as unsigned magnitudes paired with an income flag. Signed
// values (income positive, expense negative) only exist at the edges: request
// parsing, reporting and balance arithmetic.
package money

import (
	"github.com/shopspring/decimal"
)

// Amount is a fixed-point decimal value.
type Amount = decimal.Decimal

// Zero is the zero amount.
var Zero = decimal.Zero

// Scale is the number of fractional digits amounts are rounded to.
const Scale = 2

// New parses a decimal string such as "12.50".
func New(value string) (Amount, error) {
	return decimal.NewFromString(value)
}

// MustNew parses a decimal string and panics on failure. Use only for constants and tests.
func MustNew(value string) Amount {
	return decimal.RequireFromString(value)
}

// FitsScale reports whether a has no digits beyond Scale, so it is stored
// without rounding.
func FitsScale(a Amount) bool {
	return a.Equal(a.Truncate(Scale))
}

// IsValidMagnitude reports whether a is strictly positive and fits Scale.
func IsValidMagnitude(a Amount) bool {
	return a.IsPositive() && FitsScale(a)
}

// Signed derives the signed amount for a magnitude: positive for income,
// negative for expense.
func Signed(magnitude Amount, isIncome bool) Amount {
	m := magnitude.Abs()
	if isIncome {
		return m
	}
	return m.Neg()
}

// FromSigned splits a signed amount into its magnitude and income flag.
// Zero is reported as a non-income zero magnitude.
func FromSigned(signed Amount) (magnitude Amount, isIncome bool) {
	return signed.Abs(), signed.IsPositive()
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Clamp bounds a to the closed interval [lo, hi].
func Clamp(a, lo, hi Amount) Amount {
	if a.LessThan(lo) {
		return lo
	}
	if a.GreaterThan(hi) {
		return hi
	}
	return a
}

// Percent returns part/whole*100 rounded to two places. A zero whole yields 100
// since there is nothing left to fund.
func Percent(part, whole Amount) float64 {
	if !whole.IsPositive() {
		return 100
	}
	p, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return p
}
