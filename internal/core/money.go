// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed cents. Positive values are income,
// negative values are expense.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a signed decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half away from zero on the third decimal place.
//
// Examples:
//
//	ParseAmount("12.34")   -> {1234}, nil
//	ParseAmount("-12,345") -> {-1235}, nil
//	ParseAmount("abc")     -> {}, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// maxCents keeps sums of realistic collections far from int64 overflow.
const maxCents = 1 << 53

// FromFloat converts a float amount in currency units to Money, rounding to the nearest cent.
func FromFloat(f float64) Money {
	return Money{Cents: decimal.NewFromFloat(f).Mul(hundred).Round(0).IntPart()}
}

// Units returns the value in currency units as a float64 for display and ratios.
// Use Cents for sums.
func (m Money) Units() float64 {
	f, _ := decimal.New(m.Cents, -2).Float64()
	return f
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// String formats the amount with two decimals and a dot separator.
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}
