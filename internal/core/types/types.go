// Package types provides common type aliases and quantity utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in price math.
type Money = decimal.Decimal

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// QtyTolerance absorbs rounding noise from proportional quantity splits.
// All pending/received comparisons go through the helpers below instead of
// comparing float64 values directly.
const QtyTolerance = 0.001

// QtyEqual reports whether two quantities are equal within tolerance.
func QtyEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= QtyTolerance
}

// QtyZero reports whether a quantity is zero within tolerance.
func QtyZero(q float64) bool {
	return QtyEqual(q, 0)
}

// QtyExceeds reports whether q is greater than limit by more than the tolerance.
// Used for over-receipt checks: a quantity exactly at the ceiling passes.
func QtyExceeds(q, limit float64) bool {
	return q > limit+QtyTolerance
}

// ClampQty returns q, or 0 when q is negative.
// Stock pools are never allowed to go below zero.
func ClampQty(q float64) float64 {
	if q < 0 {
		return 0
	}
	return q
}
