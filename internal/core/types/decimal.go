// Package types provides common type aliases and utilities.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
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

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// LineCost is quantity times unit price.
func LineCost(qty int64, unitPrice Money) Money {
	return unitPrice.Mul(decimal.NewFromInt(qty))
}

// WeightedUnitCost divides a total value by a quantity, rounded to 4 places.
// Returns zero for an empty quantity.
func WeightedUnitCost(total Money, qty int64) Money {
	if qty == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(qty), 4)
}

// ParseUnitPrice parses a user supplied price that must not be negative.
func ParseUnitPrice(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse unit price %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("unit price %s is negative", d)
	}
	return d, nil
}
