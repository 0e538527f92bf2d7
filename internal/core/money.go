// Package core holds the finance domain: transactions, categories, money
// parsing, installment expansion and the dashboard metric computations.
//
// This file contains amount parsing and the even-split used by the
// installment expander.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// to cents. Returns an error for invalid formats, negative values, or zero
// amounts.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.RoundBank(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SplitEven divides total into n parts rounded to cents. The last part
// absorbs the rounding residual so the parts always sum back to total.
func SplitEven(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 1 {
		return []decimal.Decimal{total}
	}
	per := total.DivRound(decimal.NewFromInt(int64(n)), 2)
	parts := make([]decimal.Decimal, n)
	running := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = per
		running = running.Add(per)
	}
	parts[n-1] = total.Sub(running)
	return parts
}
