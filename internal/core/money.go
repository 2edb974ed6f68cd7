// Package core provides the domain model and money parsing utilities.
//
// Monetary amounts are exact decimals throughout; rounding to two fraction
// digits happens only at presentation and aggregation boundaries.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a positive monetary amount from user input.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up beyond the second fraction digit. Signs are rejected; amounts are
// always entered positive and their direction comes from the entry kind.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// Round2 rounds half-up to two fraction digits. Boundary use only.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
