// Package core provides the pure domain logic of the school ledger:
// money handling, period ordering, fee carry-forward and assessment
// aggregation.
package core

import (
	"strconv"
	"strings"
)

// ParseDecimalToCents converts a decimal amount string to cents. Both dot
// (1200.50) and comma (1200,50) decimal separators are accepted; anything
// past the second decimal place rounds half-up. Signed, malformed, zero and
// negative amounts are rejected with ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	// A sign character fails the digit check, so "+12" and "-12" are
	// rejected here rather than parsed.
	if !allDigits(intPart) || !allDigits(fracPart) {
		return 0, ErrInvalidAmount
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxWhole = (1<<63 - 1) / 100
	if whole > maxWhole {
		return 0, ErrInvalidAmount
	}

	var frac int64
	switch {
	case len(fracPart) == 0:
	case len(fracPart) == 1:
		frac = int64(fracPart[0]-'0') * 10
	default:
		frac = int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		if len(fracPart) > 2 && fracPart[2] >= '5' {
			frac++
		}
	}

	cents := whole*100 + frac
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Shillings returns the shilling value as a float64 for display only;
// calculations stay in cents.
func (m Money) Shillings() float64 {
	return float64(m.Cents) / 100.0
}
