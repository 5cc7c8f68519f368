package domain

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
)

// MinorUnits converts a decimal amount as sent by the backend (e.g. 12.5 USD)
// into integer minor units (1250) using the ISO 4217 scale of the currency.
func MinorUnits(amount float64, code string) (int64, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return 0, fmt.Errorf("parse currency %q: %w", code, err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return 0, fmt.Errorf("invalid amount %v", amount)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int64(math.Round(amount * math.Pow10(scale))), nil
}

// FormatMinor renders minor units back as a decimal string, e.g. "12.50".
func FormatMinor(minor int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return fmt.Sprintf("%d", minor)
	}
	scale, _ := currency.Standard.Rounding(unit)
	if scale == 0 {
		return fmt.Sprintf("%d", minor)
	}
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	div := int64(math.Pow10(scale))
	return fmt.Sprintf("%s%d.%0*d", sign, minor/div, scale, minor%div)
}
