// Package money keeps monetary amounts as integer cents and applies decimal
// rates to them with half-away-from-zero rounding.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyRate returns cents * rate rounded to the nearest cent.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}

// FromDollars converts a decimal dollar amount into cents.
func FromDollars(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ToDollars converts cents into a decimal dollar amount.
func ToDollars(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-2)
}

// Format renders cents as a dollar string such as "$9.99".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s", sign, ToDollars(cents).StringFixed(2))
}

// ParseRate parses a non-negative decimal rate such as "0.08".
func ParseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate %q must not be negative", raw)
	}
	return rate, nil
}
