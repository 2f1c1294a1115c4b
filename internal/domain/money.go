// internal/domain/money.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fractional digits kept for monetary amounts.
	MoneyScale int32 = 2

	DefaultCurrency = "USD"
	DefaultTimezone = "UTC"
)

// ParseAmount parses an exact decimal string into a positive money amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", s)
	}
	if !d.Equal(d.Round(MoneyScale)) {
		return decimal.Zero, fmt.Errorf("amount %s has more than %d decimal places", s, MoneyScale)
	}
	return d.Round(MoneyScale), nil
}
