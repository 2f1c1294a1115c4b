// internal/domain/spending.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardSpending summarizes a card's spend in its current daily and monthly periods.
type CardSpending struct {
	DailySpent       decimal.Decimal `json:"daily_spent"`
	DailyRemaining   decimal.Decimal `json:"daily_remaining"`
	MonthlySpent     decimal.Decimal `json:"monthly_spent"`
	MonthlyRemaining decimal.Decimal `json:"monthly_remaining"`
	PeriodDate       string          `json:"period_date"`
}

// NewCardSpending computes remaining amounts from the limits and the current counters.
// A nil counter means nothing was spent in that period yet.
func NewCardSpending(card *Card, daily, monthly *CardSpendingCounter, periodDate string) CardSpending {
	dailySpent := spentOf(daily)
	monthlySpent := spentOf(monthly)
	return CardSpending{
		DailySpent:       dailySpent,
		DailyRemaining:   card.DailyLimit.Sub(dailySpent).Round(MoneyScale),
		MonthlySpent:     monthlySpent,
		MonthlyRemaining: card.MonthlyLimit.Sub(monthlySpent).Round(MoneyScale),
		PeriodDate:       periodDate,
	}
}

func spentOf(c *CardSpendingCounter) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return c.AmountSpent
}

// SpendingValidation is the outcome of ValidateSpending. Reason is empty when Valid.
type SpendingValidation struct {
	Valid  bool          `json:"valid"`
	Reason DeclineReason `json:"reason,omitempty"`
}

// ValidateSpending decides whether card may spend amount given its current-period spend.
// Exactly one reason is reported, checked in order: status, expiry, daily, monthly.
// An expired card is reported as CARD_INACTIVE.
func ValidateSpending(card *Card, spending CardSpending, amount decimal.Decimal, now time.Time) SpendingValidation {
	switch {
	case card.Status != CardStatusActive:
		return SpendingValidation{Reason: DeclineCardInactive}
	case card.IsExpired(now):
		return SpendingValidation{Reason: DeclineCardInactive}
	case spending.DailyRemaining.LessThan(amount):
		return SpendingValidation{Reason: DeclineDailyLimitExceeded}
	case spending.MonthlyRemaining.LessThan(amount):
		return SpendingValidation{Reason: DeclineMonthlyLimitExceeded}
	}
	return SpendingValidation{Valid: true}
}
