package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewCardSpending(t *testing.T) {
	card := NewCard(uuid.New(), "4111111111111111", dec("500"), dec("5000"))

	t.Run("no counters yet", func(t *testing.T) {
		s := NewCardSpending(card, nil, nil, "2024-01-15")
		assert.True(t, s.DailySpent.IsZero())
		assert.True(t, s.DailyRemaining.Equal(dec("500")))
		assert.True(t, s.MonthlyRemaining.Equal(dec("5000")))
		assert.Equal(t, "2024-01-15", s.PeriodDate)
	})

	t.Run("existing counters", func(t *testing.T) {
		daily := NewSpendingCounter(card.ID, PeriodDaily, "2024-01-15", dec("120.50"))
		monthly := NewSpendingCounter(card.ID, PeriodMonthly, "2024-01", dec("4900"))
		s := NewCardSpending(card, daily, monthly, "2024-01-15")
		assert.True(t, s.DailyRemaining.Equal(dec("379.50")))
		assert.True(t, s.MonthlyRemaining.Equal(dec("100")))
	})
}

func TestValidateSpending(t *testing.T) {
	now := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	orgID := uuid.New()

	fresh := func() *Card {
		return NewCard(orgID, "4111111111111111", dec("500"), dec("5000"))
	}

	t.Run("within limits", func(t *testing.T) {
		card := fresh()
		v := ValidateSpending(card, NewCardSpending(card, nil, nil, ""), dec("100"), now)
		assert.True(t, v.Valid)
		assert.Empty(t, v.Reason)
	})

	t.Run("exactly the remaining daily amount is allowed", func(t *testing.T) {
		card := fresh()
		daily := NewSpendingCounter(card.ID, PeriodDaily, "", dec("400"))
		v := ValidateSpending(card, NewCardSpending(card, daily, nil, ""), dec("100"), now)
		assert.True(t, v.Valid)
	})

	t.Run("daily limit", func(t *testing.T) {
		card := fresh()
		v := ValidateSpending(card, NewCardSpending(card, nil, nil, ""), dec("600"), now)
		assert.False(t, v.Valid)
		assert.Equal(t, DeclineDailyLimitExceeded, v.Reason)
	})

	t.Run("monthly limit", func(t *testing.T) {
		card := fresh()
		monthly := NewSpendingCounter(card.ID, PeriodMonthly, "", dec("4950"))
		v := ValidateSpending(card, NewCardSpending(card, nil, monthly, ""), dec("100"), now)
		assert.Equal(t, DeclineMonthlyLimitExceeded, v.Reason)
	})

	t.Run("status is checked before limits", func(t *testing.T) {
		card := fresh()
		card.Status = CardStatusBlocked
		v := ValidateSpending(card, NewCardSpending(card, nil, nil, ""), dec("600"), now)
		assert.Equal(t, DeclineCardInactive, v.Reason)
	})

	t.Run("expired card is inactive", func(t *testing.T) {
		card := fresh()
		expiry := now.Add(-24 * time.Hour)
		card.ExpiryDate = &expiry
		v := ValidateSpending(card, NewCardSpending(card, nil, nil, ""), dec("10"), now)
		assert.Equal(t, DeclineCardInactive, v.Reason)
	})
}
