// internal/domain/card.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus defines the lifecycle state of a fuel card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
	CardStatusPending CardStatus = "PENDING"
)

// Default limits applied when a card is issued without explicit ones.
var (
	DefaultDailyLimit   = decimal.RequireFromString("500.00")
	DefaultMonthlyLimit = decimal.RequireFromString("5000.00")
)

// Card is a fuel card drawing on its organization's balance.
// The clear card number is never stored: only the masked form and its SHA-256 hash.
type Card struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrganizationID uuid.UUID       `db:"organization_id" json:"organization_id"`
	CardNumber     string          `db:"card_number" json:"card_number"` // masked
	CardNumberHash string          `db:"card_number_hash" json:"-"`
	Status         CardStatus      `db:"status" json:"status"`
	DailyLimit     decimal.Decimal `db:"daily_limit" json:"daily_limit"`
	MonthlyLimit   decimal.Decimal `db:"monthly_limit" json:"monthly_limit"`
	HolderName     *string         `db:"holder_name" json:"holder_name,omitempty"`
	ExpiryDate     *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// NewCard creates an active card for the given clear card number.
func NewCard(organizationID uuid.UUID, cardNumber string, dailyLimit, monthlyLimit decimal.Decimal) *Card {
	if dailyLimit.IsZero() {
		dailyLimit = DefaultDailyLimit
	}
	if monthlyLimit.IsZero() {
		monthlyLimit = DefaultMonthlyLimit
	}
	now := time.Now().UTC()
	return &Card{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		CardNumber:     MaskCardNumber(cardNumber),
		CardNumberHash: HashCardNumber(cardNumber),
		Status:         CardStatusActive,
		DailyLimit:     dailyLimit,
		MonthlyLimit:   monthlyLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// IsExpired reports whether the card's expiry date lies before now.
func (c *Card) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// PeriodType is the granularity of a spending counter.
type PeriodType string

const (
	PeriodDaily   PeriodType = "DAILY"
	PeriodWeekly  PeriodType = "WEEKLY"
	PeriodMonthly PeriodType = "MONTHLY"
)

// CardSpendingCounter is the running spend of one card in one calendar period.
// Rows are created lazily on first spend and never deleted.
type CardSpendingCounter struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	CardID           uuid.UUID       `db:"card_id" json:"card_id"`
	PeriodType       PeriodType      `db:"period_type" json:"period_type"`
	PeriodKey        string          `db:"period_key" json:"period_key"`
	AmountSpent      decimal.Decimal `db:"amount_spent" json:"amount_spent"`
	TransactionCount int             `db:"transaction_count" json:"transaction_count"`
	Version          int64           `db:"version" json:"version"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// NewSpendingCounter creates the first counter row of a period, already holding amount.
func NewSpendingCounter(cardID uuid.UUID, periodType PeriodType, periodKey string, amount decimal.Decimal) *CardSpendingCounter {
	now := time.Now().UTC()
	return &CardSpendingCounter{
		ID:               uuid.New(),
		CardID:           cardID,
		PeriodType:       periodType,
		PeriodKey:        periodKey,
		AmountSpent:      amount,
		TransactionCount: 1,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// CounterPeriod identifies the bucket a spending counter belongs to.
type CounterPeriod struct {
	Type PeriodType
	Key  string
}
