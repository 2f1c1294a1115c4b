// internal/repository/card_repo.go
package repository

import (
	"context"

	"fleetfuel/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardRepository defines the interface for card data operations.
type CardRepository interface {
	// CreateCard inserts a card. A duplicate card number hash yields util.ErrDuplicateEntry.
	CreateCard(ctx context.Context, q DBExecutor, card *domain.Card) error
	// GetCardByID retrieves a card by its ID.
	GetCardByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Card, error)
	// GetCardByNumberHash retrieves a card by the SHA-256 hash of its number.
	GetCardByNumberHash(ctx context.Context, q DBExecutor, hash string) (*domain.Card, error)
}

// SpendingCounterRepository defines the interface for per-period card spending counters.
type SpendingCounterRepository interface {
	// GetCounter returns the counter of one period or util.ErrNotFound.
	GetCounter(ctx context.Context, q DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string) (*domain.CardSpendingCounter, error)
	// IncrementCounter atomically adds amount and one transaction to an existing counter.
	// It reports false when no row exists for the period.
	IncrementCounter(ctx context.Context, q DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) (bool, error)
	// InsertCounter creates the first row of a period. If a concurrent insert got there first
	// it returns util.ErrDuplicateEntry without aborting q's transaction.
	InsertCounter(ctx context.Context, q DBExecutor, counter *domain.CardSpendingCounter) error
	// DecrementCounter subtracts amount and one transaction, never going below zero.
	DecrementCounter(ctx context.Context, q DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) error
}
