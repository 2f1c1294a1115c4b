// internal/repository/postgres/card_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, organization_id, card_number, card_number_hash, status, daily_limit, monthly_limit, holder_name, expiry_date, created_at, updated_at`

// CardRepository implements repository.CardRepository for PostgreSQL.
type CardRepository struct{}

// NewCardRepository creates a new CardRepository.
func NewCardRepository() repository.CardRepository {
	return &CardRepository{}
}

// CreateCard inserts a new card using the provided DBExecutor.
func (r *CardRepository) CreateCard(ctx context.Context, q repository.DBExecutor, card *domain.Card) error {
	query := `INSERT INTO cards (` + cardColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := q.ExecContext(ctx, query,
		card.ID,
		card.OrganizationID,
		card.CardNumber,
		card.CardNumberHash,
		card.Status,
		card.DailyLimit,
		card.MonthlyLimit,
		card.HolderName,
		card.ExpiryDate,
		card.CreatedAt,
		card.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// GetCardByID retrieves a card by its ID.
func (r *CardRepository) GetCardByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Card, error) {
	var card domain.Card
	err := q.GetContext(ctx, &card, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card by ID %s: %w", id, err)
	}
	return &card, nil
}

// GetCardByNumberHash retrieves a card by the hash of its clear number.
func (r *CardRepository) GetCardByNumberHash(ctx context.Context, q repository.DBExecutor, hash string) (*domain.Card, error) {
	var card domain.Card
	err := q.GetContext(ctx, &card, `SELECT `+cardColumns+` FROM cards WHERE card_number_hash = $1`, hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get card by number hash: %w", err)
	}
	return &card, nil
}

// SpendingCounterRepository implements repository.SpendingCounterRepository for PostgreSQL.
type SpendingCounterRepository struct{}

// NewSpendingCounterRepository creates a new SpendingCounterRepository.
func NewSpendingCounterRepository() repository.SpendingCounterRepository {
	return &SpendingCounterRepository{}
}

// GetCounter returns the counter of a single period.
func (r *SpendingCounterRepository) GetCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string) (*domain.CardSpendingCounter, error) {
	var counter domain.CardSpendingCounter
	query := `SELECT id, card_id, period_type, period_key, amount_spent, transaction_count, version, created_at, updated_at
              FROM card_spending_counters
              WHERE card_id = $1 AND period_type = $2 AND period_key = $3`
	err := q.GetContext(ctx, &counter, query, cardID, periodType, periodKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s counter %s for card %s: %w", periodType, periodKey, cardID, err)
	}
	return &counter, nil
}

// IncrementCounter adds amount in a single statement so concurrent spends never lose an update.
func (r *SpendingCounterRepository) IncrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) (bool, error) {
	query := `UPDATE card_spending_counters
              SET amount_spent = amount_spent + $1, transaction_count = transaction_count + 1, version = version + 1, updated_at = $2
              WHERE card_id = $3 AND period_type = $4 AND period_key = $5`
	result, err := q.ExecContext(ctx, query, amount, time.Now().UTC(), cardID, periodType, periodKey)
	if err != nil {
		return false, fmt.Errorf("failed to increment %s counter %s for card %s: %w", periodType, periodKey, cardID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected after incrementing counter: %w", err)
	}
	return rowsAffected > 0, nil
}

// InsertCounter creates the first row of a period. ON CONFLICT DO NOTHING keeps the
// surrounding transaction usable when another spend created the row first.
func (r *SpendingCounterRepository) InsertCounter(ctx context.Context, q repository.DBExecutor, counter *domain.CardSpendingCounter) error {
	query := `INSERT INTO card_spending_counters (id, card_id, period_type, period_key, amount_spent, transaction_count, version, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
              ON CONFLICT ON CONSTRAINT uq_card_spending_counters_period DO NOTHING`
	result, err := q.ExecContext(ctx, query,
		counter.ID,
		counter.CardID,
		counter.PeriodType,
		counter.PeriodKey,
		counter.AmountSpent,
		counter.TransactionCount,
		counter.Version,
		counter.CreatedAt,
		counter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s counter %s for card %s: %w", counter.PeriodType, counter.PeriodKey, counter.CardID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after inserting counter: %w", err)
	}
	if rowsAffected == 0 {
		return util.ErrDuplicateEntry
	}
	return nil
}

// DecrementCounter subtracts amount and one transaction, clamped at zero.
func (r *SpendingCounterRepository) DecrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) error {
	query := `UPDATE card_spending_counters
              SET amount_spent = GREATEST(0, amount_spent - $1),
                  transaction_count = GREATEST(0, transaction_count - 1),
                  version = version + 1,
                  updated_at = $2
              WHERE card_id = $3 AND period_type = $4 AND period_key = $5`
	result, err := q.ExecContext(ctx, query, amount, time.Now().UTC(), cardID, periodType, periodKey)
	if err != nil {
		return fmt.Errorf("failed to decrement %s counter %s for card %s: %w", periodType, periodKey, cardID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after decrementing counter: %w", err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
