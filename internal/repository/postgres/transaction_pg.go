// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const transactionColumns = `id, idempotency_key, organization_id, card_id, external_reference, station_id, station_name, amount, fuel_type, liters, status, decline_reason, processed_at, created_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction inserts a new transaction record into the database using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.IdempotencyKey,
		transaction.OrganizationID,
		transaction.CardID,
		transaction.ExternalReference,
		transaction.StationID,
		transaction.StationName,
		transaction.Amount,
		transaction.FuelType,
		transaction.Liters,
		transaction.Status,
		transaction.DeclineReason,
		transaction.ProcessedAt,
		transaction.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("idempotency key %q: %w", transaction.IdempotencyKey, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactionByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := q.GetContext(ctx, &transaction, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by ID %s: %w", id, err)
	}
	return &transaction, nil
}

// GetTransactionByIdempotencyKey retrieves the transaction recorded for an idempotency key.
func (r *TransactionRepository) GetTransactionByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := q.GetContext(ctx, &transaction, `SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by idempotency key %q: %w", key, err)
	}
	return &transaction, nil
}

// UpdateTransactionStatus performs a guarded status transition.
func (r *TransactionRepository) UpdateTransactionStatus(ctx context.Context, q repository.DBExecutor, id uuid.UUID, from []domain.TransactionStatus, next domain.TransactionStatus, processedAt *time.Time) error {
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	query := `UPDATE transactions SET status = $1, processed_at = COALESCE($2, processed_at)
              WHERE id = $3 AND status = ANY($4)`
	result, err := q.ExecContext(ctx, query, next, processedAt, id, pq.Array(allowed))
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating transaction %s: %w", id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %s to %s: %w", id, next, util.ErrInvalidTransition)
	}
	return nil
}

// SetDeclineReason records why a transaction did not go through, keeping any earlier reason.
func (r *TransactionRepository) SetDeclineReason(ctx context.Context, q repository.DBExecutor, id uuid.UUID, reason domain.DeclineReason) error {
	query := `UPDATE transactions SET decline_reason = $1 WHERE id = $2 AND decline_reason IS NULL`
	if _, err := q.ExecContext(ctx, query, reason, id); err != nil {
		return fmt.Errorf("failed to set decline reason of transaction %s: %w", id, err)
	}
	return nil
}

// ListTransactions retrieves a paginated list of transactions, newest first.
// It performs two queries: one for the data and one for the total count.
func (r *TransactionRepository) ListTransactions(ctx context.Context, q repository.DBExecutor, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.CardID != nil {
		args = append(args, *filter.CardID)
		conditions = append(conditions, fmt.Sprintf("card_id = $%d", len(args)))
	}
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	transactions := []domain.Transaction{}
	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2)
	err := q.SelectContext(ctx, &transactions, query, append(append([]interface{}{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	var totalCount int64
	if err := q.GetContext(ctx, &totalCount, `SELECT COUNT(*) FROM transactions`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get total transaction count: %w", err)
	}

	return transactions, totalCount, nil
}
