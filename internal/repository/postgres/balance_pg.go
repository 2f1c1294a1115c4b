// internal/repository/postgres/balance_pg.go
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
)

const balanceColumns = `id, organization_id, current_balance, reserved_balance, currency, version, created_at, updated_at`

// BalanceRepository implements repository.BalanceRepository for PostgreSQL.
type BalanceRepository struct{}

// NewBalanceRepository creates a new BalanceRepository.
func NewBalanceRepository() repository.BalanceRepository {
	return &BalanceRepository{}
}

// CreateBalance inserts the balance row of an organization.
func (r *BalanceRepository) CreateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	query := `INSERT INTO organization_balances (` + balanceColumns + `)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		balance.ID,
		balance.OrganizationID,
		balance.CurrentBalance,
		balance.ReservedBalance,
		balance.Currency,
		balance.Version,
		balance.CreatedAt,
		balance.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create balance for organization %s: %w", balance.OrganizationID, err)
	}
	return nil
}

// GetBalanceByOrganizationID reads a balance without taking a lock.
func (r *BalanceRepository) GetBalanceByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	return r.getBalance(ctx, q, `SELECT `+balanceColumns+` FROM organization_balances WHERE organization_id = $1`, organizationID)
}

// GetBalanceForUpdate reads a balance and locks its row for the rest of the transaction.
func (r *BalanceRepository) GetBalanceForUpdate(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	return r.getBalance(ctx, q, `SELECT `+balanceColumns+` FROM organization_balances WHERE organization_id = $1 FOR UPDATE`, organizationID)
}

func (r *BalanceRepository) getBalance(ctx context.Context, q repository.DBExecutor, query string, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	var balance domain.OrganizationBalance
	err := q.GetContext(ctx, &balance, query, organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get balance for organization %s: %w", organizationID, err)
	}
	return &balance, nil
}

// UpdateBalance writes the amounts guarded by the version read earlier.
func (r *BalanceRepository) UpdateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	now := time.Now().UTC()
	query := `UPDATE organization_balances
              SET current_balance = $1, reserved_balance = $2, version = version + 1, updated_at = $3
              WHERE id = $4 AND version = $5`
	result, err := q.ExecContext(ctx, query, balance.CurrentBalance, balance.ReservedBalance, now, balance.ID, balance.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance %s: %w", balance.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating balance %s: %w", balance.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance %s at version %d: %w", balance.ID, balance.Version, util.ErrConcurrentUpdate)
	}
	balance.Version++
	balance.UpdatedAt = now
	return nil
}

// LedgerRepository implements repository.LedgerRepository for PostgreSQL.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository() repository.LedgerRepository {
	return &LedgerRepository{}
}

// CreateLedgerEntry appends an entry and scans back its sequence number.
func (r *LedgerRepository) CreateLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.BalanceLedger) error {
	query := `INSERT INTO balance_ledger (id, organization_id, transaction_id, entry_type, amount, balance_before, balance_after, reference_type, reference_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING entry_seq`
	err := q.QueryRowContext(ctx, query,
		entry.ID,
		entry.OrganizationID,
		entry.TransactionID,
		entry.EntryType,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// GetLedgerByOrganizationID returns a page of ledger entries, newest first.
// It performs two queries: one for the data and one for the total count.
func (r *LedgerRepository) GetLedgerByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error) {
	entries := []domain.BalanceLedger{}

	query := `
		SELECT id, entry_seq, organization_id, transaction_id, entry_type, amount, balance_before, balance_after, reference_type, reference_id, created_at
		FROM balance_ledger
		WHERE organization_id = $1
		ORDER BY entry_seq DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &entries, query, organizationID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger for organization %s: %w", organizationID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM balance_ledger WHERE organization_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, organizationID); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries for organization %s: %w", organizationID, err)
	}

	return entries, totalCount, nil
}
