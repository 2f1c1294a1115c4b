// internal/repository/balance_repo.go
package repository

import (
	"context"

	"fleetfuel/internal/domain"

	"github.com/google/uuid"
)

// BalanceRepository defines the interface for organization balance data operations.
// No code path outside the balance service writes balances.
type BalanceRepository interface {
	// CreateBalance inserts the balance row of a new organization.
	CreateBalance(ctx context.Context, q DBExecutor, balance *domain.OrganizationBalance) error
	// GetBalanceByOrganizationID reads the balance without locking.
	GetBalanceByOrganizationID(ctx context.Context, q DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error)
	// GetBalanceForUpdate reads the balance and holds a row lock until q's transaction ends.
	// q must be a transaction.
	GetBalanceForUpdate(ctx context.Context, q DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error)
	// UpdateBalance writes CurrentBalance and ReservedBalance if the stored version still equals
	// balance.Version, then bumps balance.Version. A stale version yields util.ErrConcurrentUpdate.
	UpdateBalance(ctx context.Context, q DBExecutor, balance *domain.OrganizationBalance) error
}

// LedgerRepository appends to and reads the balance ledger. Entries are never updated.
type LedgerRepository interface {
	// CreateLedgerEntry appends an entry and fills in its sequence number.
	CreateLedgerEntry(ctx context.Context, q DBExecutor, entry *domain.BalanceLedger) error
	// GetLedgerByOrganizationID returns entries newest first plus the total count.
	GetLedgerByOrganizationID(ctx context.Context, q DBExecutor, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error)
}
