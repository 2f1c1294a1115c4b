// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"fleetfuel/internal/domain"

	"github.com/google/uuid"
)

// TransactionFilter narrows ListTransactions. Nil fields are ignored.
type TransactionFilter struct {
	CardID         *uuid.UUID
	OrganizationID *uuid.UUID
}

// TransactionRepository defines the interface for transaction data operations.
type TransactionRepository interface {
	// CreateTransaction adds a new transaction record. A reused idempotency key yields
	// util.ErrDuplicateEntry.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// GetTransactionByID retrieves a transaction by its ID.
	GetTransactionByID(ctx context.Context, q DBExecutor, id uuid.UUID) (*domain.Transaction, error)
	// GetTransactionByIdempotencyKey retrieves the transaction recorded for key.
	GetTransactionByIdempotencyKey(ctx context.Context, q DBExecutor, key string) (*domain.Transaction, error)
	// UpdateTransactionStatus moves a transaction from one of the allowed statuses to next.
	// It returns util.ErrInvalidTransition when the stored status is not in from.
	UpdateTransactionStatus(ctx context.Context, q DBExecutor, id uuid.UUID, from []domain.TransactionStatus, next domain.TransactionStatus, processedAt *time.Time) error
	// SetDeclineReason stamps a reason on a transaction that has none yet.
	SetDeclineReason(ctx context.Context, q DBExecutor, id uuid.UUID, reason domain.DeclineReason) error
	// ListTransactions returns transactions newest first plus the total count.
	ListTransactions(ctx context.Context, q DBExecutor, filter TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error)
}
