// internal/service/tx_manager.go
package service

import (
	"context"
	"fmt"

	"fleetfuel/internal/repository"
	"fleetfuel/pkg/db"
)

// TxManager carries the transaction functions injected into every service.
// Tests replace them to run services without a database.
type TxManager struct {
	Beginner   db.DBTxBeginner // For starting transactions (e.g., *sqlx.DB)
	BeginTx    db.BeginTxFunc
	CommitTx   db.CommitTxFunc
	RollbackTx db.RollbackTxFunc
}

// NewTxManager wires the pkg/db transaction functions to a connection.
func NewTxManager(beginner db.DBTxBeginner) TxManager {
	return TxManager{
		Beginner:   beginner,
		BeginTx:    db.BeginTx,
		CommitTx:   db.CommitTx,
		RollbackTx: db.RollbackTx,
	}
}

// WithinTx runs fn inside one database transaction and commits when fn returns nil.
// Errors returned by fn are passed through unchanged; the deferred rollback undoes its writes.
func (m TxManager) WithinTx(ctx context.Context, op string, fn func(q repository.DBExecutor) error) error {
	txController, err := m.BeginTx(ctx, m.Beginner)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer m.RollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
	}

	if err := fn(txExecutor); err != nil {
		return err
	}

	if err := m.CommitTx(txController); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return nil
}
