// internal/service/transaction_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/events"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pagination bounds for transaction listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ProcessTransactionInput is one fuel purchase submitted by a station.
type ProcessTransactionInput struct {
	CardNumber        string
	Amount            decimal.Decimal
	IdempotencyKey    string
	StationID         *string
	StationName       *string
	FuelType          *string
	Liters            decimal.NullDecimal
	ExternalReference *string
}

// TransactionResult is what a caller learns about a purchase. Status is APPROVED or DECLINED,
// or PENDING when a replayed key is still being processed by another request.
type TransactionResult struct {
	TransactionID uuid.UUID                `json:"transaction_id"`
	Status        domain.TransactionStatus `json:"status"`
	DeclineReason *domain.DeclineReason    `json:"decline_reason,omitempty"`
	Amount        decimal.Decimal          `json:"amount"`
	NewBalance    *decimal.Decimal         `json:"new_balance,omitempty"`
}

// resultFromRecord reports a stored transaction. A REVERSED row is a purchase that was declined
// after its debit was refunded.
func resultFromRecord(tx *domain.Transaction) *TransactionResult {
	status := tx.Status
	if status == domain.TransactionStatusReversed {
		status = domain.TransactionStatusDeclined
	}
	return &TransactionResult{
		TransactionID: tx.ID,
		Status:        status,
		DeclineReason: tx.DeclineReason,
		Amount:        tx.Amount,
	}
}

// TransactionService processes purchases exactly once per idempotency key.
type TransactionService interface {
	ProcessTransaction(ctx context.Context, input ProcessTransactionInput) (*TransactionResult, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error)
}

// transactionService implements the TransactionService interface.
type transactionService struct {
	dbExecutor      repository.DBExecutor
	transactionRepo repository.TransactionRepository
	saga            *ProcessTransactionSaga
	publisher       events.Publisher
	inFlight        *keyLock
	now             func() time.Time
	logger          *slog.Logger
}

// NewTransactionService creates a new instance of TransactionService.
func NewTransactionService(
	dbExecutor repository.DBExecutor,
	transactionRepo repository.TransactionRepository,
	saga *ProcessTransactionSaga,
	publisher events.Publisher,
	logger *slog.Logger,
) TransactionService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &transactionService{
		dbExecutor:      dbExecutor,
		transactionRepo: transactionRepo,
		saga:            saga,
		publisher:       publisher,
		inFlight:        newKeyLock(),
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger,
	}
}

// ProcessTransaction runs the purchase pipeline unless the idempotency key was seen before,
// in which case the recorded outcome is returned unchanged.
//
// Declines are results, not errors. The error is non-nil only for invalid input, an
// unreachable store, or a compensation that could not be applied; in the last case the
// declined result is returned alongside util.ErrCompensationIncomplete.
func (s *transactionService) ProcessTransaction(ctx context.Context, input ProcessTransactionInput) (*TransactionResult, error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, fmt.Errorf("process transaction: idempotency key is required: %w", util.ErrInvalidInput)
	}
	if strings.TrimSpace(input.CardNumber) == "" {
		return nil, fmt.Errorf("process transaction: card number is required: %w", util.ErrInvalidInput)
	}
	if !input.Amount.IsPositive() || !input.Amount.Equal(input.Amount.Round(domain.MoneyScale)) {
		return nil, fmt.Errorf("process transaction: amount must be positive with at most %d decimals: %w", domain.MoneyScale, util.ErrInvalidInput)
	}

	// Concurrent deliveries of one key wait here, then take the replay path below.
	unlock := s.inFlight.Lock(key)
	defer unlock()

	existing, err := s.transactionRepo.GetTransactionByIdempotencyKey(ctx, s.dbExecutor, key)
	if err == nil {
		s.logger.Info("Idempotent replay", "idempotency_key", key, "transaction_id", existing.ID, "status", existing.Status)
		return resultFromRecord(existing), nil
	}
	if !errors.Is(err, util.ErrNotFound) {
		return nil, fmt.Errorf("process transaction: idempotency lookup failed: %w", err)
	}

	data := &TransactionSagaData{
		CardNumber:     input.CardNumber,
		Amount:         input.Amount.Round(domain.MoneyScale),
		IdempotencyKey: key,
		Details: domain.PurchaseDetails{
			ExternalReference: input.ExternalReference,
			StationID:         input.StationID,
			StationName:       input.StationName,
			FuelType:          input.FuelType,
			Liters:            input.Liters,
		},
		PeriodTime: s.now(),
	}

	state := s.saga.Execute(ctx, data)
	if state.Succeeded() {
		newBalance := data.NewBalance
		s.publish(ctx, events.TypeTransactionApproved, data.Transaction, &newBalance)
		return &TransactionResult{
			TransactionID: data.Transaction.ID,
			Status:        domain.TransactionStatusApproved,
			Amount:        data.Amount,
			NewBalance:    &newBalance,
		}, nil
	}

	// Another request with the same key won the insert; report its record.
	if errors.Is(state.Err, util.ErrDuplicateEntry) && data.Transaction == nil {
		return s.replay(ctx, key)
	}

	reason := DeclineReasonFor(state.Err)
	s.logger.Info("Transaction declined",
		"saga_id", state.SagaID,
		"idempotency_key", key,
		"decline_reason", reason,
		"error", state.Error,
	)

	// The audit row is written even when the request was cancelled mid-saga.
	auditCtx := context.WithoutCancel(ctx)
	var result *TransactionResult
	if data.Transaction != nil {
		result, err = s.declineAfterDebit(auditCtx, data, reason)
	} else {
		result, err = s.recordDecline(auditCtx, data, reason)
	}
	if err != nil {
		return nil, err
	}

	if len(state.CompensationFailures) > 0 {
		return result, fmt.Errorf("process transaction %s: %d compensation(s) failed, first in %s: %w",
			result.TransactionID, len(state.CompensationFailures), state.CompensationFailures[0].Step, util.ErrCompensationIncomplete)
	}
	return result, nil
}

// declineAfterDebit handles a failure once the transaction row exists. A completed refund has
// already marked it REVERSED; the reason is stamped on it for replays. The reversed event is
// only sent once the refund is applied.
func (s *transactionService) declineAfterDebit(ctx context.Context, data *TransactionSagaData, reason domain.DeclineReason) (*TransactionResult, error) {
	if err := s.transactionRepo.SetDeclineReason(ctx, s.dbExecutor, data.Transaction.ID, reason); err != nil {
		s.logger.Error("Failed to record decline reason", "transaction_id", data.Transaction.ID, "error", err)
	}
	data.Transaction.DeclineReason = &reason

	if data.Transaction.Status == domain.TransactionStatusReversed {
		s.publish(ctx, events.TypeTransactionReversed, data.Transaction, nil)
	} else {
		s.logger.Error("Debit not refunded, reversed event withheld",
			"transaction_id", data.Transaction.ID, "status", data.Transaction.Status)
	}
	return &TransactionResult{
		TransactionID: data.Transaction.ID,
		Status:        domain.TransactionStatusDeclined,
		DeclineReason: &reason,
		Amount:        data.Amount,
	}, nil
}

// recordDecline writes the DECLINED audit row of a purchase that failed before any debit.
// Unknown cards are recorded against nil placeholder ids.
func (s *transactionService) recordDecline(ctx context.Context, data *TransactionSagaData, reason domain.DeclineReason) (*TransactionResult, error) {
	orgID, cardID := uuid.Nil, uuid.Nil
	if data.Card != nil {
		orgID, cardID = data.Card.OrganizationID, data.Card.ID
	}

	declined := domain.NewDeclinedTransaction(data.IdempotencyKey, orgID, cardID, data.Amount, data.Details, reason, s.now())
	if err := s.transactionRepo.CreateTransaction(ctx, s.dbExecutor, declined); err != nil {
		if errors.Is(err, util.ErrDuplicateEntry) {
			return s.replay(ctx, data.IdempotencyKey)
		}
		return nil, fmt.Errorf("process transaction: failed to record declined transaction: %w", err)
	}

	s.publish(ctx, events.TypeTransactionDeclined, declined, nil)
	return resultFromRecord(declined), nil
}

func (s *transactionService) replay(ctx context.Context, key string) (*TransactionResult, error) {
	existing, err := s.transactionRepo.GetTransactionByIdempotencyKey(ctx, s.dbExecutor, key)
	if err != nil {
		return nil, fmt.Errorf("process transaction: failed to reload transaction for key %q: %w", key, err)
	}
	return resultFromRecord(existing), nil
}

// publish never fails the purchase; delivery problems are only logged.
func (s *transactionService) publish(ctx context.Context, eventType string, tx *domain.Transaction, newBalance *decimal.Decimal) {
	event := events.NewTransactionEvent(eventType, tx, newBalance, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish transaction event", "type", eventType, "transaction_id", tx.ID, "error", err)
	}
}

func (s *transactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	tx, err := s.transactionRepo.GetTransactionByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: failed to get transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListTransactions retrieves a page of transactions, newest first. Out-of-range limits are
// clamped to [1, MaxPageLimit].
func (s *transactionService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	txs, total, err := s.transactionRepo.ListTransactions(ctx, s.dbExecutor, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	return txs, total, nil
}
