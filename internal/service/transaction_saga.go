// internal/service/transaction_saga.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/saga"
	"fleetfuel/internal/util"

	"github.com/shopspring/decimal"
)

// Step names of the purchase pipeline, in execution order.
const (
	StepValidateCard           = "ValidateCard"
	StepCheckBalance           = "CheckBalance"
	StepDeductBalance          = "DeductBalance"
	StepUpdateSpendingCounters = "UpdateSpendingCounters"
	StepApproveTransaction     = "ApproveTransaction"
)

// TransactionSagaData is the context shared by the purchase steps and their compensators.
type TransactionSagaData struct {
	CardNumber     string
	Amount         decimal.Decimal
	IdempotencyKey string
	Details        domain.PurchaseDetails
	// PeriodTime picks the counter periods. Update and rollback both use it, so a rollover
	// between them cannot decrement the wrong bucket.
	PeriodTime time.Time

	// Set by ValidateCard.
	Card         *domain.Card
	Organization *domain.Organization

	// Set by DeductBalance once its transaction commits.
	Transaction     *domain.Transaction
	BalanceDeducted bool
	NewBalance      decimal.Decimal

	// Set by UpdateSpendingCounters once its transaction commits.
	CountersUpdated bool
}

// Timezone is the organization's timezone, or UTC before ValidateCard ran.
func (d *TransactionSagaData) Timezone() string {
	if d.Organization == nil {
		return domain.DefaultTimezone
	}
	return d.Organization.TimezoneName()
}

// ProcessTransactionSaga defines the purchase pipeline over the balance and card collaborators.
type ProcessTransactionSaga struct {
	dbExecutor      repository.DBExecutor
	tx              TxManager
	orgService      OrganizationService
	cardService     CardService
	orgRepo         repository.OrganizationRepository
	transactionRepo repository.TransactionRepository
	now             func() time.Time
	logger          *slog.Logger
}

// NewProcessTransactionSaga creates the purchase pipeline.
func NewProcessTransactionSaga(
	dbExecutor repository.DBExecutor,
	tx TxManager,
	orgService OrganizationService,
	cardService CardService,
	orgRepo repository.OrganizationRepository,
	transactionRepo repository.TransactionRepository,
	logger *slog.Logger,
) *ProcessTransactionSaga {
	return &ProcessTransactionSaga{
		dbExecutor:      dbExecutor,
		tx:              tx,
		orgService:      orgService,
		cardService:     cardService,
		orgRepo:         orgRepo,
		transactionRepo: transactionRepo,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logger,
	}
}

// Build assembles a fresh orchestrator for one purchase.
func (p *ProcessTransactionSaga) Build() *saga.Orchestrator[*TransactionSagaData] {
	return saga.NewBuilder[*TransactionSagaData]().
		WithLogger(p.logger).
		AddFunc(StepValidateCard, p.validateCard, saga.NoCompensation[*TransactionSagaData]).
		AddFunc(StepCheckBalance, p.checkBalance, saga.NoCompensation[*TransactionSagaData]).
		AddFunc(StepDeductBalance, p.deductBalance, p.refundBalance).
		AddFunc(StepUpdateSpendingCounters, p.updateSpendingCounters, p.rollbackSpendingCounters).
		AddFunc(StepApproveTransaction, p.approveTransaction, saga.NoCompensation[*TransactionSagaData]).
		Build()
}

// Execute runs the pipeline once.
func (p *ProcessTransactionSaga) Execute(ctx context.Context, data *TransactionSagaData) *saga.State[*TransactionSagaData] {
	if data.PeriodTime.IsZero() {
		data.PeriodTime = p.now()
	}
	return p.Build().Execute(ctx, data)
}

func (p *ProcessTransactionSaga) validateCard(ctx context.Context, data *TransactionSagaData) error {
	card, err := p.cardService.FindCardByNumber(ctx, data.CardNumber)
	if err != nil {
		return err
	}
	data.Card = card

	org, err := p.orgRepo.GetOrganizationByID(ctx, p.dbExecutor, card.OrganizationID)
	if err != nil {
		return fmt.Errorf("failed to load organization %s: %w", card.OrganizationID, err)
	}
	data.Organization = org

	validation, err := p.cardService.ValidateCardForTransaction(ctx, card.ID, data.Amount, org.TimezoneName(), data.PeriodTime)
	if err != nil {
		return err
	}
	if !validation.Valid {
		return fmt.Errorf("card %s declined: %w", card.ID, errorForReason(validation.Reason))
	}

	if !org.IsActive() {
		return fmt.Errorf("organization %s is %s: %w", org.ID, org.Status, util.ErrOrganizationSuspended)
	}
	return nil
}

func (p *ProcessTransactionSaga) checkBalance(ctx context.Context, data *TransactionSagaData) error {
	ok, err := p.orgService.HasSufficientBalance(ctx, data.Card.OrganizationID, data.Amount)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("organization %s cannot cover %s: %w", data.Card.OrganizationID, data.Amount.StringFixed(domain.MoneyScale), util.ErrInsufficientBalance)
	}
	return nil
}

// deductBalance creates the PENDING transaction and debits the balance in one database
// transaction. The context is only updated after commit.
func (p *ProcessTransactionSaga) deductBalance(ctx context.Context, data *TransactionSagaData) error {
	transaction := domain.NewTransaction(data.IdempotencyKey, data.Card.OrganizationID, data.Card.ID, data.Amount, data.Details)

	var balance *domain.OrganizationBalance
	err := p.tx.WithinTx(ctx, "deduct balance", func(q repository.DBExecutor) error {
		if err := p.transactionRepo.CreateTransaction(ctx, q, transaction); err != nil {
			return err
		}
		var err error
		balance, err = p.orgService.DeductBalance(ctx, q, data.Card.OrganizationID, data.Amount, transaction.ID)
		return err
	})
	if err != nil {
		return err
	}

	data.Transaction = transaction
	data.BalanceDeducted = true
	data.NewBalance = balance.CurrentBalance
	return nil
}

// refundBalance credits the debit back under a REFUND-<id> reference and marks the
// transaction REVERSED. The guarded status update makes a second refund impossible.
func (p *ProcessTransactionSaga) refundBalance(ctx context.Context, data *TransactionSagaData) error {
	if !data.BalanceDeducted || data.Transaction == nil {
		return nil
	}
	id := data.Transaction.ID
	processedAt := p.now()

	var balance *domain.OrganizationBalance
	err := p.tx.WithinTx(ctx, "refund balance", func(q repository.DBExecutor) error {
		err := p.transactionRepo.UpdateTransactionStatus(ctx, q, id,
			[]domain.TransactionStatus{domain.TransactionStatusPending, domain.TransactionStatusApproved},
			domain.TransactionStatusReversed, &processedAt)
		if err != nil {
			return err
		}
		balance, err = p.orgService.CreditBalance(ctx, q, data.Transaction.OrganizationID, data.Amount,
			domain.LedgerRefRefund, domain.RefundReference(id), &id)
		return err
	})
	if err != nil {
		return err
	}

	data.BalanceDeducted = false
	data.NewBalance = balance.CurrentBalance
	data.Transaction.Status = domain.TransactionStatusReversed
	data.Transaction.ProcessedAt = &processedAt
	return nil
}

func (p *ProcessTransactionSaga) updateSpendingCounters(ctx context.Context, data *TransactionSagaData) error {
	err := p.tx.WithinTx(ctx, "update spending counters", func(q repository.DBExecutor) error {
		return p.cardService.UpdateSpendingCounters(ctx, q, data.Card.ID, data.Amount, data.Timezone(), data.PeriodTime)
	})
	if err != nil {
		return err
	}
	data.CountersUpdated = true
	return nil
}

func (p *ProcessTransactionSaga) rollbackSpendingCounters(ctx context.Context, data *TransactionSagaData) error {
	if !data.CountersUpdated {
		return nil
	}
	err := p.tx.WithinTx(ctx, "rollback spending counters", func(q repository.DBExecutor) error {
		return p.cardService.RollbackSpendingCounters(ctx, q, data.Card.ID, data.Amount, data.Timezone(), data.PeriodTime)
	})
	if err != nil {
		return err
	}
	data.CountersUpdated = false
	return nil
}

// approveTransaction is the last step, so a failure here is undone by the counter and
// balance compensators alone.
func (p *ProcessTransactionSaga) approveTransaction(ctx context.Context, data *TransactionSagaData) error {
	processedAt := p.now()
	err := p.tx.WithinTx(ctx, "approve transaction", func(q repository.DBExecutor) error {
		return p.transactionRepo.UpdateTransactionStatus(ctx, q, data.Transaction.ID,
			[]domain.TransactionStatus{domain.TransactionStatusPending}, domain.TransactionStatusApproved, &processedAt)
	})
	if err != nil {
		return err
	}
	data.Transaction.Status = domain.TransactionStatusApproved
	data.Transaction.ProcessedAt = &processedAt
	return nil
}

// errorForReason turns a validator decision into the step failure that drives the saga.
func errorForReason(reason domain.DeclineReason) error {
	switch reason {
	case domain.DeclineDailyLimitExceeded:
		return util.ErrDailyLimitExceeded
	case domain.DeclineMonthlyLimitExceeded:
		return util.ErrMonthlyLimitExceeded
	case domain.DeclineInsufficientBalance:
		return util.ErrInsufficientBalance
	case domain.DeclineOrganizationSuspended:
		return util.ErrOrganizationSuspended
	case domain.DeclineCardNotFound:
		return util.ErrCardNotFound
	default:
		return util.ErrCardInactive
	}
}

// DeclineReasonFor maps a saga failure onto a decline reason. Anything unrecognized,
// infrastructure errors included, is reported as CARD_INACTIVE.
func DeclineReasonFor(err error) domain.DeclineReason {
	switch {
	case errors.Is(err, util.ErrCardNotFound):
		return domain.DeclineCardNotFound
	case errors.Is(err, util.ErrDailyLimitExceeded):
		return domain.DeclineDailyLimitExceeded
	case errors.Is(err, util.ErrMonthlyLimitExceeded):
		return domain.DeclineMonthlyLimitExceeded
	case errors.Is(err, util.ErrInsufficientBalance):
		return domain.DeclineInsufficientBalance
	case errors.Is(err, util.ErrOrganizationSuspended):
		return domain.DeclineOrganizationSuspended
	default:
		return domain.DeclineCardInactive
	}
}
