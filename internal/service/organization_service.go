// internal/service/organization_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrganizationInput holds the fields of a new organization.
type CreateOrganizationInput struct {
	Name           string
	Timezone       string
	Currency       string
	InitialBalance decimal.Decimal
}

// OrganizationService owns organizations and their prepaid balances. It is the only writer of
// organization_balances and balance_ledger.
type OrganizationService interface {
	CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*domain.Organization, *domain.OrganizationBalance, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	GetBalance(ctx context.Context, organizationID uuid.UUID) (*domain.OrganizationBalance, error)
	HasSufficientBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal) (bool, error)
	// DeductBalance debits amount inside the caller's transaction q, holding the balance row lock
	// until q ends. It returns util.ErrInsufficientBalance when the locked balance cannot cover it.
	DeductBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (*domain.OrganizationBalance, error)
	// CreditBalance credits amount inside the caller's transaction q.
	CreditBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, referenceType, referenceID string, transactionID *uuid.UUID) (*domain.OrganizationBalance, error)
	TopUpBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal, reference string) (*domain.OrganizationBalance, error)
	GetLedger(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error)
}

// organizationService implements the OrganizationService interface.
type organizationService struct {
	dbExecutor  repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	orgRepo     repository.OrganizationRepository
	balanceRepo repository.BalanceRepository
	ledgerRepo  repository.LedgerRepository
	tx          TxManager
	logger      *slog.Logger
}

// NewOrganizationService creates a new instance of OrganizationService.
func NewOrganizationService(
	dbExecutor repository.DBExecutor,
	orgRepo repository.OrganizationRepository,
	balanceRepo repository.BalanceRepository,
	ledgerRepo repository.LedgerRepository,
	tx TxManager,
	logger *slog.Logger,
) OrganizationService {
	return &organizationService{
		dbExecutor:  dbExecutor,
		orgRepo:     orgRepo,
		balanceRepo: balanceRepo,
		ledgerRepo:  ledgerRepo,
		tx:          tx,
		logger:      logger,
	}
}

// CreateOrganization creates the organization, its balance and, for a positive initial
// balance, the INITIAL_BALANCE ledger entry in one transaction.
func (s *organizationService) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*domain.Organization, *domain.OrganizationBalance, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("create organization: name is required: %w", util.ErrInvalidInput)
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, nil, fmt.Errorf("create organization: unknown timezone %q: %w", input.Timezone, util.ErrInvalidInput)
		}
	}
	if input.InitialBalance.IsNegative() {
		return nil, nil, fmt.Errorf("create organization: initial balance must not be negative: %w", util.ErrInvalidInput)
	}

	org := domain.NewOrganization(name, input.Timezone)
	balance := domain.NewOrganizationBalance(org.ID, input.Currency)

	err := s.tx.WithinTx(ctx, "create organization", func(q repository.DBExecutor) error {
		if err := s.orgRepo.CreateOrganization(ctx, q, org); err != nil {
			return fmt.Errorf("create organization: failed to create organization: %w", err)
		}
		if err := s.balanceRepo.CreateBalance(ctx, q, balance); err != nil {
			return fmt.Errorf("create organization: failed to create balance: %w", err)
		}
		if !input.InitialBalance.IsPositive() {
			return nil
		}
		credited, err := s.CreditBalance(ctx, q, org.ID, input.InitialBalance.Round(domain.MoneyScale), domain.LedgerRefInitialBalance, org.ID.String(), nil)
		if err != nil {
			return fmt.Errorf("create organization: %w", err)
		}
		balance = credited
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Organization created", "organization_id", org.ID, "initial_balance", balance.CurrentBalance.StringFixed(domain.MoneyScale))
	return org, balance, nil
}

func (s *organizationService) GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	org, err := s.orgRepo.GetOrganizationByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get organization: failed to get organization %s: %w", id, err)
	}
	return org, nil
}

func (s *organizationService) GetBalance(ctx context.Context, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	balance, err := s.balanceRepo.GetBalanceByOrganizationID(ctx, s.dbExecutor, organizationID)
	if err != nil {
		return nil, fmt.Errorf("get balance: failed to get balance of organization %s: %w", organizationID, err)
	}
	return balance, nil
}

// HasSufficientBalance is an unlocked read; DeductBalance re-checks under the row lock.
func (s *organizationService) HasSufficientBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal) (bool, error) {
	balance, err := s.GetBalance(ctx, organizationID)
	if err != nil {
		return false, err
	}
	return balance.CanCover(amount), nil
}

func (s *organizationService) DeductBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (*domain.OrganizationBalance, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("deduct balance: amount must be positive: %w", util.ErrInvalidInput)
	}

	balance, err := s.balanceRepo.GetBalanceForUpdate(ctx, q, organizationID)
	if err != nil {
		return nil, fmt.Errorf("deduct balance: failed to lock balance of organization %s: %w", organizationID, err)
	}
	if !balance.CanCover(amount) {
		return nil, fmt.Errorf("deduct balance: available %s, requested %s: %w",
			balance.AvailableBalance().StringFixed(domain.MoneyScale), amount.StringFixed(domain.MoneyScale), util.ErrInsufficientBalance)
	}

	entry := domain.NewLedgerEntry(organizationID, domain.LedgerEntryDebit, amount, balance.CurrentBalance,
		domain.LedgerRefTransaction, transactionID.String(), &transactionID)
	if err := s.applyEntry(ctx, q, balance, entry); err != nil {
		return nil, fmt.Errorf("deduct balance: %w", err)
	}
	return balance, nil
}

func (s *organizationService) CreditBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, referenceType, referenceID string, transactionID *uuid.UUID) (*domain.OrganizationBalance, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("credit balance: amount must be positive: %w", util.ErrInvalidInput)
	}

	balance, err := s.balanceRepo.GetBalanceForUpdate(ctx, q, organizationID)
	if err != nil {
		return nil, fmt.Errorf("credit balance: failed to lock balance of organization %s: %w", organizationID, err)
	}

	entry := domain.NewLedgerEntry(organizationID, domain.LedgerEntryCredit, amount, balance.CurrentBalance,
		referenceType, referenceID, transactionID)
	if err := s.applyEntry(ctx, q, balance, entry); err != nil {
		return nil, fmt.Errorf("credit balance: %w", err)
	}
	return balance, nil
}

// applyEntry moves the locked balance to entry.BalanceAfter and appends the entry.
// The two writes always share q, so a balance never changes without its ledger row.
func (s *organizationService) applyEntry(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance, entry *domain.BalanceLedger) error {
	if entry.BalanceAfter.IsNegative() {
		return util.ErrInsufficientBalance
	}
	balance.CurrentBalance = entry.BalanceAfter
	if err := s.balanceRepo.UpdateBalance(ctx, q, balance); err != nil {
		return fmt.Errorf("failed to update balance of organization %s: %w", balance.OrganizationID, err)
	}
	if err := s.ledgerRepo.CreateLedgerEntry(ctx, q, entry); err != nil {
		return fmt.Errorf("failed to append %s ledger entry: %w", entry.EntryType, err)
	}
	return nil
}

// TopUpBalance credits amount in its own transaction. An empty reference gets a generated one.
func (s *organizationService) TopUpBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal, reference string) (*domain.OrganizationBalance, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("top up: amount must be positive: %w", util.ErrInvalidInput)
	}
	if reference == "" {
		reference = "TOPUP-" + uuid.NewString()
	}

	var balance *domain.OrganizationBalance
	err := s.tx.WithinTx(ctx, "top up", func(q repository.DBExecutor) error {
		var err error
		balance, err = s.CreditBalance(ctx, q, organizationID, amount.Round(domain.MoneyScale), domain.LedgerRefTopUp, reference, nil)
		if err != nil {
			return fmt.Errorf("top up: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance topped up", "organization_id", organizationID, "amount", amount.StringFixed(domain.MoneyScale), "reference", reference)
	return balance, nil
}

// GetLedger retrieves a page of ledger entries, newest first.
func (s *organizationService) GetLedger(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error) {
	if _, err := s.GetOrganization(ctx, organizationID); err != nil {
		return nil, 0, err
	}
	entries, total, err := s.ledgerRepo.GetLedgerByOrganizationID(ctx, s.dbExecutor, organizationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get ledger: %w", err)
	}
	return entries, total, nil
}
