package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/service"
)

// MockWebhookService is a mock implementation of service.WebhookService.
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleTransactionWebhook(ctx context.Context, payload json.RawMessage, input service.ProcessTransactionInput) (*service.TransactionResult, error) {
	args := m.Called(ctx, payload, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransactionResult), args.Error(1)
}

// MockTransactionService is a mock implementation of service.TransactionService.
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) ProcessTransaction(ctx context.Context, input service.ProcessTransactionInput) (*service.TransactionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TransactionResult), args.Error(1)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]domain.Transaction), args.Get(1).(int64), args.Error(2)
}

// MockOrganizationService is a mock implementation of service.OrganizationService.
type MockOrganizationService struct {
	mock.Mock
}

func (m *MockOrganizationService) CreateOrganization(ctx context.Context, input service.CreateOrganizationInput) (*domain.Organization, *domain.OrganizationBalance, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Organization), args.Get(1).(*domain.OrganizationBalance), args.Error(2)
}

func (m *MockOrganizationService) GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrganizationService) GetBalance(ctx context.Context, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockOrganizationService) HasSufficientBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, organizationID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrganizationService) DeductBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, transactionID uuid.UUID) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, q, organizationID, amount, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockOrganizationService) CreditBalance(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, amount decimal.Decimal, referenceType, referenceID string, transactionID *uuid.UUID) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, q, organizationID, amount, referenceType, referenceID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockOrganizationService) TopUpBalance(ctx context.Context, organizationID uuid.UUID, amount decimal.Decimal, reference string) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, organizationID, amount, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockOrganizationService) GetLedger(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error) {
	args := m.Called(ctx, organizationID, limit, offset)
	return args.Get(0).([]domain.BalanceLedger), args.Get(1).(int64), args.Error(2)
}

// MockCardService is a mock implementation of service.CardService.
type MockCardService struct {
	mock.Mock
}

func (m *MockCardService) CreateCard(ctx context.Context, input service.CreateCardInput) (*domain.Card, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardService) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardService) FindCardByNumber(ctx context.Context, cardNumber string) (*domain.Card, error) {
	args := m.Called(ctx, cardNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardService) GetSpending(ctx context.Context, cardID uuid.UUID, timezone string) (*domain.CardSpending, error) {
	args := m.Called(ctx, cardID, timezone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardSpending), args.Error(1)
}

func (m *MockCardService) ValidateCardForTransaction(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) (domain.SpendingValidation, error) {
	args := m.Called(ctx, cardID, amount, timezone, at)
	return args.Get(0).(domain.SpendingValidation), args.Error(1)
}

func (m *MockCardService) UpdateSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error {
	args := m.Called(ctx, q, cardID, amount, timezone, at)
	return args.Error(0)
}

func (m *MockCardService) RollbackSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error {
	args := m.Called(ctx, q, cardID, amount, timezone, at)
	return args.Error(0)
}
