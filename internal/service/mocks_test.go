package service

import (
	"context"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockBalanceRepository is a mock implementation of repository.BalanceRepository.
type MockBalanceRepository struct {
	mock.Mock
}

func (m *MockBalanceRepository) CreateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	args := m.Called(ctx, q, balance)
	return args.Error(0)
}

func (m *MockBalanceRepository) GetBalanceByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, q, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockBalanceRepository) GetBalanceForUpdate(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	args := m.Called(ctx, q, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrganizationBalance), args.Error(1)
}

func (m *MockBalanceRepository) UpdateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	args := m.Called(ctx, q, balance)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of repository.LedgerRepository.
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) CreateLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.BalanceLedger) error {
	args := m.Called(ctx, q, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetLedgerByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error) {
	args := m.Called(ctx, q, organizationID, limit, offset)
	return args.Get(0).([]domain.BalanceLedger), args.Get(1).(int64), args.Error(2)
}

// MockSpendingCounterRepository is a mock implementation of repository.SpendingCounterRepository.
type MockSpendingCounterRepository struct {
	mock.Mock
}

func (m *MockSpendingCounterRepository) GetCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string) (*domain.CardSpendingCounter, error) {
	args := m.Called(ctx, q, cardID, periodType, periodKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardSpendingCounter), args.Error(1)
}

func (m *MockSpendingCounterRepository) IncrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) (bool, error) {
	args := m.Called(ctx, q, cardID, periodType, periodKey, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpendingCounterRepository) InsertCounter(ctx context.Context, q repository.DBExecutor, counter *domain.CardSpendingCounter) error {
	args := m.Called(ctx, q, counter)
	return args.Error(0)
}

func (m *MockSpendingCounterRepository) DecrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) error {
	args := m.Called(ctx, q, cardID, periodType, periodKey, amount)
	return args.Error(0)
}
