// internal/service/card_service.go
package service

import (
	"context"
	"errors"
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

// CreateCardInput holds the fields of a new card. Zero limits fall back to the defaults.
type CreateCardInput struct {
	OrganizationID uuid.UUID
	CardNumber     string
	DailyLimit     decimal.Decimal
	MonthlyLimit   decimal.Decimal
	HolderName     *string
	ExpiryDate     *time.Time
}

// CardService owns cards and their spending counters. It is the only writer of
// card_spending_counters.
type CardService interface {
	CreateCard(ctx context.Context, input CreateCardInput) (*domain.Card, error)
	GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	// FindCardByNumber hashes the clear number and looks the card up; util.ErrCardNotFound if absent.
	FindCardByNumber(ctx context.Context, cardNumber string) (*domain.Card, error)
	GetSpending(ctx context.Context, cardID uuid.UUID, timezone string) (*domain.CardSpending, error)
	ValidateCardForTransaction(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) (domain.SpendingValidation, error)
	// UpdateSpendingCounters adds amount to the daily and monthly counters of the periods that
	// `at` falls into in timezone, inside the caller's transaction q.
	UpdateSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error
	// RollbackSpendingCounters undoes UpdateSpendingCounters for the same `at`, clamped at zero.
	RollbackSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error
}

// cardService implements the CardService interface.
type cardService struct {
	dbExecutor  repository.DBExecutor
	orgRepo     repository.OrganizationRepository
	cardRepo    repository.CardRepository
	counterRepo repository.SpendingCounterRepository
	now         func() time.Time
	logger      *slog.Logger
}

// NewCardService creates a new instance of CardService.
func NewCardService(
	dbExecutor repository.DBExecutor,
	orgRepo repository.OrganizationRepository,
	cardRepo repository.CardRepository,
	counterRepo repository.SpendingCounterRepository,
	logger *slog.Logger,
) CardService {
	return &cardService{
		dbExecutor:  dbExecutor,
		orgRepo:     orgRepo,
		cardRepo:    cardRepo,
		counterRepo: counterRepo,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

func (s *cardService) CreateCard(ctx context.Context, input CreateCardInput) (*domain.Card, error) {
	number := strings.ReplaceAll(input.CardNumber, " ", "")
	if len(number) < 12 || len(number) > 19 {
		return nil, fmt.Errorf("create card: card number must have 12 to 19 digits: %w", util.ErrInvalidInput)
	}
	if input.DailyLimit.IsNegative() || input.MonthlyLimit.IsNegative() {
		return nil, fmt.Errorf("create card: limits must not be negative: %w", util.ErrInvalidInput)
	}

	if _, err := s.orgRepo.GetOrganizationByID(ctx, s.dbExecutor, input.OrganizationID); err != nil {
		return nil, fmt.Errorf("create card: failed to get organization %s: %w", input.OrganizationID, err)
	}

	card := domain.NewCard(input.OrganizationID, number, input.DailyLimit, input.MonthlyLimit)
	card.HolderName = input.HolderName
	card.ExpiryDate = input.ExpiryDate

	if err := s.cardRepo.CreateCard(ctx, s.dbExecutor, card); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}

	s.logger.Info("Card issued", "card_id", card.ID, "organization_id", card.OrganizationID, "card_number", card.CardNumber)
	return card, nil
}

func (s *cardService) GetCard(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	card, err := s.cardRepo.GetCardByID(ctx, s.dbExecutor, id)
	if err != nil {
		return nil, fmt.Errorf("get card: failed to get card %s: %w", id, err)
	}
	return card, nil
}

func (s *cardService) FindCardByNumber(ctx context.Context, cardNumber string) (*domain.Card, error) {
	card, err := s.cardRepo.GetCardByNumberHash(ctx, s.dbExecutor, domain.HashCardNumber(strings.ReplaceAll(cardNumber, " ", "")))
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, fmt.Errorf("card ending %s: %w", domain.LastFour(cardNumber), util.ErrCardNotFound)
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (s *cardService) GetSpending(ctx context.Context, cardID uuid.UUID, timezone string) (*domain.CardSpending, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	spending, err := s.spendingAt(ctx, card, domain.LoadLocation(timezone), s.now())
	if err != nil {
		return nil, err
	}
	return &spending, nil
}

// spendingAt reads the counters of the periods that `at` falls into. Missing rows count as zero.
func (s *cardService) spendingAt(ctx context.Context, card *domain.Card, loc *time.Location, at time.Time) (domain.CardSpending, error) {
	counters := make(map[domain.PeriodType]*domain.CardSpendingCounter, 2)
	for _, p := range domain.LimitPeriods(at, loc) {
		counter, err := s.counterRepo.GetCounter(ctx, s.dbExecutor, card.ID, p.Type, p.Key)
		if err != nil && !errors.Is(err, util.ErrNotFound) {
			return domain.CardSpending{}, fmt.Errorf("get spending: failed to read %s counter: %w", p.Type, err)
		}
		counters[p.Type] = counter
	}
	return domain.NewCardSpending(card, counters[domain.PeriodDaily], counters[domain.PeriodMonthly], domain.DailyPeriodKey(at, loc)), nil
}

// ValidateCardForTransaction checks the card against the periods that `at` falls into. The
// purchase pipeline passes the same instant it later increments the counters with.
func (s *cardService) ValidateCardForTransaction(ctx context.Context, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) (domain.SpendingValidation, error) {
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return domain.SpendingValidation{}, err
	}
	spending, err := s.spendingAt(ctx, card, domain.LoadLocation(timezone), at)
	if err != nil {
		return domain.SpendingValidation{}, err
	}
	return domain.ValidateSpending(card, spending, amount, at), nil
}

func (s *cardService) UpdateSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error {
	for _, p := range domain.LimitPeriods(at, domain.LoadLocation(timezone)) {
		if err := s.incrementCounter(ctx, q, cardID, p, amount); err != nil {
			return fmt.Errorf("update spending counters: %w", err)
		}
	}
	return nil
}

// incrementCounter increments the period's row, creating it on first spend. When a concurrent
// spend creates the row between the two statements the increment is retried once.
func (s *cardService) incrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, p domain.CounterPeriod, amount decimal.Decimal) error {
	updated, err := s.counterRepo.IncrementCounter(ctx, q, cardID, p.Type, p.Key, amount)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	err = s.counterRepo.InsertCounter(ctx, q, domain.NewSpendingCounter(cardID, p.Type, p.Key, amount))
	if err == nil {
		return nil
	}
	if !errors.Is(err, util.ErrDuplicateEntry) {
		return err
	}

	s.logger.Debug("Counter created concurrently, retrying increment", "card_id", cardID, "period_type", p.Type, "period_key", p.Key)
	updated, err = s.counterRepo.IncrementCounter(ctx, q, cardID, p.Type, p.Key, amount)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%s counter %s of card %s missing after insert conflict", p.Type, p.Key, cardID)
	}
	return nil
}

func (s *cardService) RollbackSpendingCounters(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, amount decimal.Decimal, timezone string, at time.Time) error {
	for _, p := range domain.LimitPeriods(at, domain.LoadLocation(timezone)) {
		err := s.counterRepo.DecrementCounter(ctx, q, cardID, p.Type, p.Key, amount)
		if errors.Is(err, util.ErrNotFound) {
			s.logger.Warn("No spending counter to roll back", "card_id", cardID, "period_type", p.Type, "period_key", p.Key)
			continue
		}
		if err != nil {
			return fmt.Errorf("rollback spending counters: %w", err)
		}
	}
	return nil
}
