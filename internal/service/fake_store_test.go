package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"
	"fleetfuel/pkg/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errNoSQL = errors.New("fake store does not run SQL")

// noSQL satisfies repository.DBExecutor for values that are only ever passed through to the
// fake repositories.
type noSQL struct{}

func (noSQL) GetContext(context.Context, interface{}, string, ...interface{}) error    { return errNoSQL }
func (noSQL) SelectContext(context.Context, interface{}, string, ...interface{}) error { return errNoSQL }
func (noSQL) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (noSQL) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

type counterKey struct {
	cardID     uuid.UUID
	periodType domain.PeriodType
	periodKey  string
}

// fakeStore is an in-memory implementation of every repository interface.
// Transactions are serialized by txMu, standing in for the balance row lock, and roll back
// through an undo log so writes made outside a transaction are never lost.
type fakeStore struct {
	noSQL

	txMu sync.Mutex
	mu   sync.Mutex

	orgs          map[uuid.UUID]domain.Organization
	balances      map[uuid.UUID]domain.OrganizationBalance
	ledger        []domain.BalanceLedger
	seq           int64
	cards         map[uuid.UUID]domain.Card
	counters      map[counterKey]domain.CardSpendingCounter
	transactions  map[uuid.UUID]domain.Transaction
	webhookEvents map[string]domain.WebhookEvent

	failures map[string]error
	calls    map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:          map[uuid.UUID]domain.Organization{},
		balances:      map[uuid.UUID]domain.OrganizationBalance{},
		cards:         map[uuid.UUID]domain.Card{},
		counters:      map[counterKey]domain.CardSpendingCounter{},
		transactions:  map[uuid.UUID]domain.Transaction{},
		webhookEvents: map[string]domain.WebhookEvent{},
		failures:      map[string]error{},
		calls:         map[string]int{},
	}
}

// fakeTx is the TxController handed out by txManager.
type fakeTx struct {
	noSQL
	store *fakeStore
	undo  []func()
	done  bool
}

func (t *fakeTx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

func (s *fakeStore) txManager() TxManager {
	return TxManager{
		BeginTx: func(ctx context.Context, _ db.DBTxBeginner) (db.TxController, error) {
			if err := s.injected("BeginTx"); err != nil {
				return nil, err
			}
			s.txMu.Lock()
			return &fakeTx{store: s}, nil
		},
		CommitTx:   db.CommitTx,
		RollbackTx: db.RollbackTx,
	}
}

// failOn makes every later call of op return err. A nil err clears it.
func (s *fakeStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *fakeStore) injected(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

// enter counts a call and returns its injected failure. Callers hold s.mu.
func (s *fakeStore) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

// onRollback registers undo inside q's transaction, if any. Callers hold s.mu.
func (s *fakeStore) onRollback(q repository.DBExecutor, undo func()) {
	if tx, ok := q.(*fakeTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

// Organizations.

func (s *fakeStore) CreateOrganization(ctx context.Context, q repository.DBExecutor, org *domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateOrganization"); err != nil {
		return err
	}
	s.orgs[org.ID] = *org
	s.onRollback(q, func() { delete(s.orgs, org.ID) })
	return nil
}

func (s *fakeStore) GetOrganizationByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetOrganizationByID"); err != nil {
		return nil, err
	}
	org, ok := s.orgs[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &org, nil
}

// Balances and ledger.

func (s *fakeStore) CreateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateBalance"); err != nil {
		return err
	}
	if _, ok := s.balances[balance.OrganizationID]; ok {
		return util.ErrDuplicateEntry
	}
	s.balances[balance.OrganizationID] = *balance
	s.onRollback(q, func() { delete(s.balances, balance.OrganizationID) })
	return nil
}

func (s *fakeStore) GetBalanceByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetBalanceByOrganizationID"); err != nil {
		return nil, err
	}
	b, ok := s.balances[organizationID]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &b, nil
}

func (s *fakeStore) GetBalanceForUpdate(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID) (*domain.OrganizationBalance, error) {
	if _, ok := q.(*fakeTx); !ok {
		return nil, errors.New("GetBalanceForUpdate outside a transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetBalanceForUpdate"); err != nil {
		return nil, err
	}
	b, ok := s.balances[organizationID]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &b, nil
}

func (s *fakeStore) UpdateBalance(ctx context.Context, q repository.DBExecutor, balance *domain.OrganizationBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateBalance"); err != nil {
		return err
	}
	stored, ok := s.balances[balance.OrganizationID]
	if !ok || stored.Version != balance.Version {
		return util.ErrConcurrentUpdate
	}
	if balance.CurrentBalance.IsNegative() {
		return errors.New("check constraint current_balance >= 0 violated")
	}
	balance.Version++
	s.balances[balance.OrganizationID] = *balance
	s.onRollback(q, func() { s.balances[stored.OrganizationID] = stored })
	return nil
}

func (s *fakeStore) CreateLedgerEntry(ctx context.Context, q repository.DBExecutor, entry *domain.BalanceLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateLedgerEntry"); err != nil {
		return err
	}
	s.seq++
	entry.Seq = s.seq
	s.ledger = append(s.ledger, *entry)
	id := entry.ID
	s.onRollback(q, func() {
		for i := range s.ledger {
			if s.ledger[i].ID == id {
				s.ledger = append(s.ledger[:i], s.ledger[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (s *fakeStore) GetLedgerByOrganizationID(ctx context.Context, q repository.DBExecutor, organizationID uuid.UUID, limit, offset int) ([]domain.BalanceLedger, int64, error) {
	entries := s.ledgerOf(organizationID)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq > entries[j].Seq })
	total := int64(len(entries))
	if offset >= len(entries) {
		return []domain.BalanceLedger{}, total, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], total, nil
}

// ledgerOf returns an organization's entries oldest first.
func (s *fakeStore) ledgerOf(organizationID uuid.UUID) []domain.BalanceLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BalanceLedger
	for _, e := range s.ledger {
		if e.OrganizationID == organizationID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Cards and counters.

func (s *fakeStore) CreateCard(ctx context.Context, q repository.DBExecutor, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateCard"); err != nil {
		return err
	}
	for _, c := range s.cards {
		if c.CardNumberHash == card.CardNumberHash {
			return util.ErrDuplicateEntry
		}
	}
	s.cards[card.ID] = *card
	s.onRollback(q, func() { delete(s.cards, card.ID) })
	return nil
}

func (s *fakeStore) GetCardByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCardByID"); err != nil {
		return nil, err
	}
	c, ok := s.cards[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &c, nil
}

func (s *fakeStore) GetCardByNumberHash(ctx context.Context, q repository.DBExecutor, hash string) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCardByNumberHash"); err != nil {
		return nil, err
	}
	for _, c := range s.cards {
		if c.CardNumberHash == hash {
			return &c, nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *fakeStore) GetCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string) (*domain.CardSpendingCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetCounter"); err != nil {
		return nil, err
	}
	c, ok := s.counters[counterKey{cardID, periodType, periodKey}]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &c, nil
}

func (s *fakeStore) IncrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("IncrementCounter"); err != nil {
		return false, err
	}
	k := counterKey{cardID, periodType, periodKey}
	c, ok := s.counters[k]
	if !ok {
		return false, nil
	}
	prev := c
	c.AmountSpent = c.AmountSpent.Add(amount)
	c.TransactionCount++
	c.Version++
	s.counters[k] = c
	s.onRollback(q, func() { s.counters[k] = prev })
	return true, nil
}

func (s *fakeStore) InsertCounter(ctx context.Context, q repository.DBExecutor, counter *domain.CardSpendingCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertCounter"); err != nil {
		return err
	}
	k := counterKey{counter.CardID, counter.PeriodType, counter.PeriodKey}
	if _, ok := s.counters[k]; ok {
		return util.ErrDuplicateEntry
	}
	s.counters[k] = *counter
	s.onRollback(q, func() { delete(s.counters, k) })
	return nil
}

func (s *fakeStore) DecrementCounter(ctx context.Context, q repository.DBExecutor, cardID uuid.UUID, periodType domain.PeriodType, periodKey string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("DecrementCounter"); err != nil {
		return err
	}
	k := counterKey{cardID, periodType, periodKey}
	c, ok := s.counters[k]
	if !ok {
		return util.ErrNotFound
	}
	prev := c
	c.AmountSpent = decimal.Max(decimal.Zero, c.AmountSpent.Sub(amount))
	if c.TransactionCount > 0 {
		c.TransactionCount--
	}
	c.Version++
	s.counters[k] = c
	s.onRollback(q, func() { s.counters[k] = prev })
	return nil
}

func (s *fakeStore) counter(cardID uuid.UUID, periodType domain.PeriodType, periodKey string) (domain.CardSpendingCounter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[counterKey{cardID, periodType, periodKey}]
	return c, ok
}

// Transactions.

func (s *fakeStore) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateTransaction"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, t := range s.transactions {
		if t.IdempotencyKey == transaction.IdempotencyKey {
			return util.ErrDuplicateEntry
		}
	}
	s.transactions[transaction.ID] = *transaction
	s.onRollback(q, func() { delete(s.transactions, transaction.ID) })
	return nil
}

func (s *fakeStore) GetTransactionByID(ctx context.Context, q repository.DBExecutor, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetTransactionByID"); err != nil {
		return nil, err
	}
	t, ok := s.transactions[id]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &t, nil
}

func (s *fakeStore) GetTransactionByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetTransactionByIdempotencyKey"); err != nil {
		return nil, err
	}
	for _, t := range s.transactions {
		if t.IdempotencyKey == key {
			return &t, nil
		}
	}
	return nil, util.ErrNotFound
}

func (s *fakeStore) UpdateTransactionStatus(ctx context.Context, q repository.DBExecutor, id uuid.UUID, from []domain.TransactionStatus, next domain.TransactionStatus, processedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateTransactionStatus:" + string(next)); err != nil {
		return err
	}
	t, ok := s.transactions[id]
	if !ok {
		return util.ErrInvalidTransition
	}
	allowed := false
	for _, f := range from {
		allowed = allowed || t.Status == f
	}
	if !allowed {
		return util.ErrInvalidTransition
	}
	prev := t
	t.Status = next
	if processedAt != nil {
		t.ProcessedAt = processedAt
	}
	s.transactions[id] = t
	s.onRollback(q, func() { s.transactions[id] = prev })
	return nil
}

func (s *fakeStore) SetDeclineReason(ctx context.Context, q repository.DBExecutor, id uuid.UUID, reason domain.DeclineReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetDeclineReason"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t, ok := s.transactions[id]
	if ok && t.DeclineReason == nil {
		t.DeclineReason = &reason
		s.transactions[id] = t
	}
	return nil
}

func (s *fakeStore) ListTransactions(ctx context.Context, q repository.DBExecutor, filter repository.TransactionFilter, limit, offset int) ([]domain.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.transactions {
		if filter.CardID != nil && t.CardID != *filter.CardID {
			continue
		}
		if filter.OrganizationID != nil && t.OrganizationID != *filter.OrganizationID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return []domain.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (s *fakeStore) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions)
}

// Webhook events.

func (s *fakeStore) CreateWebhookEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateWebhookEvent"); err != nil {
		return err
	}
	if _, ok := s.webhookEvents[event.IdempotencyKey]; ok {
		return util.ErrDuplicateEntry
	}
	s.webhookEvents[event.IdempotencyKey] = *event
	return nil
}

func (s *fakeStore) GetWebhookEventByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.webhookEvents[key]
	if !ok {
		return nil, util.ErrNotFound
	}
	return &e, nil
}

func (s *fakeStore) UpdateWebhookEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webhookEvents[event.IdempotencyKey]; !ok {
		return util.ErrNotFound
	}
	s.webhookEvents[event.IdempotencyKey] = *event
	return nil
}

// fixture wires real services over one fakeStore.
type fixture struct {
	store        *fakeStore
	orgs         OrganizationService
	cards        CardService
	saga         *ProcessTransactionSaga
	transactions TransactionService
	webhooks     WebhookService
	publisher    *recordingPublisher
	now          time.Time
}

func newFixture() *fixture {
	store := newFakeStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := store.txManager()
	now := time.Date(2024, time.January, 15, 14, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	orgs := NewOrganizationService(store, store, store, store, tx, logger)
	cards := NewCardService(store, store, store, store, logger)
	cards.(*cardService).now = clock
	sagaDef := NewProcessTransactionSaga(store, tx, orgs, cards, store, store, logger)
	sagaDef.now = clock
	publisher := &recordingPublisher{}
	transactions := NewTransactionService(store, store, sagaDef, publisher, logger)
	transactions.(*transactionService).now = clock
	webhooks := NewWebhookService(store, store, transactions, logger)
	webhooks.(*webhookService).now = clock

	return &fixture{
		store:        store,
		orgs:         orgs,
		cards:        cards,
		saga:         sagaDef,
		transactions: transactions,
		webhooks:     webhooks,
		publisher:    publisher,
		now:          now,
	}
}
