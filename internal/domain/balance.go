// internal/domain/balance.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrganizationBalance is the prepaid balance of one organization.
// It is only ever mutated together with a BalanceLedger row.
type OrganizationBalance struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	OrganizationID  uuid.UUID       `db:"organization_id" json:"organization_id"`
	CurrentBalance  decimal.Decimal `db:"current_balance" json:"current_balance"`   // NUMERIC(18, 2)
	ReservedBalance decimal.Decimal `db:"reserved_balance" json:"reserved_balance"` // NUMERIC(18, 2)
	Currency        string          `db:"currency" json:"currency"`
	Version         int64           `db:"version" json:"version"` // optimistic concurrency
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOrganizationBalance creates a zero balance for an organization.
func NewOrganizationBalance(organizationID uuid.UUID, currency string) *OrganizationBalance {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return &OrganizationBalance{
		ID:              uuid.New(),
		OrganizationID:  organizationID,
		CurrentBalance:  decimal.Zero,
		ReservedBalance: decimal.Zero,
		Currency:        currency,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// AvailableBalance is the current balance minus the reserved part, rounded to cents.
func (b *OrganizationBalance) AvailableBalance() decimal.Decimal {
	return b.CurrentBalance.Sub(b.ReservedBalance).Round(MoneyScale)
}

// CanCover reports whether amount fits into the available balance.
func (b *OrganizationBalance) CanCover(amount decimal.Decimal) bool {
	return b.AvailableBalance().GreaterThanOrEqual(amount)
}

// LedgerEntryType defines the kind of balance movement.
type LedgerEntryType string

const (
	LedgerEntryCredit  LedgerEntryType = "CREDIT"
	LedgerEntryDebit   LedgerEntryType = "DEBIT"
	LedgerEntryReserve LedgerEntryType = "RESERVE"
	LedgerEntryRelease LedgerEntryType = "RELEASE"
)

// Ledger reference types.
const (
	LedgerRefInitialBalance = "INITIAL_BALANCE"
	LedgerRefTopUp          = "TOP_UP"
	LedgerRefTransaction    = "TRANSACTION"
	LedgerRefRefund         = "REFUND"
)

// RefundReference is the ledger reference id used when a transaction debit is refunded.
func RefundReference(transactionID uuid.UUID) string {
	return "REFUND-" + transactionID.String()
}

// BalanceLedger is an immutable record of one balance change.
type BalanceLedger struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Seq            int64           `db:"entry_seq" json:"seq"` // total order within the table
	OrganizationID uuid.UUID       `db:"organization_id" json:"organization_id"`
	TransactionID  *uuid.UUID      `db:"transaction_id" json:"transaction_id,omitempty"`
	EntryType      LedgerEntryType `db:"entry_type" json:"entry_type"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore  decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter   decimal.Decimal `db:"balance_after" json:"balance_after"`
	ReferenceType  string          `db:"reference_type" json:"reference_type"`
	ReferenceID    string          `db:"reference_id" json:"reference_id"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// NewLedgerEntry builds a ledger row whose BalanceAfter follows from the entry type.
// Before and after always refer to current_balance.
func NewLedgerEntry(
	organizationID uuid.UUID,
	entryType LedgerEntryType,
	amount, balanceBefore decimal.Decimal,
	referenceType, referenceID string,
	transactionID *uuid.UUID,
) *BalanceLedger {
	return &BalanceLedger{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		TransactionID:  transactionID,
		EntryType:      entryType,
		Amount:         amount,
		BalanceBefore:  balanceBefore,
		BalanceAfter:   ApplyLedgerEntry(balanceBefore, entryType, amount),
		ReferenceType:  referenceType,
		ReferenceID:    referenceID,
		CreatedAt:      time.Now().UTC(),
	}
}

// ApplyLedgerEntry returns the current balance after applying one entry to before.
// RESERVE and RELEASE only move money into or out of reserved_balance, so they leave the
// current balance unchanged.
func ApplyLedgerEntry(before decimal.Decimal, entryType LedgerEntryType, amount decimal.Decimal) decimal.Decimal {
	switch entryType {
	case LedgerEntryDebit:
		return before.Sub(amount).Round(MoneyScale)
	case LedgerEntryReserve, LedgerEntryRelease:
		return before.Round(MoneyScale)
	default:
		return before.Add(amount).Round(MoneyScale)
	}
}

// ReplayLedger folds entries (oldest first) starting from zero. It returns false at the first
// entry whose BalanceBefore does not match the running balance.
func ReplayLedger(entries []BalanceLedger) (decimal.Decimal, bool) {
	running := decimal.Zero
	for _, e := range entries {
		if !e.BalanceBefore.Equal(running) {
			return running, false
		}
		running = ApplyLedgerEntry(running, e.EntryType, e.Amount)
		if !running.Equal(e.BalanceAfter) {
			return running, false
		}
	}
	return running, true
}
