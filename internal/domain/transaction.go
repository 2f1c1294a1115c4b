// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus defines the status of a fuel purchase.
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "PENDING"
	TransactionStatusApproved TransactionStatus = "APPROVED"
	TransactionStatusDeclined TransactionStatus = "DECLINED"
	TransactionStatusReversed TransactionStatus = "REVERSED"
)

// CanTransitionTo reports whether a transaction in status s may move to next.
// PENDING resolves to APPROVED, DECLINED or REVERSED; APPROVED may only be REVERSED.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusApproved || next == TransactionStatusDeclined || next == TransactionStatusReversed
	case TransactionStatusApproved:
		return next == TransactionStatusReversed
	default:
		return false
	}
}

// DeclineReason explains why a purchase was declined.
type DeclineReason string

const (
	DeclineInsufficientBalance   DeclineReason = "INSUFFICIENT_BALANCE"
	DeclineDailyLimitExceeded    DeclineReason = "DAILY_LIMIT_EXCEEDED"
	DeclineMonthlyLimitExceeded  DeclineReason = "MONTHLY_LIMIT_EXCEEDED"
	DeclineCardInactive          DeclineReason = "CARD_INACTIVE"
	DeclineCardNotFound          DeclineReason = "CARD_NOT_FOUND"
	DeclineOrganizationSuspended DeclineReason = "ORGANIZATION_SUSPENDED"
)

// Transaction records one fuel purchase attempt. There is exactly one row per idempotency key.
type Transaction struct {
	ID                uuid.UUID           `db:"id" json:"id"`
	IdempotencyKey    string              `db:"idempotency_key" json:"idempotency_key"`
	OrganizationID    uuid.UUID           `db:"organization_id" json:"organization_id"`
	CardID            uuid.UUID           `db:"card_id" json:"card_id"`
	ExternalReference *string             `db:"external_reference" json:"external_reference,omitempty"`
	StationID         *string             `db:"station_id" json:"station_id,omitempty"`
	StationName       *string             `db:"station_name" json:"station_name,omitempty"`
	Amount            decimal.Decimal     `db:"amount" json:"amount"` // NUMERIC(18, 2)
	FuelType          *string             `db:"fuel_type" json:"fuel_type,omitempty"`
	Liters            decimal.NullDecimal `db:"liters" json:"liters"` // NUMERIC(10, 3)
	Status            TransactionStatus   `db:"status" json:"status"`
	DeclineReason     *DeclineReason      `db:"decline_reason" json:"decline_reason,omitempty"`
	ProcessedAt       *time.Time          `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// PurchaseDetails carries the optional station metadata of a purchase.
type PurchaseDetails struct {
	ExternalReference *string
	StationID         *string
	StationName       *string
	FuelType          *string
	Liters            decimal.NullDecimal
}

// NewTransaction creates a PENDING transaction.
func NewTransaction(
	idempotencyKey string,
	organizationID, cardID uuid.UUID,
	amount decimal.Decimal,
	details PurchaseDetails,
) *Transaction {
	return &Transaction{
		ID:                uuid.New(),
		IdempotencyKey:    idempotencyKey,
		OrganizationID:    organizationID,
		CardID:            cardID,
		ExternalReference: details.ExternalReference,
		StationID:         details.StationID,
		StationName:       details.StationName,
		Amount:            amount,
		FuelType:          details.FuelType,
		Liters:            details.Liters,
		Status:            TransactionStatusPending,
		CreatedAt:         time.Now().UTC(),
	}
}

// NewDeclinedTransaction creates an already-processed DECLINED audit record.
// Unknown organization or card ids are recorded as uuid.Nil.
func NewDeclinedTransaction(
	idempotencyKey string,
	organizationID, cardID uuid.UUID,
	amount decimal.Decimal,
	details PurchaseDetails,
	reason DeclineReason,
	processedAt time.Time,
) *Transaction {
	tx := NewTransaction(idempotencyKey, organizationID, cardID, amount, details)
	tx.Status = TransactionStatusDeclined
	tx.DeclineReason = &reason
	tx.ProcessedAt = &processedAt
	return tx
}
