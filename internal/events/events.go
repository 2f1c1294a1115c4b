// Package events publishes the outcome of processed fuel transactions to downstream consumers.
package events

import (
	"context"
	"time"

	"fleetfuel/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeTransactionApproved = "transaction.approved"
	TypeTransactionDeclined = "transaction.declined"
	TypeTransactionReversed = "transaction.reversed"
)

// TransactionEvent is the JSON document pushed for every terminal transaction outcome.
type TransactionEvent struct {
	Type           string                   `json:"type"`
	TransactionID  uuid.UUID                `json:"transaction_id"`
	OrganizationID uuid.UUID                `json:"organization_id"`
	CardID         uuid.UUID                `json:"card_id"`
	Amount         decimal.Decimal          `json:"amount"`
	Status         domain.TransactionStatus `json:"status"`
	DeclineReason  *domain.DeclineReason    `json:"decline_reason,omitempty"`
	NewBalance     *decimal.Decimal         `json:"new_balance,omitempty"`
	OccurredAt     time.Time                `json:"occurred_at"`
}

// NewTransactionEvent builds the event of a stored transaction.
func NewTransactionEvent(eventType string, tx *domain.Transaction, newBalance *decimal.Decimal, at time.Time) TransactionEvent {
	return TransactionEvent{
		Type:           eventType,
		TransactionID:  tx.ID,
		OrganizationID: tx.OrganizationID,
		CardID:         tx.CardID,
		Amount:         tx.Amount,
		Status:         tx.Status,
		DeclineReason:  tx.DeclineReason,
		NewBalance:     newBalance,
		OccurredAt:     at,
	}
}

// Publisher delivers transaction events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
}

// NopPublisher drops every event. It is used when no Redis is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransactionEvent) error { return nil }
