// internal/domain/webhook_event.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEventStatus tracks delivery processing of an inbound station webhook.
type WebhookEventStatus string

const (
	WebhookEventReceived   WebhookEventStatus = "RECEIVED"
	WebhookEventProcessing WebhookEventStatus = "PROCESSING"
	WebhookEventProcessed  WebhookEventStatus = "PROCESSED"
	WebhookEventFailed     WebhookEventStatus = "FAILED"
)

// WebhookEventTypeTransaction is the only event type stations currently send.
const WebhookEventTypeTransaction = "TRANSACTION"

// WebhookEvent is the delivery log of one webhook idempotency key.
type WebhookEvent struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	IdempotencyKey string             `db:"idempotency_key" json:"idempotency_key"`
	EventType      string             `db:"event_type" json:"event_type"`
	Payload        json.RawMessage    `db:"payload" json:"payload"`
	Status         WebhookEventStatus `db:"status" json:"status"`
	Attempts       int                `db:"attempts" json:"attempts"`
	LastError      *string            `db:"last_error" json:"last_error,omitempty"`
	TransactionID  *uuid.UUID         `db:"transaction_id" json:"transaction_id,omitempty"`
	ProcessedAt    *time.Time         `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
}

// NewWebhookEvent creates a PROCESSING event for its first delivery attempt.
func NewWebhookEvent(idempotencyKey, eventType string, payload json.RawMessage) *WebhookEvent {
	return &WebhookEvent{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		EventType:      eventType,
		Payload:        payload,
		Status:         WebhookEventProcessing,
		Attempts:       1,
		CreatedAt:      time.Now().UTC(),
	}
}
