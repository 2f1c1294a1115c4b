// internal/repository/webhook_event_repo.go
package repository

import (
	"context"

	"fleetfuel/internal/domain"
)

// WebhookEventRepository defines the interface for webhook delivery records.
type WebhookEventRepository interface {
	// CreateWebhookEvent inserts the first delivery of a key; duplicates yield util.ErrDuplicateEntry.
	CreateWebhookEvent(ctx context.Context, q DBExecutor, event *domain.WebhookEvent) error
	// GetWebhookEventByIdempotencyKey retrieves the event of key.
	GetWebhookEventByIdempotencyKey(ctx context.Context, q DBExecutor, key string) (*domain.WebhookEvent, error)
	// UpdateWebhookEvent persists status, attempts, last error, transaction id and processed time.
	UpdateWebhookEvent(ctx context.Context, q DBExecutor, event *domain.WebhookEvent) error
}
