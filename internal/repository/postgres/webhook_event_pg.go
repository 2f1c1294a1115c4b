// internal/repository/postgres/webhook_event_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"
)

// WebhookEventRepository implements repository.WebhookEventRepository for PostgreSQL.
type WebhookEventRepository struct{}

// NewWebhookEventRepository creates a new WebhookEventRepository.
func NewWebhookEventRepository() repository.WebhookEventRepository {
	return &WebhookEventRepository{}
}

// CreateWebhookEvent inserts the first delivery of an idempotency key.
func (r *WebhookEventRepository) CreateWebhookEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) error {
	query := `INSERT INTO webhook_events (id, idempotency_key, event_type, payload, status, attempts, last_error, transaction_id, processed_at, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	// lib/pq would send []byte as bytea, which JSONB rejects.
	_, err := q.ExecContext(ctx, query,
		event.ID,
		event.IdempotencyKey,
		event.EventType,
		string(event.Payload),
		event.Status,
		event.Attempts,
		event.LastError,
		event.TransactionID,
		event.ProcessedAt,
		event.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create webhook event: %w", err)
	}
	return nil
}

// GetWebhookEventByIdempotencyKey retrieves the event of a key.
func (r *WebhookEventRepository) GetWebhookEventByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	query := `SELECT id, idempotency_key, event_type, payload, status, attempts, last_error, transaction_id, processed_at, created_at
              FROM webhook_events WHERE idempotency_key = $1`
	err := q.GetContext(ctx, &event, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook event %q: %w", key, err)
	}
	return &event, nil
}

// UpdateWebhookEvent persists the processing outcome of an event.
func (r *WebhookEventRepository) UpdateWebhookEvent(ctx context.Context, q repository.DBExecutor, event *domain.WebhookEvent) error {
	query := `UPDATE webhook_events
              SET status = $1, attempts = $2, last_error = $3, transaction_id = $4, processed_at = $5
              WHERE id = $6`
	result, err := q.ExecContext(ctx, query, event.Status, event.Attempts, event.LastError, event.TransactionID, event.ProcessedAt, event.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook event %s: %w", event.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after updating webhook event %s: %w", event.ID, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
