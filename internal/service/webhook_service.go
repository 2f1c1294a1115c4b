// internal/service/webhook_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/util"
)

// WebhookService records station webhook deliveries and feeds them to the transaction service.
type WebhookService interface {
	// HandleTransactionWebhook processes one delivery. payload is the raw body kept for audit.
	HandleTransactionWebhook(ctx context.Context, payload json.RawMessage, input ProcessTransactionInput) (*TransactionResult, error)
}

// webhookService implements the WebhookService interface.
type webhookService struct {
	dbExecutor   repository.DBExecutor
	eventRepo    repository.WebhookEventRepository
	transactions TransactionService
	now          func() time.Time
	logger       *slog.Logger
}

// NewWebhookService creates a new instance of WebhookService.
func NewWebhookService(
	dbExecutor repository.DBExecutor,
	eventRepo repository.WebhookEventRepository,
	transactions TransactionService,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		dbExecutor:   dbExecutor,
		eventRepo:    eventRepo,
		transactions: transactions,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

func (s *webhookService) HandleTransactionWebhook(ctx context.Context, payload json.RawMessage, input ProcessTransactionInput) (*TransactionResult, error) {
	if input.IdempotencyKey == "" {
		return nil, fmt.Errorf("handle webhook: idempotency key is required: %w", util.ErrInvalidInput)
	}

	event, err := s.startDelivery(ctx, input.IdempotencyKey, payload)
	if err != nil {
		return nil, err
	}

	result, procErr := s.transactions.ProcessTransaction(ctx, input)

	processedAt := s.now()
	event.ProcessedAt = &processedAt
	if procErr != nil {
		msg := procErr.Error()
		event.Status = domain.WebhookEventFailed
		event.LastError = &msg
	} else {
		event.Status = domain.WebhookEventProcessed
		event.LastError = nil
	}
	if result != nil {
		id := result.TransactionID
		event.TransactionID = &id
	}

	// The purchase outcome stands even if its delivery log cannot be updated.
	if err := s.eventRepo.UpdateWebhookEvent(context.WithoutCancel(ctx), s.dbExecutor, event); err != nil {
		s.logger.Error("Failed to update webhook event", "idempotency_key", input.IdempotencyKey, "error", err)
	}

	s.logger.Info("Webhook processed",
		"idempotency_key", input.IdempotencyKey,
		"status", event.Status,
		"attempts", event.Attempts,
	)
	return result, procErr
}

// startDelivery creates the event on first delivery, or bumps the attempt count of a redelivery.
func (s *webhookService) startDelivery(ctx context.Context, key string, payload json.RawMessage) (*domain.WebhookEvent, error) {
	event, err := s.eventRepo.GetWebhookEventByIdempotencyKey(ctx, s.dbExecutor, key)
	if errors.Is(err, util.ErrNotFound) {
		event = domain.NewWebhookEvent(key, domain.WebhookEventTypeTransaction, payload)
		err = s.eventRepo.CreateWebhookEvent(ctx, s.dbExecutor, event)
		if err == nil {
			return event, nil
		}
		if !errors.Is(err, util.ErrDuplicateEntry) {
			return nil, fmt.Errorf("handle webhook: failed to record event: %w", err)
		}
		// A concurrent delivery of the same key created it first.
		event, err = s.eventRepo.GetWebhookEventByIdempotencyKey(ctx, s.dbExecutor, key)
	}
	if err != nil {
		return nil, fmt.Errorf("handle webhook: failed to load event: %w", err)
	}

	event.Attempts++
	event.Status = domain.WebhookEventProcessing
	if err := s.eventRepo.UpdateWebhookEvent(ctx, s.dbExecutor, event); err != nil {
		return nil, fmt.Errorf("handle webhook: failed to update event: %w", err)
	}
	return event, nil
}
