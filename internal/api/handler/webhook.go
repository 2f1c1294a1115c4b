// internal/api/handler/webhook.go
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fleetfuel/internal/service"
	"fleetfuel/internal/util"
)

// IdempotencyKeyHeader overrides the idempotency_key of a webhook body.
const IdempotencyKeyHeader = "X-Idempotency-Key"

// WebhookHandler receives fuel purchases from petrol stations.
type WebhookHandler struct {
	responder
	service  service.WebhookService
	validate *validator.Validate
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc service.WebhookService, validate *validator.Validate, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		responder: responder{logger: logger},
		service:   svc,
		validate:  validate,
	}
}

// TransactionWebhookRequest represents the request body of a station purchase.
// Amount accepts a JSON string or number.
type TransactionWebhookRequest struct {
	CardNumber        string              `json:"card_number" validate:"required,min=10,max=23"`
	Amount            decimal.Decimal     `json:"amount"`
	IdempotencyKey    string              `json:"idempotency_key" validate:"omitempty,max=255"`
	ExternalReference *string             `json:"external_reference" validate:"omitempty,max=255"`
	StationID         *string             `json:"station_id" validate:"omitempty,max=100"`
	StationName       *string             `json:"station_name" validate:"omitempty,max=255"`
	FuelType          *string             `json:"fuel_type" validate:"omitempty,max=50"`
	Liters            decimal.NullDecimal `json:"liters"`
}

// HandleTransaction processes one station purchase.
// POST /webhooks/transaction
func (h *WebhookHandler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	var req TransactionWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}
	if err := validateStruct(h.validate, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if req.Liters.Valid && req.Liters.Decimal.IsNegative() {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	if key == "" {
		key = uuid.NewString()
	}

	result, err := h.service.HandleTransactionWebhook(r.Context(), json.RawMessage(body), service.ProcessTransactionInput{
		CardNumber:        req.CardNumber,
		Amount:            req.Amount,
		IdempotencyKey:    key,
		StationID:         req.StationID,
		StationName:       req.StationName,
		FuelType:          req.FuelType,
		Liters:            req.Liters,
		ExternalReference: req.ExternalReference,
	})
	if err != nil {
		// The purchase is declined either way; the missing refund or counter rollback needs an operator.
		if util.IsError(err, util.ErrCompensationIncomplete) && result != nil {
			h.logger.Error("Transaction declined with incomplete compensation",
				"transaction_id", result.TransactionID, "idempotency_key", key, "error", err)
			h.respondWithJSON(w, http.StatusOK, result)
			return
		}
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, result)
}
