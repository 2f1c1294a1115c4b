// internal/api/handler/transaction.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"fleetfuel/internal/api/types"
	"fleetfuel/internal/domain"
	"fleetfuel/internal/repository"
	"fleetfuel/internal/service"
	"fleetfuel/internal/util"
)

// TransactionHandler serves transaction reads.
type TransactionHandler struct {
	responder
	service service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(svc service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		responder: responder{logger: logger},
		service:   svc,
	}
}

// GetTransaction returns one transaction.
// GET /transactions/{transactionID}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "transactionID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, tx)
}

// ListTransactions returns a page of transactions, optionally filtered by card or organization.
// GET /transactions?card_id=&organization_id=&limit=&offset=
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter repository.TransactionFilter
	for param, dst := range map[string]**uuid.UUID{
		"card_id":         &filter.CardID,
		"organization_id": &filter.OrganizationID,
	} {
		raw := r.URL.Query().Get(param)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			h.respondWithError(w, util.ErrInvalidInput)
			return
		}
		*dst = &id
	}
	limit, offset := pageParams(r)

	txs, total, err := h.service.ListTransactions(r.Context(), filter, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.Transaction]{
		Data:       txs,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}
