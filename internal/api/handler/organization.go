// internal/api/handler/organization.go
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"fleetfuel/internal/api/types"
	"fleetfuel/internal/domain"
	"fleetfuel/internal/service"
	"fleetfuel/internal/util"
)

// OrganizationHandler serves organizations and their balances.
type OrganizationHandler struct {
	responder
	service         service.OrganizationService
	validate        *validator.Validate
	defaultTimezone string
}

// NewOrganizationHandler creates a new OrganizationHandler. Organizations created without a
// timezone get defaultTimezone.
func NewOrganizationHandler(svc service.OrganizationService, validate *validator.Validate, defaultTimezone string, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		responder:       responder{logger: logger},
		service:         svc,
		validate:        validate,
		defaultTimezone: defaultTimezone,
	}
}

// CreateOrganizationRequest represents the request body for creating an organization.
type CreateOrganizationRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	Timezone       string          `json:"timezone" validate:"omitempty,max=50"`
	Currency       string          `json:"currency" validate:"omitempty,len=3,uppercase"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CreateOrganization handles organization creation.
// POST /organizations
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if req.Timezone == "" {
		req.Timezone = h.defaultTimezone
	}

	org, balance, err := h.service.CreateOrganization(r.Context(), service.CreateOrganizationInput{
		Name:           req.Name,
		Timezone:       req.Timezone,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"organization": org,
		"balance":      balance,
	})
}

// GetBalance handles the get balance request.
// GET /organizations/{organizationID}/balance
func (h *OrganizationHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuidParam(r, "organizationID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	balance, err := h.service.GetBalance(r.Context(), orgID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"organization_id":   balance.OrganizationID,
		"current_balance":   balance.CurrentBalance,
		"reserved_balance":  balance.ReservedBalance,
		"available_balance": balance.AvailableBalance(),
		"currency":          balance.Currency,
	})
}

// TopUpRequest represents the request body for a balance top-up.
type TopUpRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"omitempty,max=255"`
}

// TopUp handles the top-up request.
// POST /organizations/{organizationID}/topup
func (h *OrganizationHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuidParam(r, "organizationID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	var req TopUpRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if !req.Amount.IsPositive() {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	balance, err := h.service.TopUpBalance(r.Context(), orgID, req.Amount, req.Reference)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Top-up successful",
		"organization_id": balance.OrganizationID,
		"new_balance":     balance.CurrentBalance,
	})
}

// GetLedger handles the ledger history request.
// GET /organizations/{organizationID}/ledger
func (h *OrganizationHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuidParam(r, "organizationID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	limit, offset := pageParams(r)

	entries, total, err := h.service.GetLedger(r.Context(), orgID, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.BalanceLedger{}
	}

	h.respondWithJSON(w, http.StatusOK, types.PaginatedResponse[domain.BalanceLedger]{
		Data:       entries,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}
