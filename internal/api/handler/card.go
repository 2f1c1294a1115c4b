// internal/api/handler/card.go
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fleetfuel/internal/service"
	"fleetfuel/internal/util"
)

// CardHandler serves fuel cards.
type CardHandler struct {
	responder
	cards    service.CardService
	orgs     service.OrganizationService
	validate *validator.Validate
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards service.CardService, orgs service.OrganizationService, validate *validator.Validate, logger *slog.Logger) *CardHandler {
	return &CardHandler{
		responder: responder{logger: logger},
		cards:     cards,
		orgs:      orgs,
		validate:  validate,
	}
}

// CreateCardRequest represents the request body for issuing a card.
// ExpiryDate is a calendar date (YYYY-MM-DD).
type CreateCardRequest struct {
	OrganizationID uuid.UUID       `json:"organization_id" validate:"required"`
	CardNumber     string          `json:"card_number" validate:"required,min=12,max=23"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
	HolderName     *string         `json:"holder_name" validate:"omitempty,max=255"`
	ExpiryDate     string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateCard handles card issuing.
// POST /cards
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := decodeJSON(w, r, h.validate, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if req.OrganizationID == uuid.Nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	input := service.CreateCardInput{
		OrganizationID: req.OrganizationID,
		CardNumber:     req.CardNumber,
		DailyLimit:     req.DailyLimit,
		MonthlyLimit:   req.MonthlyLimit,
		HolderName:     req.HolderName,
	}
	if req.ExpiryDate != "" {
		expiry, _ := time.Parse(time.DateOnly, req.ExpiryDate) // validated above
		input.ExpiryDate = &expiry
	}

	card, err := h.cards.CreateCard(r.Context(), input)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, card)
}

// GetSpending reports a card's spend in the current periods of its organization's timezone.
// GET /cards/{cardID}/spending
func (h *CardHandler) GetSpending(w http.ResponseWriter, r *http.Request) {
	cardID, err := uuidParam(r, "cardID")
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	card, err := h.cards.GetCard(r.Context(), cardID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	org, err := h.orgs.GetOrganization(r.Context(), card.OrganizationID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	spending, err := h.cards.GetSpending(r.Context(), card.ID, org.TimezoneName())
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"card_id":       card.ID,
		"card_number":   card.CardNumber,
		"daily_limit":   card.DailyLimit,
		"monthly_limit": card.MonthlyLimit,
		"spending":      spending,
	})
}
