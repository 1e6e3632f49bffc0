package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mpetrov/bank-cards/internal/models"
)

type createCardRequest struct {
	UserID         int64           `json:"user_id"`
	Number         string          `json:"number,omitempty"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
}

// CreateCard handles administrative card creation
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.InitialDeposit.Sign() < 0 || req.InitialDeposit.Exponent() < -2 {
		http.Error(w, "initial_deposit must be non-negative with at most 2 decimal places", http.StatusBadRequest)
		return
	}

	card, err := h.cards.CreateCard(r.Context(), req.UserID, req.Number, req.InitialDeposit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toCardView(card))
}

// GetCard returns one card with a masked number
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.caller(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	card, err := h.cards.GetCard(r.Context(), callerID, role, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toCardView(card))
}

// ListCards returns the caller's cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	cards, err := h.cards.ListCards(r.Context(), callerID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]cardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, toCardView(card))
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GetCardBalance returns the balance of one card
func (h *Handler) GetCardBalance(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.caller(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	card, err := h.cards.GetCard(r.Context(), callerID, role, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":      card.ID,
		"balance": card.Balance.StringFixed(2),
	})
}

// RequestBlock handles a user's request to freeze their card
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.caller(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	card, err := h.cards.RequestBlock(r.Context(), callerID, cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                   card.ID,
		"block_request_status": card.BlockRequestStatus,
	})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// SetCardStatus handles an administrative status change
func (h *Handler) SetCardStatus(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status := models.CardStatus(req.Status)
	if !status.Valid() {
		h.writeError(w, models.ErrInvalidCardStatus)
		return
	}

	card, err := h.cards.SetCardStatus(r.Context(), cardID, status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                   card.ID,
		"status":               card.Status,
		"block_request_status": card.BlockRequestStatus,
	})
}

// DeleteCard handles administrative card deletion
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	if err := h.cards.DeleteCard(r.Context(), cardID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCardTransfers returns the transfer history of one card
func (h *Handler) ListCardTransfers(w http.ResponseWriter, r *http.Request) {
	callerID, role, ok := h.caller(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r)
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	limit, offset := pagination(r)

	transfers, err := h.cards.ListCardTransfers(r.Context(), callerID, role, cardID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	views := make([]transferView, 0, len(transfers))
	for _, t := range transfers {
		views = append(views, toTransferView(t))
	}
	h.writeJSON(w, http.StatusOK, views)
}
