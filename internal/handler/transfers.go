package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

type transferRequest struct {
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
	// TransferTime is intentionally absent: the server assigns it. A
	// client-supplied value is ignored by the decoder.
}

// Transfer handles an inter-card transfer on behalf of the caller
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	callerID, _, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FromCardID <= 0 || req.ToCardID <= 0 {
		http.Error(w, "from_card_id and to_card_id are required", http.StatusBadRequest)
		return
	}
	// Amounts are fixed-point with at most 2 fractional digits; anything
	// looser never reaches the engine.
	if req.Amount.Sign() <= 0 || req.Amount.Exponent() < -2 {
		http.Error(w, "amount must be positive with at most 2 decimal places", http.StatusBadRequest)
		return
	}

	transfer, err := h.transfers.Transfer(r.Context(), callerID, req.FromCardID, req.ToCardID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toTransferView(transfer))
}
