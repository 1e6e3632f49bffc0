package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/middleware"
	"github.com/mpetrov/bank-cards/internal/models"
	"github.com/mpetrov/bank-cards/internal/service"
	"github.com/mpetrov/bank-cards/internal/utils"
)

// Handler translates HTTP requests into service calls and domain errors
// into status codes.
type Handler struct {
	users     *service.UserService
	cards     *service.CardService
	transfers *service.TransferService
	log       *logrus.Logger
}

func NewHandler(users *service.UserService, cards *service.CardService, transfers *service.TransferService, log *logrus.Logger) *Handler {
	return &Handler{users: users, cards: cards, transfers: transfers, log: log}
}

// cardView is the outbound card representation. The number is always
// masked.
type cardView struct {
	ID                 int64                     `json:"id"`
	Number             string                    `json:"number"`
	UserID             int64                     `json:"user_id"`
	Balance            string                    `json:"balance"`
	Status             models.CardStatus         `json:"status"`
	BlockRequestStatus models.BlockRequestStatus `json:"block_request_status"`
	ExpiryDate         string                    `json:"expiry_date"`
}

func toCardView(card *models.Card) cardView {
	return cardView{
		ID:                 card.ID,
		Number:             utils.MaskCardNumber(card.Number),
		UserID:             card.UserID,
		Balance:            card.Balance.StringFixed(2),
		Status:             card.Status,
		BlockRequestStatus: card.BlockRequestStatus,
		ExpiryDate:         card.ExpiryDate.Format("2006-01-02"),
	}
}

type transferView struct {
	TransferID   int64  `json:"transfer_id"`
	FromCardID   int64  `json:"from_card_id"`
	ToCardID     int64  `json:"to_card_id"`
	Amount       string `json:"amount"`
	TransferTime string `json:"transfer_time_utc"`
}

func toTransferView(t *models.Transfer) transferView {
	return transferView{
		TransferID:   t.ID,
		FromCardID:   t.FromCardID,
		ToCardID:     t.ToCardID,
		Amount:       t.Amount.StringFixed(2),
		TransferTime: t.TransferTime.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps a domain error onto its HTTP status. Unrecognized
// errors are infrastructure failures: logged and reported as 500 without
// leaking details.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, models.ErrCardNotFound), errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrNotOwner), errors.Is(err, models.ErrCrossUserTransfer):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrCardNotActive),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrCardExpired):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrLockTimeout):
		status = http.StatusServiceUnavailable
	case errors.Is(err, models.ErrCardNumberExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidCardStatus), errors.Is(err, models.ErrInvalidAmount):
		status = http.StatusBadRequest
	default:
		h.log.Errorf("Internal error: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (int64, models.Role, bool) {
	userID, role, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return 0, "", false
	}
	return userID, role, true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

// pagination parses limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
