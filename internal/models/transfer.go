package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is the immutable audit record of a balance movement between
// two cards of the same user. Rows are append-only: never updated or
// deleted. TransferTime is assigned by the server at execution.
type Transfer struct {
	ID           int64           `json:"id"`
	FromCardID   int64           `json:"from_card_id"`
	ToCardID     int64           `json:"to_card_id"`
	Amount       decimal.Decimal `json:"amount"`
	TransferTime time.Time       `json:"transfer_time"`
}
