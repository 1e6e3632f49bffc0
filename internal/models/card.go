package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle status of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlock   CardStatus = "BLOCK"
	CardStatusExpired CardStatus = "EXPIRED"
)

// Valid reports whether s is one of the known card statuses.
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusActive, CardStatusBlock, CardStatusExpired:
		return true
	}
	return false
}

// BlockRequestStatus tracks the user-initiated block workflow. It is
// orthogonal to the card status; only an administrative status change
// resolves it.
type BlockRequestStatus string

const (
	BlockRequestNone     BlockRequestStatus = "NONE"
	BlockRequestPending  BlockRequestStatus = "PENDING"
	BlockRequestApproved BlockRequestStatus = "APPROVED"
	BlockRequestRejected BlockRequestStatus = "REJECTED"
)

// Card represents a bank card. Number is plaintext in memory; the
// repository encrypts it at rest and handlers mask it on output.
type Card struct {
	ID                 int64              `json:"id"`
	Number             string             `json:"-"`
	UserID             int64              `json:"user_id"`
	Balance            decimal.Decimal    `json:"balance"`
	Status             CardStatus         `json:"status"`
	BlockRequestStatus BlockRequestStatus `json:"block_request_status"`
	ExpiryDate         time.Time          `json:"expiry_date"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// RequestBlock marks the card as awaiting an administrative block
// decision. Legal from any non-EXPIRED status; calling it again while
// already PENDING just re-sets PENDING.
func (c *Card) RequestBlock() error {
	if c.Status == CardStatusExpired {
		return ErrCardExpired
	}
	c.BlockRequestStatus = BlockRequestPending
	return nil
}

// ApplyAdminStatus performs an administrative status change. Any
// outstanding block request is resolved to APPROVED as part of the same
// transition: existing callers rely on a status change acting as the
// decision on a pending request. Kept as one named operation rather than
// a plain setter so the coupling can be unpicked later without hunting
// through call sites.
func (c *Card) ApplyAdminStatus(status CardStatus) error {
	if !status.Valid() {
		return ErrInvalidCardStatus
	}
	c.Status = status
	c.BlockRequestStatus = BlockRequestApproved
	return nil
}

// SweepExpire transitions the card to EXPIRED when its expiry date is
// strictly before today. Already-expired cards are skipped, which makes
// the daily sweep idempotent. EXPIRED is terminal: no transition leads
// out of it. Reports whether the card was transitioned.
func (c *Card) SweepExpire(today time.Time) bool {
	if c.Status == CardStatusExpired {
		return false
	}
	if !c.ExpiryDate.Before(today) {
		return false
	}
	c.Status = CardStatusExpired
	return true
}
