package models

import (
	"context"
	"time"
)

// CardTx is the transaction-scoped view of the card store. Every method
// runs inside the transaction opened by CardStore.Transact; locks taken
// with LockCardForUpdate are held until that transaction commits or
// rolls back.
type CardTx interface {
	// LockCardForUpdate acquires an exclusive row lock on the card and
	// returns its current state. Returns ErrCardNotFound for unknown ids
	// and ErrLockTimeout when the lock cannot be acquired within the
	// configured bound.
	LockCardForUpdate(ctx context.Context, id int64) (*Card, error)
	// SaveCard persists the card's mutable fields (balance, status,
	// block-request status). Idempotent per call.
	SaveCard(ctx context.Context, card *Card) error
	// CreateTransfer appends an immutable transfer record, filling in the
	// server-assigned id.
	CreateTransfer(ctx context.Context, transfer *Transfer) error
	// FindExpiredBefore returns all cards with status != EXPIRED and
	// expiry date strictly before day, locked for update.
	FindExpiredBefore(ctx context.Context, day time.Time) ([]*Card, error)
}

// CardStore runs a function inside one storage transaction. If fn returns
// an error the transaction is rolled back and no mutation made through
// the CardTx is observable; otherwise it is committed.
type CardStore interface {
	Transact(ctx context.Context, fn func(tx CardTx) error) error
}
