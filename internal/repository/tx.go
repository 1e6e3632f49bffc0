package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mpetrov/bank-cards/internal/models"
)

// Tx is the transaction-scoped card store. Row locks taken through it are
// held until Transact commits or rolls back.
type Tx struct {
	repo *Repository
	tx   *sql.Tx
}

var _ models.CardStore = (*Repository)(nil)

// Transact runs fn inside a single database transaction. The configured
// lock timeout is applied with SET LOCAL so a stuck lock aborts the
// transaction instead of queueing forever. Any error from fn rolls the
// whole transaction back.
func (r *Repository) Transact(ctx context.Context, fn func(tx models.CardTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, timeout); err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}

	if err := fn(&Tx{repo: r, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LockCardForUpdate acquires an exclusive row lock on the card and
// returns its current state.
func (t *Tx) LockCardForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1 FOR UPDATE`
	card, err := t.repo.scanCard(t.tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCardNotFound
	}
	if isLockTimeout(err) {
		return nil, models.ErrLockTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock card %d: %w", id, err)
	}
	return card, nil
}

// SaveCard persists the card's mutable fields.
func (t *Tx) SaveCard(ctx context.Context, card *models.Card) error {
	query := `
		UPDATE bank.cards
		SET balance = $2, status = $3, block_request_status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	res, err := t.tx.ExecContext(ctx, query,
		card.ID, card.Balance.StringFixed(2), card.Status, card.BlockRequestStatus)
	if err != nil {
		return fmt.Errorf("failed to save card %d: %w", card.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrCardNotFound
	}
	return nil
}

// CreateTransfer appends the immutable transfer record.
func (t *Tx) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO bank.transfers (from_card_id, to_card_id, amount, transfer_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := t.tx.QueryRowContext(ctx, query,
		transfer.FromCardID, transfer.ToCardID, transfer.Amount.StringFixed(2), transfer.TransferTime).
		Scan(&transfer.ID)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// FindExpiredBefore returns all cards with status != EXPIRED and expiry
// date strictly before day, locked for update for the sweep transaction.
// Ordered by id so concurrent transfers and the sweep take row locks in
// the same global order.
func (t *Tx) FindExpiredBefore(ctx context.Context, day time.Time) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards
		WHERE status <> $1 AND expiry_date < $2
		ORDER BY id
		FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, models.CardStatusExpired, day)
	if isLockTimeout(err) {
		return nil, models.ErrLockTimeout
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query expired cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := t.repo.scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		if isLockTimeout(err) {
			return nil, models.ErrLockTimeout
		}
		return nil, err
	}
	return cards, nil
}
