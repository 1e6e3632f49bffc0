package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/models"
)

// memStore is an in-memory models.CardStore with transactional
// semantics: mutations made inside Transact become visible only on
// commit, and an error from fn discards them entirely. Transactions are
// serialized by one mutex, so lock waits cannot occur; the locking
// discipline itself is exercised against Postgres.
type memStore struct {
	mu        sync.Mutex
	cards     map[int64]*models.Card
	transfers []*models.Transfer

	nextTransferID int64

	failSaveCard       bool
	failCreateTransfer bool
}

func newMemStore(cards ...*models.Card) *memStore {
	s := &memStore{cards: make(map[int64]*models.Card)}
	for _, c := range cards {
		cp := *c
		s.cards[c.ID] = &cp
	}
	return s
}

func (s *memStore) Transact(ctx context.Context, fn func(tx models.CardTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s, staged: make(map[int64]*models.Card)}
	if err := fn(tx); err != nil {
		return err
	}

	for id, card := range tx.staged {
		s.cards[id] = card
	}
	s.transfers = append(s.transfers, tx.stagedTransfers...)
	return nil
}

// card returns the committed state of one card.
func (s *memStore) card(id int64) *models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards[id]
}

func (s *memStore) transferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transfers)
}

type memTx struct {
	store           *memStore
	staged          map[int64]*models.Card
	stagedTransfers []*models.Transfer
}

func (t *memTx) LockCardForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	if card, ok := t.staged[id]; ok {
		return card, nil
	}
	card, ok := t.store.cards[id]
	if !ok {
		return nil, models.ErrCardNotFound
	}
	cp := *card
	t.staged[id] = &cp
	return &cp, nil
}

func (t *memTx) SaveCard(ctx context.Context, card *models.Card) error {
	if t.store.failSaveCard {
		return errors.New("save failed")
	}
	t.staged[card.ID] = card
	return nil
}

func (t *memTx) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if t.store.failCreateTransfer {
		return errors.New("transfer insert failed")
	}
	t.store.nextTransferID++
	transfer.ID = t.store.nextTransferID
	t.stagedTransfers = append(t.stagedTransfers, transfer)
	return nil
}

func (t *memTx) FindExpiredBefore(ctx context.Context, day time.Time) ([]*models.Card, error) {
	var ids []int64
	for id, card := range t.store.cards {
		if card.Status != models.CardStatusExpired && card.ExpiryDate.Before(day) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var cards []*models.Card
	for _, id := range ids {
		card, err := t.LockCardForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
