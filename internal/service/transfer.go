package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/models"
)

// TransferService moves money between two cards of the same user as one
// atomic unit.
type TransferService struct {
	store    models.CardStore
	users    UserDirectory
	notifier Notifier
	log      *logrus.Logger
}

// NewTransferService initializes a new transfer service. notifier may be
// nil when notifications are not configured.
func NewTransferService(store models.CardStore, users UserDirectory, notifier Notifier, log *logrus.Logger) *TransferService {
	return &TransferService{store: store, users: users, notifier: notifier, log: log}
}

// Transfer debits fromCardID and credits toCardID by amount on behalf of
// callerUserID. Both rows are locked before any state is inspected, in
// ascending id order so two transfers over the same pair can never
// deadlock. All checks run before any mutation; the debit, credit and
// audit record commit together or not at all.
func (s *TransferService) Transfer(ctx context.Context, callerUserID, fromCardID, toCardID int64, amount decimal.Decimal) (*models.Transfer, error) {
	if amount.Sign() <= 0 {
		return nil, models.ErrInvalidAmount
	}

	var result *models.Transfer
	err := s.store.Transact(ctx, func(tx models.CardTx) error {
		from, to, err := lockPair(ctx, tx, fromCardID, toCardID)
		if err != nil {
			return err
		}

		if from.UserID != to.UserID {
			return models.ErrCrossUserTransfer
		}
		if from.UserID != callerUserID {
			return models.ErrNotOwner
		}
		if from.Status != models.CardStatusActive || to.Status != models.CardStatusActive {
			return models.ErrCardNotActive
		}
		if from.Balance.LessThan(amount) {
			return models.ErrInsufficientFunds
		}

		from.Balance = from.Balance.Sub(amount)
		to.Balance = to.Balance.Add(amount)

		if err := tx.SaveCard(ctx, from); err != nil {
			return err
		}
		if to != from {
			if err := tx.SaveCard(ctx, to); err != nil {
				return err
			}
		}

		transfer := &models.Transfer{
			FromCardID:   fromCardID,
			ToCardID:     toCardID,
			Amount:       amount,
			TransferTime: time.Now().UTC(),
		}
		if err := tx.CreateTransfer(ctx, transfer); err != nil {
			return err
		}

		result = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Transfer %d completed: card %d -> card %d, amount %s",
		result.ID, fromCardID, toCardID, amount.StringFixed(2))
	s.notifyTransfer(ctx, callerUserID, result)

	return result, nil
}

// lockPair locks both cards in ascending id order. When the ids are
// equal the row is locked once and both sides alias it. A missing source
// card is reported before a missing destination card regardless of lock
// order.
func lockPair(ctx context.Context, tx models.CardTx, fromCardID, toCardID int64) (from, to *models.Card, err error) {
	first, second := fromCardID, toCardID
	if second < first {
		first, second = second, first
	}

	locked := make(map[int64]*models.Card, 2)
	for _, id := range []int64{first, second} {
		if _, ok := locked[id]; ok {
			continue
		}
		card, err := tx.LockCardForUpdate(ctx, id)
		if errors.Is(err, models.ErrCardNotFound) {
			locked[id] = nil
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		locked[id] = card
	}

	if from = locked[fromCardID]; from == nil {
		return nil, nil, fmt.Errorf("from card %d: %w", fromCardID, models.ErrCardNotFound)
	}
	if to = locked[toCardID]; to == nil {
		return nil, nil, fmt.Errorf("to card %d: %w", toCardID, models.ErrCardNotFound)
	}
	return from, to, nil
}

func (s *TransferService) notifyTransfer(ctx context.Context, userID int64, transfer *models.Transfer) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		s.log.Warnf("Skipping transfer notification, cannot resolve user %d: %v", userID, err)
		return
	}
	if err := s.notifier.TransferCompleted(user.Email, user.Username, transfer); err != nil {
		s.log.Warnf("Failed to send transfer notification to %s: %v", user.Email, err)
	}
}
