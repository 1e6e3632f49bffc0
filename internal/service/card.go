package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/models"
	"github.com/mpetrov/bank-cards/internal/utils"
)

// CardService handles card issuance, reads and the lifecycle state
// machine (block requests and administrative status changes).
type CardService struct {
	store    models.CardStore
	cards    CardDirectory
	users    UserDirectory
	notifier Notifier
	log      *logrus.Logger
}

// NewCardService initializes a new card service. notifier may be nil.
func NewCardService(store models.CardStore, cards CardDirectory, users UserDirectory, notifier Notifier, log *logrus.Logger) *CardService {
	return &CardService{store: store, cards: cards, users: users, notifier: notifier, log: log}
}

// CreateCard issues a new ACTIVE card for userID with the initial
// deposit. When number is empty a fresh Luhn-valid number is generated;
// a supplied number must pass the Luhn check.
func (s *CardService) CreateCard(ctx context.Context, userID int64, number string, initialDeposit decimal.Decimal) (*models.Card, error) {
	if initialDeposit.Sign() < 0 {
		return nil, models.ErrInvalidAmount
	}
	if _, err := s.users.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}

	if number == "" {
		generated, err := utils.GenerateCardNumber("400000", 16)
		if err != nil {
			return nil, fmt.Errorf("failed to generate card number: %w", err)
		}
		number = generated
	} else if !utils.ValidCardNumber(number) {
		return nil, fmt.Errorf("card number failed validation")
	}

	card := &models.Card{
		Number:             number,
		UserID:             userID,
		Balance:            initialDeposit,
		Status:             models.CardStatusActive,
		BlockRequestStatus: models.BlockRequestNone,
		ExpiryDate:         utils.GenerateExpiryDate(time.Now()),
	}
	if err := s.cards.CreateCard(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Card %d created for user %d", card.ID, userID)
	return card, nil
}

// GetCard returns a single card. Non-admin callers may only read their
// own cards.
func (s *CardService) GetCard(ctx context.Context, callerUserID int64, callerRole models.Role, cardID int64) (*models.Card, error) {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if callerRole != models.RoleAdmin && card.UserID != callerUserID {
		return nil, models.ErrNotOwner
	}
	return card, nil
}

// ListCards returns the caller's cards.
func (s *CardService) ListCards(ctx context.Context, callerUserID int64, limit, offset int) ([]*models.Card, error) {
	return s.cards.FindCardsByUserID(ctx, callerUserID, limit, offset)
}

// ListCardTransfers returns the transfer history of one card, subject to
// the same ownership rule as GetCard.
func (s *CardService) ListCardTransfers(ctx context.Context, callerUserID int64, callerRole models.Role, cardID int64, limit, offset int) ([]*models.Transfer, error) {
	if _, err := s.GetCard(ctx, callerUserID, callerRole, cardID); err != nil {
		return nil, err
	}
	return s.cards.ListTransfersByCardID(ctx, cardID, limit, offset)
}

// DeleteCard removes a card. Administrative operation.
func (s *CardService) DeleteCard(ctx context.Context, cardID int64) error {
	if err := s.cards.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.log.Infof("Card %d deleted", cardID)
	return nil
}

// RequestBlock records the caller's request to freeze their card. The
// request is persisted immediately under the row lock; repeating it
// while already PENDING is a no-op rather than an error.
func (s *CardService) RequestBlock(ctx context.Context, callerUserID, cardID int64) (*models.Card, error) {
	var result *models.Card
	err := s.store.Transact(ctx, func(tx models.CardTx) error {
		card, err := tx.LockCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if card.UserID != callerUserID {
			return models.ErrNotOwner
		}
		if err := card.RequestBlock(); err != nil {
			return err
		}
		if err := tx.SaveCard(ctx, card); err != nil {
			return err
		}
		result = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block requested for card %d by user %d", cardID, callerUserID)
	return result, nil
}

// SetCardStatus applies an administrative status change. The transition
// also resolves any pending block request to APPROVED; see
// models.Card.ApplyAdminStatus.
func (s *CardService) SetCardStatus(ctx context.Context, cardID int64, status models.CardStatus) (*models.Card, error) {
	if !status.Valid() {
		return nil, models.ErrInvalidCardStatus
	}

	var result *models.Card
	err := s.store.Transact(ctx, func(tx models.CardTx) error {
		card, err := tx.LockCardForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if err := card.ApplyAdminStatus(status); err != nil {
			return err
		}
		if err := tx.SaveCard(ctx, card); err != nil {
			return err
		}
		result = card
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Card %d status set to %s", cardID, status)
	s.notifyStatusChange(ctx, result)

	return result, nil
}

func (s *CardService) notifyStatusChange(ctx context.Context, card *models.Card) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.FindUserByID(ctx, card.UserID)
	if err != nil {
		s.log.Warnf("Skipping status notification, cannot resolve user %d: %v", card.UserID, err)
		return
	}
	if err := s.notifier.CardStatusChanged(user.Email, user.Username, card); err != nil {
		s.log.Warnf("Failed to send status notification to %s: %v", user.Email, err)
	}
}
