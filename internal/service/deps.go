package service

import (
	"context"

	"github.com/mpetrov/bank-cards/internal/models"
)

// CardDirectory covers the non-transactional card boundary: creation,
// plain reads and administrative delete. Transfers and lifecycle
// transitions never go through it; they re-read under lock via
// models.CardStore.
type CardDirectory interface {
	CreateCard(ctx context.Context, card *models.Card) error
	FindCardByID(ctx context.Context, id int64) (*models.Card, error)
	FindCardsByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Card, error)
	DeleteCard(ctx context.Context, id int64) error
	ListTransfersByCardID(ctx context.Context, cardID int64, limit, offset int) ([]*models.Transfer, error)
}

// UserDirectory resolves and persists users.
type UserDirectory interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Notifier delivers best-effort user notifications. Failures are logged
// and never fail the operation that triggered them.
type Notifier interface {
	TransferCompleted(to, username string, transfer *models.Transfer) error
	CardStatusChanged(to, username string, card *models.Card) error
}
