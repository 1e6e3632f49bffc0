package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/mpetrov/bank-cards/internal/models"
	"github.com/mpetrov/bank-cards/internal/utils"
)

// Repository provides database operations
type Repository struct {
	db            *sql.DB
	encryptionKey []byte
	hmacSecret    string
	lockTimeout   time.Duration
}

// NewRepository initializes a new repository. Card numbers are encrypted
// with encryptionKey before they hit the database; hmacSecret derives the
// deterministic digest used for duplicate detection.
func NewRepository(db *sql.DB, encryptionKey []byte, hmacSecret string, lockTimeout time.Duration) *Repository {
	return &Repository{
		db:            db,
		encryptionKey: encryptionKey,
		hmacSecret:    hmacSecret,
		lockTimeout:   lockTimeout,
	}
}

// Ping reports database readiness.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO bank.users (username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM bank.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM bank.users
		WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

const cardColumns = `id, number_encrypted, user_id, balance, status, block_request_status, expiry_date, created_at, updated_at`

// scanCard scans one card row and decrypts the stored number.
func (r *Repository) scanCard(row interface {
	Scan(dest ...interface{}) error
}) (*models.Card, error) {
	card := &models.Card{}
	var encryptedNumber, balanceStr string
	err := row.Scan(&card.ID, &encryptedNumber, &card.UserID, &balanceStr,
		&card.Status, &card.BlockRequestStatus, &card.ExpiryDate, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}
	card.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance %q: %w", balanceStr, err)
	}
	card.Number, err = utils.Decrypt(encryptedNumber, r.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt card number: %w", err)
	}
	return card, nil
}

// CreateCard creates a new card. The number is stored encrypted together
// with its HMAC digest; a digest collision means the number already
// exists and is reported as models.ErrCardNumberExists.
func (r *Repository) CreateCard(ctx context.Context, card *models.Card) error {
	encryptedNumber, err := utils.Encrypt(card.Number, r.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt card number: %w", err)
	}
	numberHash := utils.GenerateHMAC(card.Number, r.hmacSecret)

	query := `
		INSERT INTO bank.cards (number_encrypted, number_hash, user_id, balance, status, block_request_status, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		encryptedNumber, numberHash, card.UserID, card.Balance.StringFixed(2),
		card.Status, card.BlockRequestStatus, card.ExpiryDate).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrCardNumberExists
	}
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card without locking it. Boundary reads only;
// the transfer and sweep paths always re-read under lock.
func (r *Repository) FindCardByID(ctx context.Context, id int64) (*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE id = $1`
	card, err := r.scanCard(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find card: %w", err)
	}
	return card, nil
}

// FindCardsByUserID lists a user's cards, newest first.
func (r *Repository) FindCardsByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM bank.cards WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card, err := r.scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// DeleteCard removes a card. Administrative operation; transfers
// referencing the card are kept as audit history.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrCardNotFound
	}
	return nil
}

// ListTransfersByCardID returns transfers where the card is either side,
// newest first.
func (r *Repository) ListTransfersByCardID(ctx context.Context, cardID int64, limit, offset int) ([]*models.Transfer, error) {
	query := `
		SELECT id, from_card_id, to_card_id, amount, transfer_time
		FROM bank.transfers
		WHERE from_card_id = $1 OR to_card_id = $1
		ORDER BY id DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, cardID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		t := &models.Transfer{}
		var amountStr string
		if err := rows.Scan(&t.ID, &t.FromCardID, &t.ToCardID, &amountStr, &t.TransferTime); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	// 55P03 lock_not_available: SET LOCAL lock_timeout expired
	return errors.As(err, &pqErr) && pqErr.Code == "55P03"
}
