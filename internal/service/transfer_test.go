package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/bank-cards/internal/models"
)

func activeCard(id, userID int64, balance string) *models.Card {
	return &models.Card{
		ID:                 id,
		Number:             "4000001234567899",
		UserID:             userID,
		Balance:            decimal.RequireFromString(balance),
		Status:             models.CardStatusActive,
		BlockRequestStatus: models.BlockRequestNone,
		ExpiryDate:         time.Now().UTC().AddDate(3, 0, 0),
	}
}

func TestTransfer_Success(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 10, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	transfer, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), transfer.FromCardID)
	assert.Equal(t, int64(2), transfer.ToCardID)
	assert.True(t, transfer.Amount.Equal(decimal.RequireFromString("100.00")))
	assert.WithinDuration(t, time.Now().UTC(), transfer.TransferTime, 5*time.Second)
	assert.NotZero(t, transfer.ID)

	assert.Equal(t, "900.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, "600.00", store.card(2).Balance.StringFixed(2))
	assert.Equal(t, 1, store.transferCount())
}

func TestTransfer_Conservation(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "321.47"),
		activeCard(2, 10, "78.53"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	before := store.card(1).Balance.Add(store.card(2).Balance)
	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("33.19"))
	require.NoError(t, err)
	after := store.card(1).Balance.Add(store.card(2).Balance)

	assert.True(t, before.Equal(after), "total balance changed: %s -> %s", before, after)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "50.00"),
		activeCard(2, 10, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("100.00"))
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	assert.Equal(t, "50.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, "500.00", store.card(2).Balance.StringFixed(2))
	assert.Zero(t, store.transferCount())
}

func TestTransfer_CardNotActive(t *testing.T) {
	blocked := activeCard(1, 10, "1000.00")
	blocked.Status = models.CardStatusBlock
	store := newMemStore(blocked, activeCard(2, 10, "500.00"))
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrCardNotActive)
	assert.Equal(t, "1000.00", store.card(1).Balance.StringFixed(2))
}

func TestTransfer_ExpiredCardRejected(t *testing.T) {
	expired := activeCard(2, 10, "500.00")
	expired.Status = models.CardStatusExpired
	store := newMemStore(activeCard(1, 10, "1000.00"), expired)
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrCardNotActive)
}

func TestTransfer_CrossUserRejected(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 20, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrCrossUserTransfer)
	assert.Zero(t, store.transferCount())
}

func TestTransfer_NotOwnerRejected(t *testing.T) {
	// Both cards belong to user 20; caller 10 may not move their funds.
	store := newMemStore(
		activeCard(1, 20, "1000.00"),
		activeCard(2, 20, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrNotOwner)
}

func TestTransfer_FromCardNotFound(t *testing.T) {
	store := newMemStore(activeCard(2, 10, "500.00"))
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestTransfer_ToCardNotFound(t *testing.T) {
	store := newMemStore(activeCard(1, 10, "500.00"))
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 99, decimal.RequireFromString("10.00"))
	require.ErrorIs(t, err, models.ErrCardNotFound)
}

func TestTransfer_NonPositiveAmount(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 10, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.Zero)
	require.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("-5.00"))
	require.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestTransfer_AtomicityUnderRecordFailure(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 10, "500.00"),
	)
	store.failCreateTransfer = true
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("100.00"))
	require.Error(t, err)

	// Balances were mutated in memory before the insert failed; the
	// rollback must leave storage at the pre-transfer values.
	assert.Equal(t, "1000.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, "500.00", store.card(2).Balance.StringFixed(2))
	assert.Zero(t, store.transferCount())
}

func TestTransfer_AtomicityUnderSaveFailure(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 10, "500.00"),
	)
	store.failSaveCard = true
	svc := NewTransferService(store, nil, nil, testLogger())

	_, err := svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("100.00"))
	require.Error(t, err)

	assert.Equal(t, "1000.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, "500.00", store.card(2).Balance.StringFixed(2))
}

func TestTransfer_SameCard(t *testing.T) {
	store := newMemStore(activeCard(1, 10, "1000.00"))
	svc := NewTransferService(store, nil, nil, testLogger())

	transfer, err := svc.Transfer(context.Background(), 10, 1, 1, decimal.RequireFromString("100.00"))
	require.NoError(t, err)

	assert.Equal(t, "1000.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, int64(1), transfer.FromCardID)
	assert.Equal(t, int64(1), transfer.ToCardID)
}

func TestTransfer_OpposingDirectionsComplete(t *testing.T) {
	store := newMemStore(
		activeCard(1, 10, "1000.00"),
		activeCard(2, 10, "500.00"),
	)
	svc := NewTransferService(store, nil, nil, testLogger())

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.Transfer(context.Background(), 10, 1, 2, decimal.RequireFromString("10.00"))
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.Transfer(context.Background(), 10, 2, 1, decimal.RequireFromString("5.00"))
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Net effect regardless of commit order.
	assert.Equal(t, "995.00", store.card(1).Balance.StringFixed(2))
	assert.Equal(t, "505.00", store.card(2).Balance.StringFixed(2))
	assert.Equal(t, 2, store.transferCount())
}
