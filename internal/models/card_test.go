package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardStatus_Valid(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"ACTIVE", true}, {"BLOCK", true}, {"EXPIRED", true},
		{"active", false}, {"FROZEN", false}, {"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, CardStatus(c.in).Valid(), "status %q", c.in)
	}
}

func TestCard_RequestBlock(t *testing.T) {
	card := &Card{Status: CardStatusActive, BlockRequestStatus: BlockRequestNone}

	require.NoError(t, card.RequestBlock())
	assert.Equal(t, BlockRequestPending, card.BlockRequestStatus)
	assert.Equal(t, CardStatusActive, card.Status)

	// Repeated request re-sets PENDING, not an error.
	require.NoError(t, card.RequestBlock())
	assert.Equal(t, BlockRequestPending, card.BlockRequestStatus)
}

func TestCard_RequestBlock_Expired(t *testing.T) {
	card := &Card{Status: CardStatusExpired}
	assert.ErrorIs(t, card.RequestBlock(), ErrCardExpired)
}

func TestCard_ApplyAdminStatus(t *testing.T) {
	card := &Card{Status: CardStatusActive, BlockRequestStatus: BlockRequestPending}

	require.NoError(t, card.ApplyAdminStatus(CardStatusBlock))
	assert.Equal(t, CardStatusBlock, card.Status)
	assert.Equal(t, BlockRequestApproved, card.BlockRequestStatus)

	require.Error(t, card.ApplyAdminStatus(CardStatus("bogus")))
	assert.Equal(t, CardStatusBlock, card.Status, "invalid target must leave the card unchanged")
}

func TestCard_SweepExpire(t *testing.T) {
	today := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	card := &Card{Status: CardStatusActive, ExpiryDate: today.AddDate(0, 0, -1)}
	assert.True(t, card.SweepExpire(today))
	assert.Equal(t, CardStatusExpired, card.Status)

	// Second sweep is a no-op.
	assert.False(t, card.SweepExpire(today))

	// Expiring exactly today is not yet expired.
	card = &Card{Status: CardStatusActive, ExpiryDate: today}
	assert.False(t, card.SweepExpire(today))
	assert.Equal(t, CardStatusActive, card.Status)

	// Blocked cards still expire.
	card = &Card{Status: CardStatusBlock, ExpiryDate: today.AddDate(-1, 0, 0)}
	assert.True(t, card.SweepExpire(today))
	assert.Equal(t, CardStatusExpired, card.Status)
}
