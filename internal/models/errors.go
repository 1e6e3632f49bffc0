package models

import "errors"

// Domain errors. Services return these (possibly wrapped); handlers match
// them with errors.Is and translate to HTTP statuses. Anything not in
// this list is an infrastructure failure.
var (
	// ErrCardNotFound indicates the referenced card does not exist.
	ErrCardNotFound = errors.New("card not found")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrCrossUserTransfer indicates the two cards belong to different users.
	ErrCrossUserTransfer = errors.New("transfers are allowed only between cards of the same user")
	// ErrNotOwner indicates the caller does not own the card involved.
	ErrNotOwner = errors.New("card does not belong to the caller")
	// ErrCardNotActive indicates a card is blocked or expired.
	ErrCardNotActive = errors.New("card is not active")
	// ErrInsufficientFunds indicates the source balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrCardExpired indicates an operation on a card in the terminal EXPIRED state.
	ErrCardExpired = errors.New("card is expired")
	// ErrLockTimeout indicates a row lock could not be acquired within the
	// configured wait; the operation is safe to retry with backoff.
	ErrLockTimeout = errors.New("timed out waiting for a card lock")
	// ErrCardNumberExists indicates a duplicate card number on creation.
	ErrCardNumberExists = errors.New("card number already exists")
	// ErrInvalidCardStatus indicates an unknown target status.
	ErrInvalidCardStatus = errors.New("invalid card status")
	// ErrInvalidAmount indicates a non-positive or over-precise amount.
	ErrInvalidAmount = errors.New("amount must be positive with at most 2 decimal places")
)
