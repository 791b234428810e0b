package ledger

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCooldown           = errors.New("on cooldown")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrItemNotFound       = errors.New("item not found")
	ErrItemExists         = errors.New("item already exists")
	ErrSameUser           = errors.New("cannot transfer to yourself")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidTarget      = errors.New("invalid transfer target")
	ErrInvariantViolation = errors.New("concurrent write detected")
	ErrTransient          = errors.New("temporary failure, try again")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUndeclaredKey      = errors.New("key not declared for this unit of work")
)

// CooldownError is returned when a time gate has not elapsed yet.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldown
}

// Side names the part of an account that was short.
type Side string

const (
	SideBalance Side = "balance"
	SideBank    Side = "bank"
)

type InsufficientFundsError struct {
	Side Side
	Have int64
	Need int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s (has %d, needs %d)", e.Side, e.Have, e.Need)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// StorageError wraps a driver failure that is not a write conflict.
type StorageError struct {
	Operation string
	Entity    string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s for %s: %v", e.Operation, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

func NewStorageError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Operation: operation, Entity: entity, Err: err}
}

// RemainingCooldown extracts the wait from a cooldown error.
func RemainingCooldown(err error) (time.Duration, bool) {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return ce.Remaining, true
	}
	return 0, false
}

// IsUserError reports whether err is a rejection of the request itself
// rather than a failure of the system.
func IsUserError(err error) bool {
	return errors.Is(err, ErrCooldown) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrItemExists) ||
		errors.Is(err, ErrSameUser) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTarget)
}
