package engine

import (
	"errors"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
)

// Result is one of the variants below. Callers switch on the concrete type.
type Result interface {
	isResult()
}

type Progressed struct {
	Award progression.AwardResult
	// Coins is what the activity credit actually paid after scaling.
	Coins int64
}

// Skipped means the activity did not qualify for a grant at all.
type Skipped struct {
	Reason string
}

type DailyClaimed struct {
	economy.DailyResult
}

type BalanceChecked struct {
	economy.Balance
}

type Transferred struct {
	Amount int64
	economy.TransferResult
}

type Purchased struct {
	economy.PurchaseResult
}

type MultiplierSet struct {
	Account ledger.Account
}

type Credited struct {
	economy.CreditResult
}

type Failure struct {
	Kind FailureKind
	Err  error
	// RetryAfter is set for cooldown failures.
	RetryAfter time.Duration
}

func (Progressed) isResult()     {}
func (Skipped) isResult()        {}
func (DailyClaimed) isResult()   {}
func (BalanceChecked) isResult() {}
func (Transferred) isResult()    {}
func (Purchased) isResult()      {}
func (MultiplierSet) isResult()  {}
func (Credited) isResult()       {}
func (Failure) isResult()        {}

func (f Failure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}

type FailureKind string

const (
	FailCooldown           FailureKind = "cooldown"
	FailInsufficientFunds  FailureKind = "insufficient_funds"
	FailItemNotFound       FailureKind = "item_not_found"
	FailItemExists         FailureKind = "item_exists"
	FailSameUser           FailureKind = "same_user"
	FailInvalidAmount      FailureKind = "invalid_amount"
	FailInvalidTarget      FailureKind = "invalid_target"
	FailTransient          FailureKind = "transient"
	FailStorageUnavailable FailureKind = "storage_unavailable"
	FailUnknownCommand     FailureKind = "unknown_command"
	FailInternal           FailureKind = "internal"
)

// UserFacing reports whether the failure is a rejection of the request
// rather than a fault in the system.
func (k FailureKind) UserFacing() bool {
	switch k {
	case FailCooldown, FailInsufficientFunds, FailItemNotFound, FailItemExists,
		FailSameUser, FailInvalidAmount, FailInvalidTarget, FailUnknownCommand:
		return true
	}
	return false
}

// Fail classifies err into a Failure.
func Fail(err error) Failure {
	f := Failure{Err: err, Kind: FailInternal}
	switch {
	case errors.Is(err, ledger.ErrCooldown):
		f.Kind = FailCooldown
		f.RetryAfter, _ = ledger.RemainingCooldown(err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		f.Kind = FailInsufficientFunds
	case errors.Is(err, ledger.ErrItemNotFound):
		f.Kind = FailItemNotFound
	case errors.Is(err, ledger.ErrItemExists):
		f.Kind = FailItemExists
	case errors.Is(err, ledger.ErrSameUser):
		f.Kind = FailSameUser
	case errors.Is(err, ledger.ErrInvalidAmount):
		f.Kind = FailInvalidAmount
	case errors.Is(err, ledger.ErrInvalidTarget):
		f.Kind = FailInvalidTarget
	case errors.Is(err, ledger.ErrStorageUnavailable):
		f.Kind = FailStorageUnavailable
	case errors.Is(err, ledger.ErrTransient), errors.Is(err, ledger.ErrInvariantViolation):
		f.Kind = FailTransient
	}
	return f
}
