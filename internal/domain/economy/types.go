package economy

import (
	"math/rand/v2"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/shopspring/decimal"
)

type Config struct {
	DailyBaseReward int64
	// DailyBonusRange is exclusive: the bonus is drawn from [0, range).
	DailyBonusRange   int64
	DailyCooldown     time.Duration
	StreakResetWindow time.Duration
	ActivityCoins     int64
}

func DefaultConfig() Config {
	return Config{
		DailyBaseReward:   500,
		DailyBonusRange:   500,
		DailyCooldown:     24 * time.Hour,
		StreakResetWindow: 48 * time.Hour,
		ActivityCoins:     5,
	}
}

// Scaling selects whether a credit goes through the account multiplier.
type Scaling int

const (
	Unscaled Scaling = iota
	Scaled
)

// Rand is the source of the daily bonus.
type Rand interface {
	Int64N(n int64) int64
}

type globalRand struct{}

func (globalRand) Int64N(n int64) int64 { return rand.Int64N(n) }

type CreditResult struct {
	Credited   int64
	Multiplier decimal.Decimal
	Account    ledger.Account
}

type TransferResult struct {
	From ledger.Account
	To   ledger.Account
}

type PurchaseResult struct {
	Item    ledger.ShopItem
	Entry   ledger.InventoryEntry
	Account ledger.Account
}

type DailyResult struct {
	Reward     int64
	NewBalance int64
	Streak     int
}

type Balance struct {
	Account ledger.Account
	Summary txlog.Summary
}
