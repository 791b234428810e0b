package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Key identifies a per-guild user record.
type Key struct {
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id"`
}

func (k Key) String() string {
	return k.GuildID + "/" + k.UserID
}

// Less orders keys by user id first so that two-party operations always
// lock in the same order regardless of argument order.
func (k Key) Less(o Key) bool {
	if k.UserID != o.UserID {
		return k.UserID < o.UserID
	}
	return k.GuildID < o.GuildID
}

// SortKeys returns a sorted copy of keys with duplicates removed.
func SortKeys(keys []Key) []Key {
	out := make([]Key, 0, len(keys))
	seen := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

type LevelUpEvent struct {
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	XPAtEvent int64     `json:"xp_at_event"`
}

type Progression struct {
	Key
	CumulativeXP   int64          `json:"cumulative_xp"`
	Level          int            `json:"level"`
	LastXPGrantAt  *time.Time     `json:"last_xp_grant_at,omitempty"`
	MessageCount   int64          `json:"message_count"`
	LevelUpHistory []LevelUpEvent `json:"level_up_history"`
	Version        int64          `json:"-"`
}

// NewProgression returns the zero state for key.
func NewProgression(key Key) Progression {
	return Progression{Key: key, Level: 1}
}

// Clone returns a deep copy so staged mutations never alias stored state.
func (p Progression) Clone() Progression {
	if p.LastXPGrantAt != nil {
		t := *p.LastXPGrantAt
		p.LastXPGrantAt = &t
	}
	if p.LevelUpHistory != nil {
		p.LevelUpHistory = append([]LevelUpEvent(nil), p.LevelUpHistory...)
	}
	return p
}

type Account struct {
	Key
	Balance             int64           `json:"balance"`
	Bank                int64           `json:"bank"`
	DailyStreak         int             `json:"daily_streak"`
	LastDailyClaimAt    *time.Time      `json:"last_daily_claim_at,omitempty"`
	Multiplier          decimal.Decimal `json:"multiplier"`
	MultiplierExpiresAt *time.Time      `json:"multiplier_expires_at,omitempty"`
	Version             int64           `json:"-"`
}

func NewAccount(key Key) Account {
	return Account{Key: key, Multiplier: decimal.NewFromInt(1)}
}

func (a Account) Clone() Account {
	if a.LastDailyClaimAt != nil {
		t := *a.LastDailyClaimAt
		a.LastDailyClaimAt = &t
	}
	if a.MultiplierExpiresAt != nil {
		t := *a.MultiplierExpiresAt
		a.MultiplierExpiresAt = &t
	}
	return a
}

// Total is the net worth used for currency leaderboards.
func (a Account) Total() int64 {
	return a.Balance + a.Bank
}

// ExpireMultiplier resets an elapsed multiplier to 1. It reports whether
// anything changed.
func (a *Account) ExpireMultiplier(now time.Time) bool {
	if a.Multiplier.IsZero() {
		a.Multiplier = decimal.NewFromInt(1)
	}
	if a.MultiplierExpiresAt == nil || now.Before(*a.MultiplierExpiresAt) {
		return false
	}
	a.Multiplier = decimal.NewFromInt(1)
	a.MultiplierExpiresAt = nil
	return true
}

type TxKind string

const (
	TxCredit      TxKind = "credit"
	TxDebit       TxKind = "debit"
	TxTransferIn  TxKind = "transfer_in"
	TxTransferOut TxKind = "transfer_out"
	TxPurchase    TxKind = "purchase"
	TxDaily       TxKind = "daily"
)

// Inbound reports whether the kind adds money to the user.
func (k TxKind) Inbound() bool {
	switch k {
	case TxCredit, TxTransferIn, TxDaily:
		return true
	}
	return false
}

type Transaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	GuildID   string    `json:"guild_id"`
	Kind      TxKind    `json:"kind"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type ShopItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	// Multiplier and DurationHours apply to items of type "multiplier".
	Multiplier    decimal.Decimal `json:"multiplier"`
	DurationHours int             `json:"duration_hours"`
}

type InventoryEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	GuildID    string    `json:"guild_id"`
	ItemID     string    `json:"item_id"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type RoleReward struct {
	GuildID string `json:"guild_id"`
	Level   int    `json:"level"`
	RoleID  string `json:"role_id"`
}

// Validate checks the invariants every stored account must satisfy.
func (a Account) Validate() error {
	if a.Balance < 0 {
		return &InsufficientFundsError{Side: SideBalance, Have: a.Balance, Need: 0}
	}
	if a.Bank < 0 {
		return &InsufficientFundsError{Side: SideBank, Have: a.Bank, Need: 0}
	}
	if !a.Multiplier.IsPositive() {
		return fmt.Errorf("%w: multiplier %s", ErrInvalidAmount, a.Multiplier)
	}
	return nil
}

func (p Progression) Validate() error {
	if p.CumulativeXP < 0 || p.MessageCount < 0 {
		return fmt.Errorf("%w: negative progression counters", ErrInvalidAmount)
	}
	if p.Level < 1 {
		return fmt.Errorf("%w: level %d", ErrInvalidAmount, p.Level)
	}
	return nil
}
