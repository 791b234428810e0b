package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Progression struct {
	bun.BaseModel `bun:"table:progressions,alias:p"`

	UserID         string         `bun:"user_id,pk"`
	GuildID        string         `bun:"guild_id,pk"`
	CumulativeXP   int64          `bun:"cumulative_xp,notnull,default:0"`
	Level          int            `bun:"level,notnull,default:1"`
	LastXPGrantAt  *time.Time     `bun:"last_xp_grant_at,nullzero"`
	MessageCount   int64          `bun:"message_count,notnull,default:0"`
	LevelUpHistory []LevelUpEntry `bun:"level_up_history"`
	Version        int64          `bun:"version,notnull,default:0"`
	UpdatedAt      time.Time      `bun:"updated_at,notnull"`
}

type LevelUpEntry struct {
	Level     int       `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	XPAtEvent int64     `json:"xp_at_event"`
}

type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	UserID              string          `bun:"user_id,pk"`
	GuildID             string          `bun:"guild_id,pk"`
	Balance             int64           `bun:"balance,notnull,default:0"`
	Bank                int64           `bun:"bank,notnull,default:0"`
	DailyStreak         int             `bun:"daily_streak,notnull,default:0"`
	LastDailyClaimAt    *time.Time      `bun:"last_daily_claim_at,nullzero"`
	Multiplier          decimal.Decimal `bun:"multiplier,type:varchar(32),notnull"`
	MultiplierExpiresAt *time.Time      `bun:"multiplier_expires_at,nullzero"`
	Version             int64           `bun:"version,notnull,default:0"`
	UpdatedAt           time.Time       `bun:"updated_at,notnull"`
}

type Transaction struct {
	bun.BaseModel `bun:"table:ledger_transactions,alias:t"`

	Seq       int64     `bun:"seq,pk,autoincrement"`
	ID        string    `bun:"id,notnull,unique"`
	UserID    string    `bun:"user_id,notnull"`
	GuildID   string    `bun:"guild_id,notnull"`
	Kind      string    `bun:"kind,notnull"`
	Amount    int64     `bun:"amount,notnull"`
	Reason    string    `bun:"reason,notnull"`
	Timestamp time.Time `bun:"timestamp,notnull"`
}

type ShopItem struct {
	bun.BaseModel `bun:"table:shop_items,alias:si"`

	ID            string          `bun:"id,pk"`
	Name          string          `bun:"name,notnull"`
	Description   string          `bun:"description"`
	Price         int64           `bun:"price,notnull"`
	Category      string          `bun:"category,notnull"`
	Type          string          `bun:"type,notnull"`
	Multiplier    decimal.Decimal `bun:"multiplier,type:varchar(32),notnull"`
	DurationHours int             `bun:"duration_hours,notnull,default:0"`
}

type InventoryEntry struct {
	bun.BaseModel `bun:"table:inventory,alias:inv"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	GuildID    string    `bun:"guild_id,notnull"`
	ItemID     string    `bun:"item_id,notnull"`
	AcquiredAt time.Time `bun:"acquired_at,notnull"`
}

type RoleReward struct {
	bun.BaseModel `bun:"table:role_rewards,alias:rr"`

	GuildID string `bun:"guild_id,pk"`
	Level   int    `bun:"level,pk"`
	RoleID  string `bun:"role_id,notnull"`
}
