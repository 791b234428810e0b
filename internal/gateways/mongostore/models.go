package mongostore

import (
	"strconv"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

const (
	colProgressions = "ledger_progressions"
	colAccounts     = "ledger_accounts"
	colTransactions = "ledger_transactions"
	colShopItems    = "ledger_shop_items"
	colInventory    = "ledger_inventory"
	colRoleRewards  = "ledger_role_rewards"
	colCounters     = "ledger_counters"

	txSeqCounter = "transactions"
)

type levelUpDoc struct {
	Level     int       `bson:"level"`
	Timestamp time.Time `bson:"timestamp"`
	XPAtEvent int64     `bson:"xp_at_event"`
}

type progressionDoc struct {
	ID             string       `bson:"_id"`
	UserID         string       `bson:"user_id"`
	GuildID        string       `bson:"guild_id"`
	CumulativeXP   int64        `bson:"cumulative_xp"`
	Level          int          `bson:"level"`
	LastXPGrantAt  *time.Time   `bson:"last_xp_grant_at,omitempty"`
	MessageCount   int64        `bson:"message_count"`
	LevelUpHistory []levelUpDoc `bson:"level_up_history"`
	Version        int64        `bson:"version"`
}

type accountDoc struct {
	ID               string     `bson:"_id"`
	UserID           string     `bson:"user_id"`
	GuildID          string     `bson:"guild_id"`
	Balance          int64      `bson:"balance"`
	Bank             int64      `bson:"bank"`
	Total            int64      `bson:"total"`
	DailyStreak      int        `bson:"daily_streak"`
	LastDailyClaimAt *time.Time `bson:"last_daily_claim_at,omitempty"`
	// Multiplier is kept as a decimal string so no precision is lost.
	Multiplier          string     `bson:"multiplier"`
	MultiplierExpiresAt *time.Time `bson:"multiplier_expires_at,omitempty"`
	Version             int64      `bson:"version"`
}

type transactionDoc struct {
	ID        string    `bson:"_id"`
	Seq       int64     `bson:"seq"`
	UserID    string    `bson:"user_id"`
	GuildID   string    `bson:"guild_id"`
	Kind      string    `bson:"kind"`
	Amount    int64     `bson:"amount"`
	Reason    string    `bson:"reason"`
	Timestamp time.Time `bson:"timestamp"`
}

type shopItemDoc struct {
	ID            string `bson:"_id"`
	Name          string `bson:"name"`
	Description   string `bson:"description"`
	Price         int64  `bson:"price"`
	Category      string `bson:"category"`
	Type          string `bson:"type"`
	Multiplier    string `bson:"multiplier,omitempty"`
	DurationHours int    `bson:"duration_hours"`
}

type inventoryDoc struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	GuildID    string    `bson:"guild_id"`
	ItemID     string    `bson:"item_id"`
	AcquiredAt time.Time `bson:"acquired_at"`
}

type roleRewardDoc struct {
	ID      string `bson:"_id"`
	GuildID string `bson:"guild_id"`
	Level   int    `bson:"level"`
	RoleID  string `bson:"role_id"`
}

type counterDoc struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

func docID(key ledger.Key) string {
	return key.String()
}

func roleRewardID(guildID string, level int) string {
	return guildID + "#" + strconv.Itoa(level)
}

func toProgressionDoc(p ledger.Progression) progressionDoc {
	d := progressionDoc{
		ID:            docID(p.Key),
		UserID:        p.UserID,
		GuildID:       p.GuildID,
		CumulativeXP:  p.CumulativeXP,
		Level:         p.Level,
		LastXPGrantAt: p.LastXPGrantAt,
		MessageCount:  p.MessageCount,
		Version:       p.Version,
	}
	d.LevelUpHistory = make([]levelUpDoc, len(p.LevelUpHistory))
	for i, ev := range p.LevelUpHistory {
		d.LevelUpHistory[i] = levelUpDoc(ev)
	}
	return d
}

func fromProgressionDoc(d progressionDoc) ledger.Progression {
	p := ledger.Progression{
		Key:           ledger.Key{UserID: d.UserID, GuildID: d.GuildID},
		CumulativeXP:  d.CumulativeXP,
		Level:         d.Level,
		LastXPGrantAt: d.LastXPGrantAt,
		MessageCount:  d.MessageCount,
		Version:       d.Version,
	}
	if len(d.LevelUpHistory) > 0 {
		p.LevelUpHistory = make([]ledger.LevelUpEvent, len(d.LevelUpHistory))
		for i, ev := range d.LevelUpHistory {
			p.LevelUpHistory[i] = ledger.LevelUpEvent(ev)
		}
	}
	if p.Level < 1 {
		p.Level = 1
	}
	return p
}

func toAccountDoc(a ledger.Account) accountDoc {
	return accountDoc{
		ID:                  docID(a.Key),
		UserID:              a.UserID,
		GuildID:             a.GuildID,
		Balance:             a.Balance,
		Bank:                a.Bank,
		Total:               a.Total(),
		DailyStreak:         a.DailyStreak,
		LastDailyClaimAt:    a.LastDailyClaimAt,
		Multiplier:          a.Multiplier.String(),
		MultiplierExpiresAt: a.MultiplierExpiresAt,
		Version:             a.Version,
	}
}

func fromAccountDoc(d accountDoc) ledger.Account {
	return ledger.Account{
		Key:                 ledger.Key{UserID: d.UserID, GuildID: d.GuildID},
		Balance:             d.Balance,
		Bank:                d.Bank,
		DailyStreak:         d.DailyStreak,
		LastDailyClaimAt:    d.LastDailyClaimAt,
		Multiplier:          parseDecimal(d.Multiplier, decimal.NewFromInt(1)),
		MultiplierExpiresAt: d.MultiplierExpiresAt,
		Version:             d.Version,
	}
}

func toTransactionDoc(t ledger.Transaction, seq int64) transactionDoc {
	return transactionDoc{
		ID:        t.ID,
		Seq:       seq,
		UserID:    t.UserID,
		GuildID:   t.GuildID,
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		Reason:    t.Reason,
		Timestamp: t.Timestamp,
	}
}

func fromTransactionDoc(d transactionDoc) ledger.Transaction {
	return ledger.Transaction{
		ID:        d.ID,
		UserID:    d.UserID,
		GuildID:   d.GuildID,
		Kind:      ledger.TxKind(d.Kind),
		Amount:    d.Amount,
		Reason:    d.Reason,
		Timestamp: d.Timestamp,
	}
}

func toShopItemDoc(it ledger.ShopItem) shopItemDoc {
	d := shopItemDoc{
		ID:            it.ID,
		Name:          it.Name,
		Description:   it.Description,
		Price:         it.Price,
		Category:      it.Category,
		Type:          it.Type,
		DurationHours: it.DurationHours,
	}
	if !it.Multiplier.IsZero() {
		d.Multiplier = it.Multiplier.String()
	}
	return d
}

func fromShopItemDoc(d shopItemDoc) ledger.ShopItem {
	return ledger.ShopItem{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		Category:      d.Category,
		Type:          d.Type,
		Multiplier:    parseDecimal(d.Multiplier, decimal.Zero),
		DurationHours: d.DurationHours,
	}
}

func parseDecimal(s string, fallback decimal.Decimal) decimal.Decimal {
	if s == "" {
		return fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fallback
	}
	return d
}
