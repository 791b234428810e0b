package models

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Tables lists every model in creation order.
func Tables() []interface{} {
	return []interface{}{
		(*Progression)(nil),
		(*Account)(nil),
		(*Transaction)(nil),
		(*ShopItem)(nil),
		(*InventoryEntry)(nil),
		(*RoleReward)(nil),
	}
}

// TableNames is used by resets; order is irrelevant there.
var TableNames = []string{
	"progressions",
	"accounts",
	"ledger_transactions",
	"shop_items",
	"inventory",
	"role_rewards",
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_progressions_guild_xp ON progressions(guild_id, cumulative_xp DESC);",
	"CREATE INDEX IF NOT EXISTS idx_accounts_guild ON accounts(guild_id);",
	"CREATE INDEX IF NOT EXISTS idx_ledger_transactions_user ON ledger_transactions(user_id, guild_id);",
	"CREATE INDEX IF NOT EXISTS idx_inventory_user ON inventory(user_id, guild_id);",
}

// CreateSchema creates all tables and indexes if they do not exist.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Tables() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
