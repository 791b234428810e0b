package sqlstore

import (
	"context"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

const snapshotTimeout = 5 * time.Minute

func (s *Store) Dump(ctx context.Context) (*ledger.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	var (
		progressions []models.Progression
		accounts     []models.Account
		txs          []models.Transaction
		items        []models.ShopItem
		inventory    []models.InventoryEntry
		rewards      []models.RoleReward
	)
	queries := []struct {
		entity string
		run    func() error
	}{
		{"progressions", func() error { return s.db.NewSelect().Model(&progressions).Scan(ctx) }},
		{"accounts", func() error { return s.db.NewSelect().Model(&accounts).Scan(ctx) }},
		{"transactions", func() error { return s.db.NewSelect().Model(&txs).Order("seq ASC").Scan(ctx) }},
		{"shop items", func() error { return s.db.NewSelect().Model(&items).Scan(ctx) }},
		{"inventory", func() error { return s.db.NewSelect().Model(&inventory).Scan(ctx) }},
		{"role rewards", func() error { return s.db.NewSelect().Model(&rewards).Scan(ctx) }},
	}
	for _, q := range queries {
		if err := q.run(); err != nil && !isNoRows(err) {
			return nil, mapError("dump", q.entity, err)
		}
	}

	snap := &ledger.Snapshot{Version: ledger.SnapshotVersion, CreatedAt: time.Now().UTC()}
	for i := range progressions {
		snap.Progressions = append(snap.Progressions, progressionFromModel(&progressions[i]))
	}
	for i := range accounts {
		snap.Accounts = append(snap.Accounts, accountFromModel(&accounts[i]))
	}
	for i := range txs {
		snap.Transactions = append(snap.Transactions, transactionFromModel(&txs[i]))
	}
	for i := range items {
		snap.ShopItems = append(snap.ShopItems, shopItemFromModel(&items[i]))
	}
	for i := range inventory {
		snap.Inventory = append(snap.Inventory, inventoryFromModel(&inventory[i]))
	}
	for _, r := range rewards {
		snap.RoleRewards = append(snap.RoleRewards, ledger.RoleReward{GuildID: r.GuildID, Level: r.Level, RoleID: r.RoleID})
	}
	return snap, nil
}

// Restore replaces every table's contents with snap in one transaction.
func (s *Store) Restore(ctx context.Context, snap *ledger.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range models.Tables() {
			if _, err := tx.NewDelete().Model(model).Where("1 = 1").Exec(ctx); err != nil {
				return mapError("restore", "clear", err)
			}
		}

		var (
			progressions []*models.Progression
			accounts     []*models.Account
			txs          []*models.Transaction
			items        []*models.ShopItem
			inventory    []*models.InventoryEntry
			rewards      []*models.RoleReward
		)
		for _, p := range snap.Progressions {
			progressions = append(progressions, progressionToModel(p))
		}
		for _, a := range snap.Accounts {
			accounts = append(accounts, accountToModel(a))
		}
		for _, t := range snap.Transactions {
			txs = append(txs, transactionToModel(t))
		}
		for _, it := range snap.ShopItems {
			items = append(items, shopItemToModel(it))
		}
		for _, e := range snap.Inventory {
			inventory = append(inventory, inventoryToModel(e))
		}
		for _, r := range snap.RoleRewards {
			rewards = append(rewards, &models.RoleReward{GuildID: r.GuildID, Level: r.Level, RoleID: r.RoleID})
		}

		inserts := []struct {
			entity string
			n      int
			model  interface{}
		}{
			{"progressions", len(progressions), &progressions},
			{"accounts", len(accounts), &accounts},
			{"transactions", len(txs), &txs},
			{"shop items", len(items), &items},
			{"inventory", len(inventory), &inventory},
			{"role rewards", len(rewards), &rewards},
		}
		for _, ins := range inserts {
			if ins.n == 0 {
				continue
			}
			if _, err := tx.NewInsert().Model(ins.model).Exec(ctx); err != nil {
				return mapError("restore", ins.entity, err)
			}
		}
		return trimLog(ctx, tx, s.logCap)
	})
	return mapError("restore", "snapshot", err)
}
