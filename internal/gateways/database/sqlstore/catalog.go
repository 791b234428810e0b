package sqlstore

import (
	"context"
	"fmt"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
)

func (s *Store) ShopItems(ctx context.Context) ([]ledger.ShopItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.ShopItem
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, mapError("select", "shop items", err)
	}

	out := make([]ledger.ShopItem, 0, len(rows))
	for i := range rows {
		out = append(out, shopItemFromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) ShopItem(ctx context.Context, id string) (ledger.ShopItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := new(models.ShopItem)
	err := s.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if isNoRows(err) {
		return ledger.ShopItem{}, fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	}
	if err != nil {
		return ledger.ShopItem{}, mapError("select", "shop item", err)
	}
	return shopItemFromModel(m), nil
}

func (s *Store) AddShopItem(ctx context.Context, item ledger.ShopItem) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewInsert().Model(shopItemToModel(item)).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return mapError("insert", "shop item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrItemExists, item.ID)
	}
	return nil
}

func (s *Store) RemoveShopItem(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewDelete().Model((*models.ShopItem)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapError("delete", "shop item", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	}
	return nil
}

func (s *Store) RoleRewards(ctx context.Context, guildID string) ([]ledger.RoleReward, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.RoleReward
	err := s.db.NewSelect().Model(&rows).
		Where("guild_id = ?", guildID).
		Order("level ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("select", "role rewards", err)
	}

	out := make([]ledger.RoleReward, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.RoleReward{GuildID: r.GuildID, Level: r.Level, RoleID: r.RoleID})
	}
	return out, nil
}

func (s *Store) SetRoleReward(ctx context.Context, reward ledger.RoleReward) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := &models.RoleReward{GuildID: reward.GuildID, Level: reward.Level, RoleID: reward.RoleID}
	_, err := s.db.NewInsert().Model(m).
		On("CONFLICT (guild_id, level) DO UPDATE").
		Set("role_id = EXCLUDED.role_id").
		Exec(ctx)
	return mapError("upsert", "role reward", err)
}

func (s *Store) RemoveRoleReward(ctx context.Context, guildID string, level int) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.NewDelete().Model((*models.RoleReward)(nil)).
		Where("guild_id = ? AND level = ?", guildID, level).
		Exec(ctx)
	if err != nil {
		return mapError("delete", "role reward", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: no role reward for level %d", ledger.ErrItemNotFound, level)
	}
	return nil
}
