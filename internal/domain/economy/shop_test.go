package economy

import (
	"context"
	"testing"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShop_SeedDefaultsOnce(t *testing.T) {
	shop := NewShop(memstore.New(10), nil)
	ctx := context.Background()

	n, err := shop.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultItems()), n)

	n, err = shop.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	items, err := shop.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "loot_box_common", items[0].ID)
	assert.Equal(t, "multiplier_2x", items[len(items)-1].ID)
}

func TestShop_Resolve(t *testing.T) {
	shop := NewShop(memstore.New(10), nil)
	ctx := context.Background()
	_, err := shop.SeedDefaults(ctx)
	require.NoError(t, err)

	tests := []struct {
		query   string
		want    string
		wantErr error
	}{
		{"badge_vip", "badge_vip", nil},
		{"neon", "color_neon", nil},
		{"2x", "multiplier_2x", nil},
		{"zzzz", "", ledger.ErrItemNotFound},
		{"  ", "", ledger.ErrItemNotFound},
	}
	for _, tt := range tests {
		got, err := shop.Resolve(ctx, tt.query)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, tt.query)
			continue
		}
		require.NoError(t, err, tt.query)
		if got.ID != tt.want {
			t.Errorf("Shop.Resolve(%q) got = %v, want %v", tt.query, got.ID, tt.want)
		}
	}
}

func TestShop_AddRemove(t *testing.T) {
	shop := NewShop(memstore.New(10), nil)
	ctx := context.Background()

	item := ledger.ShopItem{ID: "hat", Name: "Hat", Price: 10, Type: ItemTypeBadge, Category: "cosmetic"}
	require.NoError(t, shop.Add(ctx, item))
	assert.ErrorIs(t, shop.Add(ctx, item), ledger.ErrItemExists)

	got, err := shop.Get(ctx, "hat")
	require.NoError(t, err)
	assert.Equal(t, "Hat", got.Name)

	require.NoError(t, shop.Remove(ctx, "hat"))
	_, err = shop.Get(ctx, "hat")
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
	assert.ErrorIs(t, shop.Remove(ctx, "hat"), ledger.ErrItemNotFound)
}

func TestShop_AddValidation(t *testing.T) {
	shop := NewShop(memstore.New(10), nil)
	ctx := context.Background()

	assert.ErrorIs(t, shop.Add(ctx, ledger.ShopItem{ID: "free", Price: 0}), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, shop.Add(ctx, ledger.ShopItem{
		ID: "boost", Price: 5, Type: ItemTypeMultiplier, Multiplier: decimal.NewFromInt(2),
	}), ledger.ErrInvalidAmount)
}
