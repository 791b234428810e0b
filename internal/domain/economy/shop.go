package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	ItemTypeBadge      = "badge"
	ItemTypeRole       = "role"
	ItemTypeColor      = "color"
	ItemTypeLoot       = "loot"
	ItemTypeMultiplier = "multiplier"

	shopCacheSize = 128
)

// DefaultItems is the catalog seeded into an empty shop.
func DefaultItems() []ledger.ShopItem {
	return []ledger.ShopItem{
		{ID: "badge_vip", Name: "VIP Badge", Description: "Shows a VIP badge on your profile", Price: 5000, Type: ItemTypeBadge, Category: "cosmetic"},
		{ID: "role_moderator", Name: "Moderator Role", Description: "Get moderator powers for 24 hours", Price: 10000, Type: ItemTypeRole, Category: "power"},
		{ID: "color_neon", Name: "Neon Color Role", Description: "A vibrant neon colored role", Price: 3000, Type: ItemTypeColor, Category: "cosmetic"},
		{ID: "loot_box_common", Name: "Common Loot Box", Description: "Contains 500-1500 bonus coins", Price: 1000, Type: ItemTypeLoot, Category: "consumable"},
		{ID: "loot_box_rare", Name: "Rare Loot Box", Description: "Contains 2000-5000 bonus coins", Price: 5000, Type: ItemTypeLoot, Category: "consumable"},
		{
			ID: "multiplier_2x", Name: "2x Coin Multiplier", Description: "Double your coin earnings for 7 days", Price: 15000,
			Type: ItemTypeMultiplier, Category: "power", Multiplier: decimal.NewFromInt(2), DurationHours: 168,
		},
	}
}

// Shop fronts the stored catalog with an item cache. Concurrent misses for
// the same id share one store read.
type Shop struct {
	catalog ledger.Catalog
	cache   *lru.Cache
	group   singleflight.Group
	log     *slog.Logger
}

func NewShop(catalog ledger.Catalog, log *slog.Logger) *Shop {
	cache, _ := lru.New(shopCacheSize)
	if log == nil {
		log = slog.Default()
	}
	return &Shop{catalog: catalog, cache: cache, log: log}
}

// SeedDefaults stores DefaultItems when the catalog is empty.
func (s *Shop) SeedDefaults(ctx context.Context) (int, error) {
	items, err := s.catalog.ShopItems(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) > 0 {
		return 0, nil
	}

	seeded := 0
	for _, item := range DefaultItems() {
		if err := s.catalog.AddShopItem(ctx, item); err != nil {
			if errors.Is(err, ledger.ErrItemExists) {
				continue
			}
			return seeded, fmt.Errorf("failed to seed %s: %w", item.ID, err)
		}
		seeded++
	}
	s.log.Info("Seeded default shop", slog.String("type", "sys"), slog.Int("items", seeded))
	return seeded, nil
}

// Get serves id from the cache, falling back to the catalog. Entries may be
// stale when another process edits the catalog; use Lookup where that
// matters.
func (s *Shop) Get(ctx context.Context, id string) (ledger.ShopItem, error) {
	if v, ok := s.cache.Get(id); ok {
		return v.(ledger.ShopItem), nil
	}

	v, err, _ := s.group.Do(id, func() (interface{}, error) {
		item, err := s.catalog.ShopItem(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache.Add(id, item)
		return item, nil
	})
	if err != nil {
		return ledger.ShopItem{}, err
	}
	return v.(ledger.ShopItem), nil
}

// Lookup reads id straight from the catalog and refreshes the cache with
// the result.
func (s *Shop) Lookup(ctx context.Context, id string) (ledger.ShopItem, error) {
	item, err := s.catalog.ShopItem(ctx, id)
	if err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			s.cache.Remove(id)
		}
		return ledger.ShopItem{}, err
	}
	s.cache.Add(id, item)
	return item, nil
}

// List returns the catalog ordered by price, then id.
func (s *Shop) List(ctx context.Context) ([]ledger.ShopItem, error) {
	items, err := s.catalog.ShopItems(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Price != items[j].Price {
			return items[i].Price < items[j].Price
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Shop) Add(ctx context.Context, item ledger.ShopItem) error {
	if item.ID == "" || item.Price <= 0 {
		return fmt.Errorf("%w: item needs an id and a positive price", ledger.ErrInvalidAmount)
	}
	if item.Type == ItemTypeMultiplier && (!item.Multiplier.IsPositive() || item.DurationHours <= 0) {
		return fmt.Errorf("%w: multiplier items need a multiplier and a duration", ledger.ErrInvalidAmount)
	}
	if err := s.catalog.AddShopItem(ctx, item); err != nil {
		return err
	}
	s.cache.Remove(item.ID)
	return nil
}

func (s *Shop) Remove(ctx context.Context, id string) error {
	if err := s.catalog.RemoveShopItem(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

type shopItems []ledger.ShopItem

func (items shopItems) Len() int {
	return len(items)
}

func (items shopItems) String(i int) string {
	return strings.ToLower(items[i].Name + " " + items[i].ID)
}

// Search matches query against item names and ids, best match first.
func (s *Shop) Search(ctx context.Context, query string) ([]ledger.ShopItem, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items, nil
	}

	matches := fuzzy.FindFrom(query, shopItems(items))
	out := make([]ledger.ShopItem, len(matches))
	for i, m := range matches {
		out[i] = items[m.Index]
	}
	return out, nil
}

// Resolve accepts an exact id or falls back to the best fuzzy match.
func (s *Shop) Resolve(ctx context.Context, query string) (ledger.ShopItem, error) {
	if strings.TrimSpace(query) == "" {
		return ledger.ShopItem{}, fmt.Errorf("%w: empty item name", ledger.ErrItemNotFound)
	}
	item, err := s.Get(ctx, query)
	if err == nil || !errors.Is(err, ledger.ErrItemNotFound) {
		return item, err
	}
	matches, err := s.Search(ctx, query)
	if err != nil {
		return ledger.ShopItem{}, err
	}
	if len(matches) == 0 {
		return ledger.ShopItem{}, fmt.Errorf("%w: %s", ledger.ErrItemNotFound, query)
	}
	return matches[0], nil
}
