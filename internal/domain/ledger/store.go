package ledger

import (
	"context"
	"time"
)

// Tx is a unit of work over a fixed, declared set of keys. Records are
// get-or-create: a key that was never written yields its zero state.
// Changes made through the returned pointers are persisted only if the
// function passed to Store.Atomic returns nil.
type Tx interface {
	Progression(key Key) (*Progression, error)
	Account(key Key) (*Account, error)
	AddInventory(entry InventoryEntry) error
	AppendTransaction(t Transaction) error
}

type TxQuery struct {
	UserID  string
	GuildID string
	Limit   int
}

type Reader interface {
	Progression(ctx context.Context, key Key) (Progression, error)
	Account(ctx context.Context, key Key) (Account, error)
	Transactions(ctx context.Context, q TxQuery) ([]Transaction, error)
	Inventory(ctx context.Context, key Key) ([]InventoryEntry, error)
	TopProgressions(ctx context.Context, guildID string, offset, limit int) ([]Progression, error)
	TopAccounts(ctx context.Context, guildID string, offset, limit int) ([]Account, error)
}

type Catalog interface {
	ShopItems(ctx context.Context) ([]ShopItem, error)
	ShopItem(ctx context.Context, id string) (ShopItem, error)
	AddShopItem(ctx context.Context, item ShopItem) error
	RemoveShopItem(ctx context.Context, id string) error
}

type RoleRewards interface {
	RoleRewards(ctx context.Context, guildID string) ([]RoleReward, error)
	SetRoleReward(ctx context.Context, reward RoleReward) error
	RemoveRoleReward(ctx context.Context, guildID string, level int) error
}

// Snapshot is the portable form of every record a store holds.
type Snapshot struct {
	Version      int              `json:"version"`
	CreatedAt    time.Time        `json:"created_at"`
	Progressions []Progression    `json:"progressions"`
	Accounts     []Account        `json:"accounts"`
	Transactions []Transaction    `json:"transactions"`
	ShopItems    []ShopItem       `json:"shop_items"`
	Inventory    []InventoryEntry `json:"inventory"`
	RoleRewards  []RoleReward     `json:"role_rewards"`
}

const SnapshotVersion = 1

type Snapshotter interface {
	Dump(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) error
}

// Store owns all durable state. Atomic serializes units of work per key:
// two calls sharing any key never interleave their read-modify-write
// cycles. Implementations acquire keys in Key.Less order.
type Store interface {
	Reader
	Catalog
	RoleRewards
	Snapshotter
	Atomic(ctx context.Context, keys []Key, fn func(Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// UpdateProgression is the single-key read-modify-write for progression.
func UpdateProgression(ctx context.Context, s Store, key Key, fn func(*Progression) error) (Progression, error) {
	var out Progression
	err := s.Atomic(ctx, []Key{key}, func(tx Tx) error {
		p, err := tx.Progression(key)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

// UpdateAccount is the single-key read-modify-write for accounts. Expired
// multipliers are reset before fn sees the record.
func UpdateAccount(ctx context.Context, s Store, key Key, now time.Time, fn func(*Account) error) (Account, error) {
	var out Account
	err := s.Atomic(ctx, []Key{key}, func(tx Tx) error {
		a, err := tx.Account(key)
		if err != nil {
			return err
		}
		a.ExpireMultiplier(now)
		if err := fn(a); err != nil {
			return err
		}
		out = a.Clone()
		return nil
	})
	return out, err
}
