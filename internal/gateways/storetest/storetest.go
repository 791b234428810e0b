// Package storetest holds behaviour every ledger.Store implementation must
// share. Backends call Run from their own tests with a constructor that
// returns an empty store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LogCap is the transaction log capacity constructors must use.
const LogCap = 5

type Factory func(t *testing.T) ledger.Store

var (
	alice = ledger.Key{UserID: "100", GuildID: "g1"}
	bob   = ledger.Key{UserID: "200", GuildID: "g1"}
	carol = ledger.Key{UserID: "300", GuildID: "g2"}
)

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ledger.Store)
	}{
		{"ReadDefaults", testReadDefaults},
		{"AtomicCommits", testAtomicCommits},
		{"AtomicRollsBackOnError", testAtomicRollsBack},
		{"NegativeBalanceRejected", testNegativeBalanceRejected},
		{"UndeclaredKey", testUndeclaredKey},
		{"ConcurrentUpdatesAreLinearized", testConcurrentUpdates},
		{"OppositeTransfersDoNotDeadlock", testOppositeTransfers},
		{"TransactionLogCapped", testLogCapped},
		{"Leaderboards", testLeaderboards},
		{"Catalog", testCatalog},
		{"RoleRewards", testRoleRewards},
		{"SnapshotRoundTrip", testSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func testReadDefaults(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	p, err := s.Progression(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.CumulativeXP)

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, a.Balance)
	assert.True(t, a.Multiplier.Equal(decimal.NewFromInt(1)))
}

func testAtomicCommits(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := s.Atomic(ctx, []ledger.Key{alice}, func(tx ledger.Tx) error {
		p, err := tx.Progression(alice)
		if err != nil {
			return err
		}
		p.CumulativeXP = 600
		p.Level = 2
		p.LastXPGrantAt = &now
		p.LevelUpHistory = append(p.LevelUpHistory, ledger.LevelUpEvent{Level: 2, Timestamp: now, XPAtEvent: 600})

		a, err := tx.Account(alice)
		if err != nil {
			return err
		}
		a.Balance = 250
		a.Multiplier = decimal.RequireFromString("1.5")

		if err := tx.AddInventory(ledger.InventoryEntry{ID: "inv-1", UserID: alice.UserID, GuildID: alice.GuildID, ItemID: "badge_vip", AcquiredAt: now}); err != nil {
			return err
		}
		return tx.AppendTransaction(txlog.New(alice, ledger.TxCredit, 250, "seed", now))
	})
	require.NoError(t, err)

	p, err := s.Progression(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(600), p.CumulativeXP)
	assert.Equal(t, 2, p.Level)
	require.Len(t, p.LevelUpHistory, 1)
	assert.Equal(t, int64(600), p.LevelUpHistory[0].XPAtEvent)
	require.NotNil(t, p.LastXPGrantAt)
	assert.True(t, p.LastXPGrantAt.Equal(now))

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(250), a.Balance)
	assert.True(t, a.Multiplier.Equal(decimal.RequireFromString("1.5")))

	inv, err := s.Inventory(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "badge_vip", inv[0].ItemID)

	txs, err := s.Transactions(ctx, ledger.TxQuery{UserID: alice.UserID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.TxCredit, txs[0].Kind)
}

func testAtomicRollsBack(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, []ledger.Key{alice}, func(tx ledger.Tx) error {
		a, err := tx.Account(alice)
		if err != nil {
			return err
		}
		a.Balance = 999
		if err := tx.AppendTransaction(txlog.New(alice, ledger.TxCredit, 999, "lost", time.Now())); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, a.Balance)

	txs, err := s.Transactions(ctx, ledger.TxQuery{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func testNegativeBalanceRejected(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	err := s.Atomic(ctx, []ledger.Key{alice}, func(tx ledger.Tx) error {
		a, err := tx.Account(alice)
		if err != nil {
			return err
		}
		a.Balance = -1
		return nil
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, a.Balance)
}

func testUndeclaredKey(t *testing.T, s ledger.Store) {
	err := s.Atomic(context.Background(), []ledger.Key{alice}, func(tx ledger.Tx) error {
		_, err := tx.Account(bob)
		return err
	})
	assert.ErrorIs(t, err, ledger.ErrUndeclaredKey)
}

func testConcurrentUpdates(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	retrier := &ledger.Retrier{Attempts: 20, Backoff: time.Millisecond}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := retrier.Do(ctx, func() error {
				_, err := ledger.UpdateProgression(ctx, s, alice, func(p *ledger.Progression) error {
					p.CumulativeXP += 10
					p.MessageCount++
					return nil
				})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := s.Progression(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(200), p.CumulativeXP)
	assert.Equal(t, int64(20), p.MessageCount)
}

func testOppositeTransfers(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	for _, k := range []ledger.Key{alice, bob} {
		_, err := ledger.UpdateAccount(ctx, s, k, time.Now(), func(a *ledger.Account) error {
			a.Balance = 1000
			return nil
		})
		require.NoError(t, err)
	}

	move := func(from, to ledger.Key) error {
		return s.Atomic(ctx, []ledger.Key{from, to}, func(tx ledger.Tx) error {
			src, err := tx.Account(from)
			if err != nil {
				return err
			}
			dst, err := tx.Account(to)
			if err != nil {
				return err
			}
			src.Balance--
			dst.Balance++
			return nil
		})
	}

	retrier := &ledger.Retrier{Attempts: 20, Backoff: time.Millisecond}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		from, to := alice, bob
		if i%2 == 1 {
			from, to = bob, alice
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, retrier.Do(ctx, func() error { return move(from, to) }))
		}()
	}
	wg.Wait()

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	b, err := s.Account(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), a.Balance+b.Balance)
	assert.Equal(t, int64(1000), a.Balance)
}

func testLogCapped(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= LogCap+3; i++ {
		err := s.Atomic(ctx, []ledger.Key{alice}, func(tx ledger.Tx) error {
			return tx.AppendTransaction(txlog.New(alice, ledger.TxCredit, int64(i), fmt.Sprintf("n%d", i), base.Add(time.Duration(i)*time.Second)))
		})
		require.NoError(t, err)
	}

	txs, err := s.Transactions(ctx, ledger.TxQuery{})
	require.NoError(t, err)
	require.Len(t, txs, LogCap)
	assert.Equal(t, int64(LogCap+3), txs[0].Amount, "newest first")
	assert.Equal(t, int64(4), txs[len(txs)-1].Amount, "oldest entries evicted")

	limited, err := s.Transactions(ctx, ledger.TxQuery{UserID: alice.UserID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testLeaderboards(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	seed := []struct {
		key     ledger.Key
		xp      int64
		balance int64
		bank    int64
	}{
		{alice, 50, 10, 500},
		{bob, 900, 300, 0},
		{carol, 5000, 9000, 0},
	}
	for _, sd := range seed {
		sd := sd
		err := s.Atomic(ctx, []ledger.Key{sd.key}, func(tx ledger.Tx) error {
			p, err := tx.Progression(sd.key)
			if err != nil {
				return err
			}
			p.CumulativeXP = sd.xp
			a, err := tx.Account(sd.key)
			if err != nil {
				return err
			}
			a.Balance, a.Bank = sd.balance, sd.bank
			return nil
		})
		require.NoError(t, err)
	}

	top, err := s.TopProgressions(ctx, "g1", 0, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, bob.UserID, top[0].UserID)
	assert.Equal(t, alice.UserID, top[1].UserID)

	rich, err := s.TopAccounts(ctx, "g1", 0, 10)
	require.NoError(t, err)
	require.Len(t, rich, 2)
	assert.Equal(t, alice.UserID, rich[0].UserID, "bank counts toward net worth")

	second, err := s.TopAccounts(ctx, "g1", 1, 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, bob.UserID, second[0].UserID)
}

func testCatalog(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	item := ledger.ShopItem{
		ID: "multiplier_2x", Name: "2x Coin Multiplier", Price: 15000,
		Category: "power", Type: "multiplier",
		Multiplier: decimal.NewFromInt(2), DurationHours: 168,
	}

	require.NoError(t, s.AddShopItem(ctx, item))
	assert.ErrorIs(t, s.AddShopItem(ctx, item), ledger.ErrItemExists)

	got, err := s.ShopItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Price, got.Price)
	assert.True(t, got.Multiplier.Equal(item.Multiplier))

	items, err := s.ShopItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, s.RemoveShopItem(ctx, item.ID))
	assert.ErrorIs(t, s.RemoveShopItem(ctx, item.ID), ledger.ErrItemNotFound)
	_, err = s.ShopItem(ctx, item.ID)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func testRoleRewards(t *testing.T, s ledger.Store) {
	ctx := context.Background()

	require.NoError(t, s.SetRoleReward(ctx, ledger.RoleReward{GuildID: "g1", Level: 10, RoleID: "r10"}))
	require.NoError(t, s.SetRoleReward(ctx, ledger.RoleReward{GuildID: "g1", Level: 5, RoleID: "r5"}))
	require.NoError(t, s.SetRoleReward(ctx, ledger.RoleReward{GuildID: "g1", Level: 5, RoleID: "r5b"}))

	rewards, err := s.RoleRewards(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.Equal(t, 5, rewards[0].Level)
	assert.Equal(t, "r5b", rewards[0].RoleID)

	require.NoError(t, s.RemoveRoleReward(ctx, "g1", 5))
	assert.ErrorIs(t, s.RemoveRoleReward(ctx, "g1", 5), ledger.ErrItemNotFound)
}

func testSnapshot(t *testing.T, s ledger.Store) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := ledger.UpdateAccount(ctx, s, alice, now, func(a *ledger.Account) error {
		a.Balance = 42
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.AddShopItem(ctx, ledger.ShopItem{ID: "badge_vip", Name: "VIP Badge", Price: 5000, Category: "cosmetic", Type: "badge", Multiplier: decimal.NewFromInt(1)}))

	snap, err := s.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Accounts, 1)

	_, err = ledger.UpdateAccount(ctx, s, alice, now, func(a *ledger.Account) error {
		a.Balance = 7
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, snap))

	a, err := s.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.Balance)

	items, err := s.ShopItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// Records restored from a snapshot must remain writable.
	_, err = ledger.UpdateAccount(ctx, s, alice, now, func(a *ledger.Account) error {
		a.Balance++
		return nil
	})
	require.NoError(t, err)
}
