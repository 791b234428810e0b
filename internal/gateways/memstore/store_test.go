package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		return New(storetest.LogCap)
	})
}

func TestStore_RestoreWaitsForUnitsOfWork(t *testing.T) {
	ctx := context.Background()
	s := New(storetest.LogCap)
	key := ledger.Key{UserID: "u1", GuildID: "g1"}

	entered := make(chan struct{})
	release := make(chan struct{})
	committed := make(chan error, 1)
	go func() {
		committed <- s.Atomic(ctx, []ledger.Key{key}, func(tx ledger.Tx) error {
			a, err := tx.Account(key)
			if err != nil {
				return err
			}
			a.Balance = 100
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	restoredAcc := ledger.NewAccount(key)
	restoredAcc.Balance = 7
	restored := make(chan error, 1)
	go func() {
		restored <- s.Restore(ctx, &ledger.Snapshot{Version: ledger.SnapshotVersion, Accounts: []ledger.Account{restoredAcc}})
	}()

	select {
	case err := <-restored:
		t.Fatalf("Restore() returned %v while a unit of work was open", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-committed)
	require.NoError(t, <-restored)

	got, err := s.Account(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Balance)
}
