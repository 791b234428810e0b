package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = ledger.Key{UserID: "alice", GuildID: "g1"}

func seed(t *testing.T, s ledger.Store, now time.Time) {
	t.Helper()
	ctx := context.Background()

	err := s.Atomic(ctx, []ledger.Key{alice}, func(tx ledger.Tx) error {
		a, err := tx.Account(alice)
		if err != nil {
			return err
		}
		a.Balance = 1200
		a.Bank = 300
		p, err := tx.Progression(alice)
		if err != nil {
			return err
		}
		p.CumulativeXP = 600
		p.Level = 2
		p.LevelUpHistory = []ledger.LevelUpEvent{{Level: 2, Timestamp: now, XPAtEvent: 600}}
		return tx.AppendTransaction(txlog.New(alice, ledger.TxCredit, 1200, "seed", now))
	})
	require.NoError(t, err)
	require.NoError(t, s.AddShopItem(ctx, ledger.ShopItem{
		ID: "multiplier_2x", Name: "2x", Price: 15000, Type: "multiplier",
		Multiplier: decimal.NewFromInt(2), DurationHours: 168,
	}))
	require.NoError(t, s.SetRoleReward(ctx, ledger.RoleReward{GuildID: "g1", Level: 5, RoleID: "123"}))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	src := memstore.New(100)
	seed(t, src, now)

	sink := DirSink{Dir: t.TempDir()}
	name, snap, err := New(src, nil, sink).Export(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, "ledgerbot-20240301-120000.json", name)
	assert.Equal(t, ledger.SnapshotVersion, snap.Version)
	assert.Len(t, snap.Transactions, 1)

	dst := memstore.New(100)
	_, err = New(dst, nil, sink).Import(ctx, name)
	require.NoError(t, err)

	acc, err := dst.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), acc.Balance)
	assert.Equal(t, int64(300), acc.Bank)

	prog, err := dst.Progression(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Level)
	assert.Len(t, prog.LevelUpHistory, 1)

	item, err := dst.ShopItem(ctx, "multiplier_2x")
	require.NoError(t, err)
	assert.True(t, item.Multiplier.Equal(decimal.NewFromInt(2)))

	rewards, err := dst.RoleRewards(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, rewards, 1)
}

func TestImportMissing(t *testing.T) {
	svc := New(memstore.New(10), nil, DirSink{Dir: t.TempDir()})
	_, err := svc.Import(context.Background(), "ledgerbot-19700101-000000.json")
	assert.True(t, errors.Is(err, ErrNotFound), "Import() error = %v, want ErrNotFound", err)
}

func TestExportWithoutSinks(t *testing.T) {
	_, _, err := New(memstore.New(10), nil).Export(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "Valid", data: `{"version":1,"accounts":[]}`},
		{name: "WrongVersion", data: `{"version":9}`, wantErr: true},
		{name: "Garbage", data: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDirSinkRejectsPaths(t *testing.T) {
	sink := DirSink{Dir: t.TempDir()}
	for _, name := range []string{"../escape.json", "a/b.json", ".."} {
		if err := sink.Put(context.Background(), name, []byte("{}")); err == nil {
			t.Errorf("Put(%q) error = nil, want error", name)
		}
	}
}
