package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
	"github.com/ledgerbot/ledgerbot/internal/gateways/storetest"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger.db")
	sqldb, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	if err := models.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Store {
		return New(newTestDB(t), storetest.LogCap)
	})
}

func TestVersionConflictIsReported(t *testing.T) {
	db := newTestDB(t)
	s := New(db, storetest.LogCap)
	ctx := context.Background()
	key := ledger.Key{UserID: "1", GuildID: "g"}

	_, err := ledger.UpdateProgression(ctx, s, key, func(p *ledger.Progression) error {
		p.CumulativeXP = 10
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Simulate another process bumping the row between our read and write.
	err = s.Atomic(ctx, []ledger.Key{key}, func(tx ledger.Tx) error {
		p, err := tx.Progression(key)
		if err != nil {
			return err
		}
		p.CumulativeXP = 20
		bumped := tx.(*sqlTx)
		_, err = bumped.tx.NewUpdate().Model((*models.Progression)(nil)).
			Set("version = version + 1").
			Where("user_id = ? AND guild_id = ?", key.UserID, key.GuildID).
			Exec(bumped.ctx)
		return err
	})
	if err == nil {
		t.Fatal("Atomic() error = nil, want write conflict")
	}
	if !errors.Is(err, ledger.ErrInvariantViolation) {
		t.Errorf("Atomic() error = %v, want ErrInvariantViolation", err)
	}

	p, err := s.Progression(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if p.CumulativeXP != 10 {
		t.Errorf("CumulativeXP = %d, want 10 (aborted write must not apply)", p.CumulativeXP)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError("x", "y", nil); err != nil {
		t.Errorf("mapError(nil) = %v, want nil", err)
	}
	err := mapError("select", "account", sql.ErrConnDone)
	if !errors.Is(err, ledger.ErrStorageUnavailable) {
		t.Errorf("mapError(ErrConnDone) = %v, want ErrStorageUnavailable", err)
	}
	if got := mapError("x", "y", ledger.ErrSameUser); got != ledger.ErrSameUser {
		t.Errorf("mapError(domain error) = %v, want passthrough", got)
	}
}
