package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
	"github.com/ledgerbot/ledgerbot/internal/gateways/keylock"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultPageLimit = 100
)

// Store persists the ledger through bun. It works on both PostgreSQL and
// sqlite. Units of work take an in-process lock per key, then open a
// database transaction in which rows are read (FOR UPDATE on PostgreSQL)
// and written back with a version check, so writers in other processes
// surface as ErrInvariantViolation instead of lost updates.
type Store struct {
	db      *bun.DB
	locks   *keylock.Table
	logCap  int
	timeout time.Duration
	pg      bool
}

var _ ledger.Store = (*Store)(nil)

type Option func(*Store)

func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

func New(db *bun.DB, logCap int, opts ...Option) *Store {
	if logCap <= 0 {
		logCap = txlog.DefaultCap
	}
	s := &Store{
		db:      db,
		locks:   keylock.New(),
		logCap:  logCap,
		timeout: defaultTimeout,
		pg:      db.Dialect().Name() == dialect.PG,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) Progression(ctx context.Context, key ledger.Key) (ledger.Progression, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := new(models.Progression)
	err := s.db.NewSelect().Model(m).
		Where("user_id = ? AND guild_id = ?", key.UserID, key.GuildID).
		Scan(ctx)
	if isNoRows(err) {
		return ledger.NewProgression(key), nil
	}
	if err != nil {
		return ledger.Progression{}, mapError("select", "progression", err)
	}
	return progressionFromModel(m), nil
}

func (s *Store) Account(ctx context.Context, key ledger.Key) (ledger.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m := new(models.Account)
	err := s.db.NewSelect().Model(m).
		Where("user_id = ? AND guild_id = ?", key.UserID, key.GuildID).
		Scan(ctx)
	if isNoRows(err) {
		return ledger.NewAccount(key), nil
	}
	if err != nil {
		return ledger.Account{}, mapError("select", "account", err)
	}
	return accountFromModel(m), nil
}

func (s *Store) Atomic(ctx context.Context, keys []ledger.Key, fn func(ledger.Tx) error) error {
	keys = ledger.SortKeys(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, names...)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTransient, err)
	}
	defer unlock()

	start := time.Now()
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t := newSQLTx(ctx, tx, s, keys)
		if err := fn(t); err != nil {
			return err
		}
		return t.flush()
	})
	if err != nil {
		err = mapError("commit", "unit of work", err)
		slog.Debug("Unit of work aborted",
			slog.String("type", "db"),
			slog.Int("keys", len(keys)),
			slog.Duration("took", time.Since(start)),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func (s *Store) Transactions(ctx context.Context, q ledger.TxQuery) ([]ledger.Transaction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.Transaction
	query := s.db.NewSelect().Model(&rows).Order("seq DESC")
	if q.UserID != "" {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.GuildID != "" {
		query = query.Where("guild_id = ?", q.GuildID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, mapError("select", "transactions", err)
	}

	out := make([]ledger.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, transactionFromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) Inventory(ctx context.Context, key ledger.Key) ([]ledger.InventoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.InventoryEntry
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ? AND guild_id = ?", key.UserID, key.GuildID).
		Order("acquired_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapError("select", "inventory", err)
	}

	out := make([]ledger.InventoryEntry, 0, len(rows))
	for i := range rows {
		out = append(out, inventoryFromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) TopProgressions(ctx context.Context, guildID string, offset, limit int) ([]ledger.Progression, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.Progression
	query := s.db.NewSelect().Model(&rows).
		Where("guild_id = ?", guildID).
		Order("cumulative_xp DESC", "user_id ASC").
		Offset(offset).
		Limit(pageLimit(limit))
	if err := query.Scan(ctx); err != nil {
		return nil, mapError("select", "progression leaderboard", err)
	}

	out := make([]ledger.Progression, 0, len(rows))
	for i := range rows {
		out = append(out, progressionFromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) TopAccounts(ctx context.Context, guildID string, offset, limit int) ([]ledger.Account, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []models.Account
	query := s.db.NewSelect().Model(&rows).
		Where("guild_id = ?", guildID).
		OrderExpr("balance + bank DESC").
		Order("user_id ASC").
		Offset(offset).
		Limit(pageLimit(limit))
	if err := query.Scan(ctx); err != nil {
		return nil, mapError("select", "account leaderboard", err)
	}

	out := make([]ledger.Account, 0, len(rows))
	for i := range rows {
		out = append(out, accountFromModel(&rows[i]))
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return mapError("ping", "database", s.db.PingContext(ctx))
}

// Close is a no-op; the connection belongs to whoever opened it.
func (s *Store) Close() error { return nil }

func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	return limit
}
