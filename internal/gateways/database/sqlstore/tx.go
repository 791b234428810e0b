package sqlstore

import (
	"context"
	"fmt"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type stagedProgression struct {
	rec    ledger.Progression
	exists bool
}

type stagedAccount struct {
	rec    ledger.Account
	exists bool
}

type sqlTx struct {
	ctx   context.Context
	tx    bun.Tx
	store *Store

	declared     map[ledger.Key]struct{}
	progressions map[ledger.Key]*stagedProgression
	accounts     map[ledger.Key]*stagedAccount
	inventory    []ledger.InventoryEntry
	txs          []ledger.Transaction
}

func newSQLTx(ctx context.Context, tx bun.Tx, s *Store, keys []ledger.Key) *sqlTx {
	t := &sqlTx{
		ctx:          ctx,
		tx:           tx,
		store:        s,
		declared:     make(map[ledger.Key]struct{}, len(keys)),
		progressions: make(map[ledger.Key]*stagedProgression),
		accounts:     make(map[ledger.Key]*stagedAccount),
	}
	for _, k := range keys {
		t.declared[k] = struct{}{}
	}
	return t
}

func (t *sqlTx) check(key ledger.Key) error {
	if _, ok := t.declared[key]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUndeclaredKey, key)
	}
	return nil
}

func (t *sqlTx) selectForUpdate(model interface{}, key ledger.Key) error {
	q := t.tx.NewSelect().Model(model).
		Where("user_id = ? AND guild_id = ?", key.UserID, key.GuildID)
	if t.store.pg {
		q = q.For("UPDATE")
	}
	return q.Scan(t.ctx)
}

func (t *sqlTx) Progression(key ledger.Key) (*ledger.Progression, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if st, ok := t.progressions[key]; ok {
		return &st.rec, nil
	}

	m := new(models.Progression)
	st := &stagedProgression{}
	switch err := t.selectForUpdate(m, key); {
	case err == nil:
		st.rec, st.exists = progressionFromModel(m), true
	case isNoRows(err):
		st.rec = ledger.NewProgression(key)
	default:
		return nil, mapError("select", "progression", err)
	}
	t.progressions[key] = st
	return &st.rec, nil
}

func (t *sqlTx) Account(key ledger.Key) (*ledger.Account, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if st, ok := t.accounts[key]; ok {
		return &st.rec, nil
	}

	m := new(models.Account)
	st := &stagedAccount{}
	switch err := t.selectForUpdate(m, key); {
	case err == nil:
		st.rec, st.exists = accountFromModel(m), true
	case isNoRows(err):
		st.rec = ledger.NewAccount(key)
	default:
		return nil, mapError("select", "account", err)
	}
	t.accounts[key] = st
	return &st.rec, nil
}

func (t *sqlTx) AddInventory(entry ledger.InventoryEntry) error {
	if err := t.check(ledger.Key{UserID: entry.UserID, GuildID: entry.GuildID}); err != nil {
		return err
	}
	t.inventory = append(t.inventory, entry)
	return nil
}

func (t *sqlTx) AppendTransaction(tr ledger.Transaction) error {
	if tr.Amount <= 0 {
		return fmt.Errorf("%w: transaction amount %d", ledger.ErrInvalidAmount, tr.Amount)
	}
	t.txs = append(t.txs, tr)
	return nil
}

// flush validates every staged record and writes it. Inserts race with
// other processes creating the same row and updates carry the version
// read at the start; either losing a race reports a write conflict.
func (t *sqlTx) flush() error {
	for _, st := range t.progressions {
		if err := st.rec.Validate(); err != nil {
			return err
		}
	}
	for _, st := range t.accounts {
		if err := st.rec.Validate(); err != nil {
			return err
		}
	}

	for _, st := range t.progressions {
		m := progressionToModel(st.rec)
		if err := t.write(m, st.exists, st.rec.Version, "progression"); err != nil {
			return err
		}
	}
	for _, st := range t.accounts {
		m := accountToModel(st.rec)
		if err := t.write(m, st.exists, st.rec.Version, "account"); err != nil {
			return err
		}
	}

	if len(t.inventory) > 0 {
		rows := make([]*models.InventoryEntry, 0, len(t.inventory))
		for _, e := range t.inventory {
			rows = append(rows, inventoryToModel(e))
		}
		if _, err := t.tx.NewInsert().Model(&rows).Exec(t.ctx); err != nil {
			return mapError("insert", "inventory", err)
		}
	}

	if len(t.txs) > 0 {
		rows := make([]*models.Transaction, 0, len(t.txs))
		for _, tr := range t.txs {
			rows = append(rows, transactionToModel(tr))
		}
		if _, err := t.tx.NewInsert().Model(&rows).Exec(t.ctx); err != nil {
			return mapError("insert", "transactions", err)
		}
		if err := trimLog(t.ctx, t.tx, t.store.logCap); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTx) write(model interface{}, exists bool, version int64, entity string) error {
	setVersion(model, version+1)

	if !exists {
		res, err := t.tx.NewInsert().Model(model).
			On("CONFLICT DO NOTHING").
			Exec(t.ctx)
		if err != nil {
			return mapError("insert", entity, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s created concurrently", ledger.ErrInvariantViolation, entity)
		}
		return nil
	}

	res, err := t.tx.NewUpdate().Model(model).
		WherePK().
		Where("version = ?", version).
		Exec(t.ctx)
	if err != nil {
		return mapError("update", entity, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ledger.ErrInvariantViolation, entity)
	}
	return nil
}

func setVersion(model interface{}, v int64) {
	switch m := model.(type) {
	case *models.Progression:
		m.Version = v
	case *models.Account:
		m.Version = v
	}
}

// trimLog evicts the oldest log rows beyond capacity.
func trimLog(ctx context.Context, db bun.IDB, capacity int) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM ledger_transactions WHERE seq <= (SELECT seq FROM ledger_transactions ORDER BY seq DESC LIMIT 1 OFFSET ?)",
		capacity,
	)
	return mapError("trim", "transactions", err)
}
