package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type staged[T any] struct {
	rec    T
	exists bool
}

type mongoTx struct {
	ctx   mongo.SessionContext
	store *Store

	declared     map[ledger.Key]struct{}
	progressions map[ledger.Key]*staged[ledger.Progression]
	accounts     map[ledger.Key]*staged[ledger.Account]
	inventory    []ledger.InventoryEntry
	txs          []ledger.Transaction
}

func (s *Store) Atomic(ctx context.Context, keys []ledger.Key, fn func(ledger.Tx) error) error {
	keys = ledger.SortKeys(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	unlock, err := s.locks.Lock(ctx, names...)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTransient, err)
	}
	defer unlock()

	sess, err := s.client.StartSession()
	if err != nil {
		return mapError("session", "unit of work", err)
	}
	defer sess.EndSession(context.Background())

	start := time.Now()
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		t := &mongoTx{
			ctx:          sc,
			store:        s,
			declared:     make(map[ledger.Key]struct{}, len(keys)),
			progressions: make(map[ledger.Key]*staged[ledger.Progression]),
			accounts:     make(map[ledger.Key]*staged[ledger.Account]),
		}
		for _, k := range keys {
			t.declared[k] = struct{}{}
		}
		if err := fn(t); err != nil {
			return nil, err
		}
		return nil, t.flush()
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

func (t *mongoTx) check(key ledger.Key) error {
	if _, ok := t.declared[key]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUndeclaredKey, key)
	}
	return nil
}

func (t *mongoTx) Progression(key ledger.Key) (*ledger.Progression, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if st, ok := t.progressions[key]; ok {
		return &st.rec, nil
	}

	var d progressionDoc
	st := &staged[ledger.Progression]{}
	switch err := t.store.coll(colProgressions).FindOne(t.ctx, bson.M{"_id": docID(key)}).Decode(&d); {
	case err == nil:
		st.rec, st.exists = fromProgressionDoc(d), true
	case isNoDocuments(err):
		st.rec = ledger.NewProgression(key)
	default:
		return nil, mapError("find", "progression", err)
	}
	t.progressions[key] = st
	return &st.rec, nil
}

func (t *mongoTx) Account(key ledger.Key) (*ledger.Account, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if st, ok := t.accounts[key]; ok {
		return &st.rec, nil
	}

	var d accountDoc
	st := &staged[ledger.Account]{}
	switch err := t.store.coll(colAccounts).FindOne(t.ctx, bson.M{"_id": docID(key)}).Decode(&d); {
	case err == nil:
		st.rec, st.exists = fromAccountDoc(d), true
	case isNoDocuments(err):
		st.rec = ledger.NewAccount(key)
	default:
		return nil, mapError("find", "account", err)
	}
	t.accounts[key] = st
	return &st.rec, nil
}

func (t *mongoTx) AddInventory(entry ledger.InventoryEntry) error {
	if err := t.check(ledger.Key{UserID: entry.UserID, GuildID: entry.GuildID}); err != nil {
		return err
	}
	t.inventory = append(t.inventory, entry)
	return nil
}

func (t *mongoTx) AppendTransaction(tr ledger.Transaction) error {
	if tr.Amount <= 0 {
		return fmt.Errorf("%w: transaction amount %d", ledger.ErrInvalidAmount, tr.Amount)
	}
	t.txs = append(t.txs, tr)
	return nil
}

func (t *mongoTx) flush() error {
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
		d := toProgressionDoc(st.rec)
		d.Version++
		if err := t.write(colProgressions, d.ID, d, st.exists, st.rec.Version); err != nil {
			return err
		}
	}
	for _, st := range t.accounts {
		d := toAccountDoc(st.rec)
		d.Version++
		if err := t.write(colAccounts, d.ID, d, st.exists, st.rec.Version); err != nil {
			return err
		}
	}

	if len(t.inventory) > 0 {
		docs := make([]interface{}, len(t.inventory))
		for i, e := range t.inventory {
			docs[i] = inventoryDoc(e)
		}
		if _, err := t.store.coll(colInventory).InsertMany(t.ctx, docs); err != nil {
			return mapError("insert", "inventory", err)
		}
	}

	if len(t.txs) > 0 {
		return t.appendLog()
	}
	return nil
}

// write stores a versioned document. Replacements only match the version
// that was loaded; doc already carries the next one.
func (t *mongoTx) write(col, id string, doc interface{}, exists bool, version int64) error {
	coll := t.store.coll(col)

	if !exists {
		if _, err := coll.InsertOne(t.ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s created concurrently", ledger.ErrInvariantViolation, col)
			}
			return mapError("insert", col, err)
		}
		return nil
	}

	res, err := coll.ReplaceOne(t.ctx, bson.M{"_id": id, "version": version}, doc)
	if err != nil {
		return mapError("replace", col, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s changed concurrently", ledger.ErrInvariantViolation, col)
	}
	return nil
}

// appendLog reserves a block of sequence numbers, inserts the staged
// records and evicts everything older than the newest logCap entries.
func (t *mongoTx) appendLog() error {
	n := int64(len(t.txs))
	var counter counterDoc
	err := t.store.coll(colCounters).FindOneAndUpdate(t.ctx,
		bson.M{"_id": txSeqCounter},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return mapError("reserve", "transaction sequence", err)
	}

	first := counter.Seq - n + 1
	docs := make([]interface{}, len(t.txs))
	for i, tr := range t.txs {
		docs[i] = toTransactionDoc(tr, first+int64(i))
	}
	if _, err := t.store.coll(colTransactions).InsertMany(t.ctx, docs); err != nil {
		return mapError("insert", "transactions", err)
	}

	if cutoff := counter.Seq - int64(t.store.logCap); cutoff > 0 {
		if _, err := t.store.coll(colTransactions).DeleteMany(t.ctx, bson.M{"seq": bson.M{"$lte": cutoff}}); err != nil {
			return mapError("trim", "transactions", err)
		}
	}
	return nil
}
