package mongostore

import (
	"context"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const snapshotTimeout = 5 * time.Minute

// Dump reads every collection concurrently.
func (s *Store) Dump(ctx context.Context) (*ledger.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	var (
		progressions []progressionDoc
		accounts     []accountDoc
		txs          []transactionDoc
		items        []shopItemDoc
		inventory    []inventoryDoc
		rewards      []roleRewardDoc
	)
	reads := []struct {
		col  string
		opts *options.FindOptions
		out  interface{}
	}{
		{colProgressions, nil, &progressions},
		{colAccounts, nil, &accounts},
		{colTransactions, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}), &txs},
		{colShopItems, nil, &items},
		{colInventory, nil, &inventory},
		{colRoleRewards, nil, &rewards},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range reads {
		r := r
		g.Go(func() error {
			opts := r.opts
			if opts == nil {
				opts = options.Find()
			}
			if err := findAll(gctx, s.coll(r.col), bson.M{}, opts, r.out); err != nil {
				return mapError("dump", r.col, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &ledger.Snapshot{Version: ledger.SnapshotVersion, CreatedAt: time.Now().UTC()}
	for _, d := range progressions {
		snap.Progressions = append(snap.Progressions, fromProgressionDoc(d))
	}
	for _, d := range accounts {
		snap.Accounts = append(snap.Accounts, fromAccountDoc(d))
	}
	for _, d := range txs {
		snap.Transactions = append(snap.Transactions, fromTransactionDoc(d))
	}
	for _, d := range items {
		snap.ShopItems = append(snap.ShopItems, fromShopItemDoc(d))
	}
	for _, d := range inventory {
		snap.Inventory = append(snap.Inventory, ledger.InventoryEntry(d))
	}
	for _, d := range rewards {
		snap.RoleRewards = append(snap.RoleRewards, ledger.RoleReward{GuildID: d.GuildID, Level: d.Level, RoleID: d.RoleID})
	}
	return snap, nil
}

// Restore replaces every collection's contents with snap in one
// transaction. Only the newest logCap transactions are kept.
func (s *Store) Restore(ctx context.Context, snap *ledger.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	sess, err := s.client.StartSession()
	if err != nil {
		return mapError("session", "restore", err)
	}
	defer sess.EndSession(context.Background())

	txs := snap.Transactions
	if len(txs) > s.logCap {
		txs = txs[len(txs)-s.logCap:]
	}

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for _, col := range []string{colProgressions, colAccounts, colTransactions, colShopItems, colInventory, colRoleRewards, colCounters} {
			if _, err := s.coll(col).DeleteMany(sc, bson.M{}); err != nil {
				return nil, mapError("restore", col, err)
			}
		}

		docs := map[string][]interface{}{}
		for _, p := range snap.Progressions {
			docs[colProgressions] = append(docs[colProgressions], toProgressionDoc(p))
		}
		for _, a := range snap.Accounts {
			docs[colAccounts] = append(docs[colAccounts], toAccountDoc(a))
		}
		for i, t := range txs {
			docs[colTransactions] = append(docs[colTransactions], toTransactionDoc(t, int64(i+1)))
		}
		for _, it := range snap.ShopItems {
			docs[colShopItems] = append(docs[colShopItems], toShopItemDoc(it))
		}
		for _, e := range snap.Inventory {
			docs[colInventory] = append(docs[colInventory], inventoryDoc(e))
		}
		for _, r := range snap.RoleRewards {
			id := roleRewardID(r.GuildID, r.Level)
			docs[colRoleRewards] = append(docs[colRoleRewards], roleRewardDoc{ID: id, GuildID: r.GuildID, Level: r.Level, RoleID: r.RoleID})
		}

		for col, batch := range docs {
			if _, err := s.coll(col).InsertMany(sc, batch); err != nil {
				return nil, mapError("restore", col, err)
			}
		}
		if _, err := s.coll(colCounters).InsertOne(sc, counterDoc{ID: txSeqCounter, Seq: int64(len(txs))}); err != nil {
			return nil, mapError("restore", colCounters, err)
		}
		return nil, nil
	})
	return mapError("restore", "snapshot", err)
}
