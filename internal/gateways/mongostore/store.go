package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/ledgerbot/ledgerbot/internal/gateways/keylock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultPageLimit = 100

type Config struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
	Timeout  int    `toml:"timeout_seconds"`
}

// Store keeps ledger state in MongoDB. Multi-document units of work run in
// a session transaction, so the server must be a replica set member.
// Writes are also guarded by a per-document version.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	locks  *keylock.Table
	logCap int
}

var _ ledger.Store = (*Store)(nil)

// Connect dials the server and verifies it is reachable.
func Connect(ctx context.Context, cfg Config, logCap int) (*Store, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = "ledgerbot"
	}
	slog.Info("Connected to MongoDB",
		slog.String("type", "db"),
		slog.String("database", dbName),
	)
	return New(client, dbName, logCap), nil
}

func New(client *mongo.Client, database string, logCap int) *Store {
	if logCap <= 0 {
		logCap = txlog.DefaultCap
	}
	return &Store{
		client: client,
		db:     client.Database(database),
		locks:  keylock.New(),
		logCap: logCap,
	}
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Migrate creates the indexes every query relies on.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if _, err := s.coll(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProgressions: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "cumulative_xp", Value: -1}, {Key: "user_id", Value: 1}}},
		},
		colAccounts: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "total", Value: -1}, {Key: "user_id", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}, {Key: "seq", Value: -1}}},
		},
		colInventory: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}, {Key: "acquired_at", Value: 1}}},
		},
		colRoleRewards: {
			{Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "level", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return ledger.NewStorageError("ping", "mongo", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Progression(ctx context.Context, key ledger.Key) (ledger.Progression, error) {
	var d progressionDoc
	err := s.coll(colProgressions).FindOne(ctx, bson.M{"_id": docID(key)}).Decode(&d)
	switch {
	case err == nil:
		return fromProgressionDoc(d), nil
	case isNoDocuments(err):
		return ledger.NewProgression(key), nil
	default:
		return ledger.Progression{}, mapError("find", "progression", err)
	}
}

func (s *Store) Account(ctx context.Context, key ledger.Key) (ledger.Account, error) {
	var d accountDoc
	err := s.coll(colAccounts).FindOne(ctx, bson.M{"_id": docID(key)}).Decode(&d)
	switch {
	case err == nil:
		return fromAccountDoc(d), nil
	case isNoDocuments(err):
		return ledger.NewAccount(key), nil
	default:
		return ledger.Account{}, mapError("find", "account", err)
	}
}

func (s *Store) Transactions(ctx context.Context, q ledger.TxQuery) ([]ledger.Transaction, error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.GuildID != "" {
		filter["guild_id"] = q.GuildID
	}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	var docs []transactionDoc
	if err := findAll(ctx, s.coll(colTransactions), filter, opts, &docs); err != nil {
		return nil, mapError("find", "transactions", err)
	}
	out := make([]ledger.Transaction, len(docs))
	for i, d := range docs {
		out[i] = fromTransactionDoc(d)
	}
	return out, nil
}

func (s *Store) Inventory(ctx context.Context, key ledger.Key) ([]ledger.InventoryEntry, error) {
	var docs []inventoryDoc
	filter := bson.M{"user_id": key.UserID, "guild_id": key.GuildID}
	opts := options.Find().SetSort(bson.D{{Key: "acquired_at", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, s.coll(colInventory), filter, opts, &docs); err != nil {
		return nil, mapError("find", "inventory", err)
	}
	out := make([]ledger.InventoryEntry, len(docs))
	for i, d := range docs {
		out[i] = ledger.InventoryEntry(d)
	}
	return out, nil
}

func pageOptions(sortField string, offset, limit int) *options.FindOptions {
	if limit <= 0 || limit > defaultPageLimit {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "user_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}

func (s *Store) TopProgressions(ctx context.Context, guildID string, offset, limit int) ([]ledger.Progression, error) {
	var docs []progressionDoc
	if err := findAll(ctx, s.coll(colProgressions), bson.M{"guild_id": guildID}, pageOptions("cumulative_xp", offset, limit), &docs); err != nil {
		return nil, mapError("find", "progressions", err)
	}
	out := make([]ledger.Progression, len(docs))
	for i, d := range docs {
		out[i] = fromProgressionDoc(d)
	}
	return out, nil
}

func (s *Store) TopAccounts(ctx context.Context, guildID string, offset, limit int) ([]ledger.Account, error) {
	var docs []accountDoc
	if err := findAll(ctx, s.coll(colAccounts), bson.M{"guild_id": guildID}, pageOptions("total", offset, limit), &docs); err != nil {
		return nil, mapError("find", "accounts", err)
	}
	out := make([]ledger.Account, len(docs))
	for i, d := range docs {
		out[i] = fromAccountDoc(d)
	}
	return out, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions, out interface{}) error {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
