package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/ledgerbot/ledgerbot/internal/gateways/keylock"
)

// Store keeps everything in process memory. Units of work on the same key
// are serialized through a keyed lock table; the maps themselves are
// guarded by mu, which is only held for short copies. Units of work hold
// gate shared and Restore holds it exclusively, so a restore never
// interleaves with a commit.
type Store struct {
	locks *keylock.Table
	gate  sync.RWMutex

	mu           sync.RWMutex
	progressions map[ledger.Key]ledger.Progression
	accounts     map[ledger.Key]ledger.Account
	inventory    map[ledger.Key][]ledger.InventoryEntry
	log          *txlog.Ring
	shop         map[string]ledger.ShopItem
	rewards      map[string]map[int]ledger.RoleReward
}

var _ ledger.Store = (*Store)(nil)

func New(logCap int) *Store {
	return &Store{
		locks:        keylock.New(),
		progressions: make(map[ledger.Key]ledger.Progression),
		accounts:     make(map[ledger.Key]ledger.Account),
		inventory:    make(map[ledger.Key][]ledger.InventoryEntry),
		log:          txlog.NewRing(logCap),
		shop:         make(map[string]ledger.ShopItem),
		rewards:      make(map[string]map[int]ledger.RoleReward),
	}
}

func (s *Store) Progression(_ context.Context, key ledger.Key) (ledger.Progression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.progressions[key]; ok {
		return p.Clone(), nil
	}
	return ledger.NewProgression(key), nil
}

func (s *Store) Account(_ context.Context, key ledger.Key) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.accounts[key]; ok {
		return a.Clone(), nil
	}
	return ledger.NewAccount(key), nil
}

func (s *Store) Atomic(ctx context.Context, keys []ledger.Key, fn func(ledger.Tx) error) error {
	keys = ledger.SortKeys(keys)
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}

	s.gate.RLock()
	defer s.gate.RUnlock()

	unlock, err := s.locks.Lock(ctx, names...)
	if err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTransient, err)
	}
	defer unlock()

	tx := &memTx{
		store:        s,
		declared:     make(map[ledger.Key]struct{}, len(keys)),
		progressions: make(map[ledger.Key]*ledger.Progression),
		accounts:     make(map[ledger.Key]*ledger.Account),
	}
	for _, k := range keys {
		tx.declared[k] = struct{}{}
	}

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ledger.ErrTransient, err)
	}
	return tx.commit()
}

type memTx struct {
	store        *Store
	declared     map[ledger.Key]struct{}
	progressions map[ledger.Key]*ledger.Progression
	accounts     map[ledger.Key]*ledger.Account
	inventory    []ledger.InventoryEntry
	txs          []ledger.Transaction
}

func (t *memTx) check(key ledger.Key) error {
	if _, ok := t.declared[key]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrUndeclaredKey, key)
	}
	return nil
}

func (t *memTx) Progression(key ledger.Key) (*ledger.Progression, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if p, ok := t.progressions[key]; ok {
		return p, nil
	}
	p, _ := t.store.Progression(context.Background(), key)
	t.progressions[key] = &p
	return &p, nil
}

func (t *memTx) Account(key ledger.Key) (*ledger.Account, error) {
	if err := t.check(key); err != nil {
		return nil, err
	}
	if a, ok := t.accounts[key]; ok {
		return a, nil
	}
	a, _ := t.store.Account(context.Background(), key)
	t.accounts[key] = &a
	return &a, nil
}

func (t *memTx) AddInventory(entry ledger.InventoryEntry) error {
	if err := t.check(ledger.Key{UserID: entry.UserID, GuildID: entry.GuildID}); err != nil {
		return err
	}
	t.inventory = append(t.inventory, entry)
	return nil
}

func (t *memTx) AppendTransaction(tr ledger.Transaction) error {
	if tr.Amount <= 0 {
		return fmt.Errorf("%w: transaction amount %d", ledger.ErrInvalidAmount, tr.Amount)
	}
	t.txs = append(t.txs, tr)
	return nil
}

func (t *memTx) commit() error {
	for _, p := range t.progressions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	for _, a := range t.accounts {
		if err := a.Validate(); err != nil {
			return err
		}
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, p := range t.progressions {
		p.Version++
		s.progressions[k] = p.Clone()
	}
	for k, a := range t.accounts {
		a.Version++
		s.accounts[k] = a.Clone()
	}
	for _, e := range t.inventory {
		k := ledger.Key{UserID: e.UserID, GuildID: e.GuildID}
		s.inventory[k] = append(s.inventory[k], e)
	}
	for _, tr := range t.txs {
		s.log.Append(tr)
	}
	return nil
}

func (s *Store) Transactions(_ context.Context, q ledger.TxQuery) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.log.Recent(q), nil
}

func (s *Store) Inventory(_ context.Context, key ledger.Key) ([]ledger.InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.InventoryEntry(nil), s.inventory[key]...), nil
}

func (s *Store) TopProgressions(_ context.Context, guildID string, offset, limit int) ([]ledger.Progression, error) {
	s.mu.RLock()
	out := make([]ledger.Progression, 0, len(s.progressions))
	for k, p := range s.progressions {
		if k.GuildID == guildID {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CumulativeXP != out[j].CumulativeXP {
			return out[i].CumulativeXP > out[j].CumulativeXP
		}
		return out[i].UserID < out[j].UserID
	})
	return page(out, offset, limit), nil
}

func (s *Store) TopAccounts(_ context.Context, guildID string, offset, limit int) ([]ledger.Account, error) {
	s.mu.RLock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for k, a := range s.accounts {
		if k.GuildID == guildID {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Total() != out[j].Total() {
			return out[i].Total() > out[j].Total()
		}
		return out[i].UserID < out[j].UserID
	})
	return page(out, offset, limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) ShopItems(_ context.Context) ([]ledger.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.ShopItem, 0, len(s.shop))
	for _, it := range s.shop {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ShopItem(_ context.Context, id string) (ledger.ShopItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.shop[id]
	if !ok {
		return ledger.ShopItem{}, fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	}
	return it, nil
}

func (s *Store) AddShopItem(_ context.Context, item ledger.ShopItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shop[item.ID]; ok {
		return fmt.Errorf("%w: %s", ledger.ErrItemExists, item.ID)
	}
	s.shop[item.ID] = item
	return nil
}

func (s *Store) RemoveShopItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shop[id]; !ok {
		return fmt.Errorf("%w: %s", ledger.ErrItemNotFound, id)
	}
	delete(s.shop, id)
	return nil
}

func (s *Store) RoleRewards(_ context.Context, guildID string) ([]ledger.RoleReward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.RoleReward, 0, len(s.rewards[guildID]))
	for _, r := range s.rewards[guildID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (s *Store) SetRoleReward(_ context.Context, reward ledger.RoleReward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rewards[reward.GuildID] == nil {
		s.rewards[reward.GuildID] = make(map[int]ledger.RoleReward)
	}
	s.rewards[reward.GuildID][reward.Level] = reward
	return nil
}

func (s *Store) RemoveRoleReward(_ context.Context, guildID string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rewards[guildID][level]; !ok {
		return fmt.Errorf("%w: no role reward for level %d", ledger.ErrItemNotFound, level)
	}
	delete(s.rewards[guildID], level)
	return nil
}

func (s *Store) Dump(_ context.Context) (*ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &ledger.Snapshot{Version: ledger.SnapshotVersion, CreatedAt: time.Now().UTC()}
	for _, p := range s.progressions {
		snap.Progressions = append(snap.Progressions, p.Clone())
	}
	for _, a := range s.accounts {
		snap.Accounts = append(snap.Accounts, a.Clone())
	}
	for _, inv := range s.inventory {
		snap.Inventory = append(snap.Inventory, inv...)
	}
	snap.Transactions = s.log.All()
	for _, it := range s.shop {
		snap.ShopItems = append(snap.ShopItems, it)
	}
	for _, byLevel := range s.rewards {
		for _, r := range byLevel {
			snap.RoleRewards = append(snap.RoleRewards, r)
		}
	}
	return snap, nil
}

// Restore replaces all state with snap once in-flight units of work have
// finished.
func (s *Store) Restore(_ context.Context, snap *ledger.Snapshot) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.progressions = make(map[ledger.Key]ledger.Progression, len(snap.Progressions))
	for _, p := range snap.Progressions {
		s.progressions[p.Key] = p.Clone()
	}
	s.accounts = make(map[ledger.Key]ledger.Account, len(snap.Accounts))
	for _, a := range snap.Accounts {
		s.accounts[a.Key] = a.Clone()
	}
	s.inventory = make(map[ledger.Key][]ledger.InventoryEntry)
	for _, e := range snap.Inventory {
		k := ledger.Key{UserID: e.UserID, GuildID: e.GuildID}
		s.inventory[k] = append(s.inventory[k], e)
	}
	s.log = txlog.NewRing(s.log.Cap())
	for _, tr := range snap.Transactions {
		s.log.Append(tr)
	}
	s.shop = make(map[string]ledger.ShopItem, len(snap.ShopItems))
	for _, it := range snap.ShopItems {
		s.shop[it.ID] = it
	}
	s.rewards = make(map[string]map[int]ledger.RoleReward)
	for _, r := range snap.RoleRewards {
		if s.rewards[r.GuildID] == nil {
			s.rewards[r.GuildID] = make(map[int]ledger.RoleReward)
		}
		s.rewards[r.GuildID][r.Level] = r
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
