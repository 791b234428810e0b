package economy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/shopspring/decimal"
)

type Service struct {
	store   ledger.Store
	shop    *Shop
	cfg     Config
	rand    Rand
	retrier *ledger.Retrier
	log     *slog.Logger
}

type Option func(*Service)

func WithRand(r Rand) Option {
	return func(s *Service) { s.rand = r }
}

func WithRetrier(r *ledger.Retrier) Option {
	return func(s *Service) { s.retrier = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store ledger.Store, shop *Shop, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		shop:    shop,
		cfg:     cfg,
		rand:    globalRand{},
		retrier: ledger.NewRetrier(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Shop() *Shop {
	return s.shop
}

// Credit adds amount to the balance. Scaled credits are multiplied by the
// account's live multiplier and floored.
func (s *Service) Credit(ctx context.Context, key ledger.Key, amount int64, scaling Scaling, reason string, now time.Time) (CreditResult, error) {
	if amount <= 0 {
		return CreditResult{}, fmt.Errorf("%w: credit %d", ledger.ErrInvalidAmount, amount)
	}

	var res CreditResult
	err := s.atomic(ctx, []ledger.Key{key}, now, func(tx ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		a := accs[key]
		credited := amount
		if scaling == Scaled {
			scaled := decimal.NewFromInt(amount).Mul(a.Multiplier).Floor()
			if scaled.GreaterThan(maxCoins) {
				return fmt.Errorf("%w: scaled credit %s out of range", ledger.ErrInvalidAmount, scaled)
			}
			credited = scaled.IntPart()
		}
		balance, err := addCoins(a.Balance, credited)
		if err != nil {
			return err
		}
		a.Balance = balance
		res = CreditResult{Credited: credited, Multiplier: a.Multiplier, Account: a.Clone()}
		if credited == 0 {
			return nil
		}
		return tx.AppendTransaction(txlog.New(key, ledger.TxCredit, credited, reason, now))
	})
	if err != nil {
		return CreditResult{}, err
	}
	return res, nil
}

// Debit removes amount from the balance. Nothing is taken unless the whole
// amount is available.
func (s *Service) Debit(ctx context.Context, key ledger.Key, amount int64, reason string, now time.Time) (ledger.Account, error) {
	if amount <= 0 {
		return ledger.Account{}, fmt.Errorf("%w: debit %d", ledger.ErrInvalidAmount, amount)
	}

	var out ledger.Account
	err := s.atomic(ctx, []ledger.Key{key}, now, func(tx ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		a := accs[key]
		if a.Balance < amount {
			return &ledger.InsufficientFundsError{Side: ledger.SideBalance, Have: a.Balance, Need: amount}
		}
		a.Balance -= amount
		out = a.Clone()
		return tx.AppendTransaction(txlog.New(key, ledger.TxDebit, amount, reason, now))
	})
	return out, err
}

// Transfer moves amount between two users of the same guild. Both sides
// change together or not at all.
func (s *Service) Transfer(ctx context.Context, from, to ledger.Key, amount int64, now time.Time) (TransferResult, error) {
	if from.UserID == "" || to.UserID == "" {
		return TransferResult{}, fmt.Errorf("%w: missing user", ledger.ErrInvalidTarget)
	}
	if from.GuildID != to.GuildID {
		return TransferResult{}, fmt.Errorf("%w: guild %q to guild %q", ledger.ErrInvalidTarget, from.GuildID, to.GuildID)
	}
	if from == to {
		return TransferResult{}, ledger.ErrSameUser
	}
	if amount <= 0 {
		return TransferResult{}, fmt.Errorf("%w: transfer %d", ledger.ErrInvalidAmount, amount)
	}

	var res TransferResult
	err := s.atomic(ctx, []ledger.Key{from, to}, now, func(tx ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		src, dst := accs[from], accs[to]
		if src.Balance < amount {
			return &ledger.InsufficientFundsError{Side: ledger.SideBalance, Have: src.Balance, Need: amount}
		}
		credited, err := addCoins(dst.Balance, amount)
		if err != nil {
			return err
		}
		src.Balance -= amount
		dst.Balance = credited

		if err := tx.AppendTransaction(txlog.New(from, ledger.TxTransferOut, amount, "Transfer to "+to.UserID, now)); err != nil {
			return err
		}
		if err := tx.AppendTransaction(txlog.New(to, ledger.TxTransferIn, amount, "Transfer from "+from.UserID, now)); err != nil {
			return err
		}
		res = TransferResult{From: src.Clone(), To: dst.Clone()}
		return nil
	})
	if err == nil {
		s.log.Info("Transfer completed",
			slog.String("type", "sys"),
			slog.String("guild_id", from.GuildID),
			slog.String("from", from.UserID),
			slog.String("to", to.UserID),
			slog.Int64("amount", amount),
		)
	}
	return res, err
}

func (s *Service) Deposit(ctx context.Context, key ledger.Key, amount int64, now time.Time) (ledger.Account, error) {
	return s.moveBank(ctx, key, amount, now, true)
}

func (s *Service) Withdraw(ctx context.Context, key ledger.Key, amount int64, now time.Time) (ledger.Account, error) {
	return s.moveBank(ctx, key, amount, now, false)
}

func (s *Service) moveBank(ctx context.Context, key ledger.Key, amount int64, now time.Time, deposit bool) (ledger.Account, error) {
	if amount <= 0 {
		return ledger.Account{}, fmt.Errorf("%w: %d", ledger.ErrInvalidAmount, amount)
	}

	var out ledger.Account
	err := s.atomic(ctx, []ledger.Key{key}, now, func(_ ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		a := accs[key]
		if deposit {
			if a.Balance < amount {
				return &ledger.InsufficientFundsError{Side: ledger.SideBalance, Have: a.Balance, Need: amount}
			}
			bank, err := addCoins(a.Bank, amount)
			if err != nil {
				return err
			}
			a.Balance -= amount
			a.Bank = bank
		} else {
			if a.Bank < amount {
				return &ledger.InsufficientFundsError{Side: ledger.SideBank, Have: a.Bank, Need: amount}
			}
			balance, err := addCoins(a.Balance, amount)
			if err != nil {
				return err
			}
			a.Bank -= amount
			a.Balance = balance
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

// Purchase buys one unit of itemID. Items of type multiplier also start
// their multiplier window.
func (s *Service) Purchase(ctx context.Context, key ledger.Key, itemID string, now time.Time) (PurchaseResult, error) {
	// Read from the catalog itself, outside the unit of work so a
	// single-connection store is never asked for a second connection
	// mid-transaction.
	item, err := s.shop.Lookup(ctx, itemID)
	if err != nil {
		return PurchaseResult{}, err
	}

	var res PurchaseResult
	err = s.atomic(ctx, []ledger.Key{key}, now, func(tx ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		a := accs[key]
		if a.Balance < item.Price {
			return &ledger.InsufficientFundsError{Side: ledger.SideBalance, Have: a.Balance, Need: item.Price}
		}
		a.Balance -= item.Price

		if item.Type == ItemTypeMultiplier && item.Multiplier.IsPositive() && item.DurationHours > 0 {
			expires := now.Add(time.Duration(item.DurationHours) * time.Hour)
			a.Multiplier = item.Multiplier
			a.MultiplierExpiresAt = &expires
		}

		entry := ledger.InventoryEntry{
			ID:         uuid.NewString(),
			UserID:     key.UserID,
			GuildID:    key.GuildID,
			ItemID:     item.ID,
			AcquiredAt: now,
		}
		if err := tx.AddInventory(entry); err != nil {
			return err
		}
		res = PurchaseResult{Item: item, Entry: entry, Account: a.Clone()}
		return tx.AppendTransaction(txlog.New(key, ledger.TxPurchase, item.Price, "Purchased "+item.Name, now))
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	return res, nil
}

// SetMultiplier replaces the account multiplier until now+hours.
func (s *Service) SetMultiplier(ctx context.Context, key ledger.Key, multiplier decimal.Decimal, hours int, now time.Time) (ledger.Account, error) {
	if !multiplier.IsPositive() {
		return ledger.Account{}, fmt.Errorf("%w: multiplier %s", ledger.ErrInvalidAmount, multiplier)
	}
	if hours <= 0 {
		return ledger.Account{}, fmt.Errorf("%w: duration %dh", ledger.ErrInvalidAmount, hours)
	}

	var out ledger.Account
	err := s.retrier.Do(ctx, func() error {
		var err error
		out, err = ledger.UpdateAccount(ctx, s.store, key, now, func(a *ledger.Account) error {
			expires := now.Add(time.Duration(hours) * time.Hour)
			a.Multiplier = multiplier
			a.MultiplierExpiresAt = &expires
			return nil
		})
		return err
	})
	return out, err
}

// ClaimDaily pays the daily reward once per cooldown window. The reward is
// never scaled by the multiplier.
func (s *Service) ClaimDaily(ctx context.Context, key ledger.Key, now time.Time) (DailyResult, error) {
	var res DailyResult
	err := s.atomic(ctx, []ledger.Key{key}, now, func(tx ledger.Tx, accs map[ledger.Key]*ledger.Account) error {
		a := accs[key]
		if a.LastDailyClaimAt != nil {
			if elapsed := now.Sub(*a.LastDailyClaimAt); elapsed < s.cfg.DailyCooldown {
				return &ledger.CooldownError{Remaining: s.cfg.DailyCooldown - elapsed}
			}
		}

		reward := s.cfg.DailyBaseReward
		if s.cfg.DailyBonusRange > 0 {
			reward += s.rand.Int64N(s.cfg.DailyBonusRange)
		}

		if a.LastDailyClaimAt == nil || now.Sub(*a.LastDailyClaimAt) > s.cfg.StreakResetWindow {
			a.DailyStreak = 1
		} else {
			a.DailyStreak++
		}

		balance, err := addCoins(a.Balance, reward)
		if err != nil {
			return err
		}
		a.Balance = balance
		claimed := now
		a.LastDailyClaimAt = &claimed

		res = DailyResult{Reward: reward, NewBalance: a.Balance, Streak: a.DailyStreak}
		return tx.AppendTransaction(txlog.New(key, ledger.TxDaily, reward, "Daily reward", now))
	})
	if err != nil {
		return DailyResult{}, err
	}
	return res, nil
}

// Balance returns the account as of now, with an elapsed multiplier
// reset and persisted, plus a summary of the retained log.
func (s *Service) Balance(ctx context.Context, key ledger.Key, now time.Time) (Balance, error) {
	a, err := s.store.Account(ctx, key)
	if err != nil {
		return Balance{}, err
	}
	if a.ExpireMultiplier(now) {
		err = s.retrier.Do(ctx, func() error {
			a, err = ledger.UpdateAccount(ctx, s.store, key, now, func(*ledger.Account) error { return nil })
			return err
		})
		if err != nil {
			return Balance{}, err
		}
	}

	summary, err := s.Summary(ctx, key)
	if err != nil {
		return Balance{}, err
	}
	return Balance{Account: a, Summary: summary}, nil
}

func (s *Service) Summary(ctx context.Context, key ledger.Key) (txlog.Summary, error) {
	txs, err := s.store.Transactions(ctx, ledger.TxQuery{UserID: key.UserID, GuildID: key.GuildID})
	if err != nil {
		return txlog.Summary{}, err
	}
	return txlog.Summarize(txs), nil
}

func (s *Service) Transactions(ctx context.Context, key ledger.Key, limit int) ([]ledger.Transaction, error) {
	return s.store.Transactions(ctx, ledger.TxQuery{UserID: key.UserID, GuildID: key.GuildID, Limit: limit})
}

func (s *Service) Inventory(ctx context.Context, key ledger.Key) ([]ledger.InventoryEntry, error) {
	return s.store.Inventory(ctx, key)
}

func (s *Service) Leaderboard(ctx context.Context, guildID string, offset, limit int) ([]ledger.Account, error) {
	return s.store.TopAccounts(ctx, guildID, offset, limit)
}

// Reset returns an account to its zero state. Logged transactions and
// inventory are kept.
func (s *Service) Reset(ctx context.Context, key ledger.Key) error {
	return s.retrier.Do(ctx, func() error {
		return s.store.Atomic(ctx, []ledger.Key{key}, func(tx ledger.Tx) error {
			a, err := tx.Account(key)
			if err != nil {
				return err
			}
			version := a.Version
			*a = ledger.NewAccount(key)
			a.Version = version
			return nil
		})
	})
}

// atomic loads every key's account with expiry applied and runs fn inside
// one retried unit of work.
func (s *Service) atomic(ctx context.Context, keys []ledger.Key, now time.Time, fn func(ledger.Tx, map[ledger.Key]*ledger.Account) error) error {
	return s.retrier.Do(ctx, func() error {
		return s.store.Atomic(ctx, keys, func(tx ledger.Tx) error {
			accs := make(map[ledger.Key]*ledger.Account, len(keys))
			for _, k := range keys {
				a, err := tx.Account(k)
				if err != nil {
					return err
				}
				a.ExpireMultiplier(now)
				accs[k] = a
			}
			return fn(tx, accs)
		})
	})
}

var maxCoins = decimal.NewFromInt(math.MaxInt64)

// addCoins returns have+add, refusing sums past the int64 range.
func addCoins(have, add int64) (int64, error) {
	if add > math.MaxInt64-have {
		return have, fmt.Errorf("%w: %d + %d is out of range", ledger.ErrInvalidAmount, have, add)
	}
	return have + add, nil
}
