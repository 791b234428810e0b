package economy

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRand int64

func (f fixedRand) Int64N(n int64) int64 {
	if int64(f) >= n {
		return n - 1
	}
	return int64(f)
}

var (
	alice = ledger.Key{UserID: "100", GuildID: "g1"}
	bob   = ledger.Key{UserID: "200", GuildID: "g1"}
	t0    = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T, opts ...Option) (*Service, ledger.Store) {
	t.Helper()
	store := memstore.New(100)
	shop := NewShop(store, nil)
	_, err := shop.SeedDefaults(context.Background())
	require.NoError(t, err)
	return NewService(store, shop, DefaultConfig(), opts...), store
}

func fund(t *testing.T, s *Service, key ledger.Key, amount int64) {
	t.Helper()
	_, err := s.Credit(context.Background(), key, amount, Unscaled, "seed", t0)
	require.NoError(t, err)
}

func TestService_ClaimDaily(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	first, err := s.ClaimDaily(ctx, alice, t0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, first.Reward, int64(500))
	assert.LessOrEqual(t, first.Reward, int64(999))
	assert.Equal(t, 1, first.Streak)
	assert.Equal(t, first.Reward, first.NewBalance)

	_, err = s.ClaimDaily(ctx, alice, t0.Add(time.Hour))
	require.ErrorIs(t, err, ledger.ErrCooldown)
	remaining, _ := ledger.RemainingCooldown(err)
	assert.Equal(t, 23*time.Hour, remaining)

	second, err := s.ClaimDaily(ctx, alice, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Streak)
	assert.Equal(t, first.Reward+second.Reward, second.NewBalance)
}

func TestService_ClaimDailyStreak(t *testing.T) {
	tests := []struct {
		name string
		gap  time.Duration
		want int
	}{
		{"NextDay", 24 * time.Hour, 2},
		{"AtResetWindow", 48 * time.Hour, 2},
		{"MissedWindow", 48*time.Hour + time.Minute, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestService(t, WithRand(fixedRand(0)))
			ctx := context.Background()

			_, err := s.ClaimDaily(ctx, alice, t0)
			require.NoError(t, err)
			got, err := s.ClaimDaily(ctx, alice, t0.Add(tt.gap))
			require.NoError(t, err)
			if got.Streak != tt.want {
				t.Errorf("ClaimDaily() streak got = %v, want %v", got.Streak, tt.want)
			}
		})
	}
}

func TestService_ClaimDailyIsUnscaled(t *testing.T) {
	s, _ := newTestService(t, WithRand(fixedRand(123)))
	ctx := context.Background()

	_, err := s.SetMultiplier(ctx, alice, decimal.NewFromInt(3), 48, t0)
	require.NoError(t, err)

	got, err := s.ClaimDaily(ctx, alice, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(623), got.Reward)
	assert.Equal(t, int64(623), got.NewBalance)
}

func TestService_TransferInsufficientFunds(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 50)

	_, err := s.Transfer(ctx, alice, bob, 100, t0)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var ife *ledger.InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, int64(50), ife.Have)
	assert.Equal(t, int64(100), ife.Need)

	a, _ := store.Account(ctx, alice)
	b, _ := store.Account(ctx, bob)
	assert.Equal(t, int64(50), a.Balance)
	assert.Zero(t, b.Balance)
}

func TestService_Transfer(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 300)

	res, err := s.Transfer(ctx, alice, bob, 120, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(180), res.From.Balance)
	assert.Equal(t, int64(120), res.To.Balance)

	out, err := store.Transactions(ctx, ledger.TxQuery{UserID: alice.UserID, GuildID: alice.GuildID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ledger.TxTransferOut, out[0].Kind)
	assert.Equal(t, "Transfer to 200", out[0].Reason)

	in, err := store.Transactions(ctx, ledger.TxQuery{UserID: bob.UserID, GuildID: bob.GuildID})
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, ledger.TxTransferIn, in[0].Kind)
	assert.Equal(t, "Transfer from 100", in[0].Reason)
}

func TestService_TransferRejectsBeforeMutation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Transfer(ctx, alice, alice, 10, t0)
	assert.ErrorIs(t, err, ledger.ErrSameUser)

	for _, amount := range []int64{0, -1} {
		_, err = s.Transfer(ctx, alice, bob, amount, t0)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
}

func TestService_TransferInvalidTarget(t *testing.T) {
	tests := []struct {
		name     string
		from, to ledger.Key
	}{
		{"NoTarget", alice, ledger.Key{GuildID: alice.GuildID}},
		{"NoSender", ledger.Key{GuildID: bob.GuildID}, bob},
		{"OtherGuild", alice, ledger.Key{UserID: bob.UserID, GuildID: "g2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, store := newTestService(t)
			ctx := context.Background()
			fund(t, s, alice, 100)
			fund(t, s, bob, 100)

			_, err := s.Transfer(ctx, tt.from, tt.to, 40, t0)
			require.ErrorIs(t, err, ledger.ErrInvalidTarget)

			for _, k := range []ledger.Key{alice, bob, tt.to} {
				a, err := store.Account(ctx, k)
				require.NoError(t, err)
				want := int64(0)
				if k == alice || k == bob {
					want = 100
				}
				if a.Balance != want {
					t.Errorf("Account(%v) balance got = %v, want %v", k, a.Balance, want)
				}
			}
		})
	}
}

func TestService_OverflowIsInvalidAmount(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, math.MaxInt64)

	_, err := s.Credit(ctx, alice, 1, Unscaled, "more", t0)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
	assert.NotErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = s.ClaimDaily(ctx, alice, t0)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	fund(t, s, bob, 10)
	_, err = s.Transfer(ctx, bob, alice, 10, t0)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = s.SetMultiplier(ctx, bob, decimal.NewFromInt(2), 1, t0)
	require.NoError(t, err)
	_, err = s.Credit(ctx, bob, math.MaxInt64/2+1, Scaled, "boost", t0)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	a, err := store.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), a.Balance)
	assert.Nil(t, a.LastDailyClaimAt)
	b, err := store.Account(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.Balance)
}

func TestService_OppositeTransfersConserveMoney(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 1000)
	fund(t, s, bob, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Transfer(ctx, alice, bob, 7, t0)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Transfer(ctx, bob, alice, 5, t0)
		}()
	}
	wg.Wait()

	a, _ := store.Account(ctx, alice)
	b, _ := store.Account(ctx, bob)
	assert.Equal(t, int64(2000), a.Balance+b.Balance)
	assert.GreaterOrEqual(t, a.Balance, int64(0))
	assert.GreaterOrEqual(t, b.Balance, int64(0))
}

func TestService_MultiplierWindow(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SetMultiplier(ctx, alice, decimal.NewFromInt(2), 1, t0)
	require.NoError(t, err)

	got, err := s.Credit(ctx, alice, 100, Scaled, "activity", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Credited)

	got, err = s.Credit(ctx, alice, 100, Scaled, "activity", t0.Add(61*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Credited)
	assert.True(t, got.Account.Multiplier.Equal(decimal.NewFromInt(1)))
	assert.Nil(t, got.Account.MultiplierExpiresAt)
	assert.Equal(t, int64(300), got.Account.Balance)
}

func TestService_CreditScaling(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SetMultiplier(ctx, alice, decimal.RequireFromString("1.5"), 1, t0)
	require.NoError(t, err)

	scaled, err := s.Credit(ctx, alice, 5, Scaled, "activity", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), scaled.Credited)

	flat, err := s.Credit(ctx, alice, 5, Unscaled, "admin", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), flat.Credited)
}

func TestService_SetMultiplierValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SetMultiplier(ctx, alice, decimal.Zero, 1, t0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	_, err = s.SetMultiplier(ctx, alice, decimal.NewFromInt(2), 0, t0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestService_BankRoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 400)

	dep, err := s.Deposit(ctx, alice, 150, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(250), dep.Balance)
	assert.Equal(t, int64(150), dep.Bank)

	wd, err := s.Withdraw(ctx, alice, 150, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(400), wd.Balance)
	assert.Zero(t, wd.Bank)
}

func TestService_BankInsufficientSide(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 10)

	_, err := s.Deposit(ctx, alice, 20, t0)
	var ife *ledger.InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, ledger.SideBalance, ife.Side)

	_, err = s.Withdraw(ctx, alice, 1, t0)
	require.True(t, errors.As(err, &ife))
	assert.Equal(t, ledger.SideBank, ife.Side)
}

func TestService_Debit(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 30)

	_, err := s.Debit(ctx, alice, 31, "fine", t0)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := s.Debit(ctx, alice, 30, "fine", t0)
	require.NoError(t, err)
	assert.Zero(t, got.Balance)
}

func TestService_Purchase(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	_, err := s.Purchase(ctx, alice, "nope", t0)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)

	_, err = s.Purchase(ctx, alice, "color_neon", t0)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	fund(t, s, alice, 20000)
	res, err := s.Purchase(ctx, alice, "multiplier_2x", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), res.Account.Balance)
	assert.True(t, res.Account.Multiplier.Equal(decimal.NewFromInt(2)))
	require.NotNil(t, res.Account.MultiplierExpiresAt)
	assert.Equal(t, t0.Add(168*time.Hour), *res.Account.MultiplierExpiresAt)

	inv, err := store.Inventory(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "multiplier_2x", inv[0].ItemID)

	summary, err := s.Summary(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), summary.TotalCredits)
	assert.Equal(t, int64(15000), summary.TotalDebits)
	assert.Equal(t, int64(5000), summary.Net())
}

func TestService_PurchaseSeesCatalogEditsFromOtherShops(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 50000)

	// Warm this service's cache, then drop the item through a second shop
	// over the same store, as ledgerctl does from its own process.
	_, err := s.Shop().Get(ctx, "badge_vip")
	require.NoError(t, err)
	require.NoError(t, NewShop(store, nil).Remove(ctx, "badge_vip"))

	_, err = s.Purchase(ctx, alice, "badge_vip", t0)
	require.ErrorIs(t, err, ledger.ErrItemNotFound)

	a, err := store.Account(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), a.Balance)
	inv, err := store.Inventory(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, inv)

	// A price change made elsewhere is charged as stored.
	other := NewShop(store, nil)
	_, err = s.Shop().Get(ctx, "color_neon")
	require.NoError(t, err)
	require.NoError(t, other.Remove(ctx, "color_neon"))
	require.NoError(t, other.Add(ctx, ledger.ShopItem{ID: "color_neon", Name: "Neon Color Role", Price: 7000, Type: ItemTypeColor, Category: "cosmetic"}))

	res, err := s.Purchase(ctx, alice, "color_neon", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(43000), res.Account.Balance)
}

func TestService_BalancePersistsExpiry(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()

	_, err := s.SetMultiplier(ctx, alice, decimal.NewFromInt(2), 1, t0)
	require.NoError(t, err)

	got, err := s.Balance(ctx, alice, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, got.Account.Multiplier.Equal(decimal.NewFromInt(1)))

	stored, err := store.Account(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, stored.MultiplierExpiresAt)
}

func TestService_Reset(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	fund(t, s, alice, 100)
	_, err := s.ClaimDaily(ctx, alice, t0)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx, alice))
	a, err := store.Account(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, a.Balance)
	assert.Zero(t, a.DailyStreak)
	assert.Nil(t, a.LastDailyClaimAt)
}
