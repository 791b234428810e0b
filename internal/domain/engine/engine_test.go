package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) Observe(kind string, _ Result, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	store := memstore.New(100)
	shop := economy.NewShop(store, nil)
	_, err := shop.SeedDefaults(context.Background())
	require.NoError(t, err)

	prog := progression.NewService(store, progression.DefaultConfig())
	econ := economy.NewService(store, shop, economy.DefaultConfig())
	return New(prog, econ, DefaultConfig(), opts...)
}

func TestEngine_OnActivity(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		activity Activity
		at       time.Time
		check    func(t *testing.T, res Result)
	}{
		{
			name:     "Bot",
			activity: Activity{UserID: "1", GuildID: "g", Content: "hello there", Bot: true},
			at:       t0,
			check: func(t *testing.T, res Result) {
				assert.IsType(t, Skipped{}, res)
			},
		},
		{
			name:     "DirectMessage",
			activity: Activity{UserID: "1", Content: "hello there"},
			at:       t0,
			check: func(t *testing.T, res Result) {
				assert.IsType(t, Skipped{}, res)
			},
		},
		{
			name:     "TooShort",
			activity: Activity{UserID: "1", GuildID: "g", Content: " hi "},
			at:       t0,
			check: func(t *testing.T, res Result) {
				assert.Equal(t, Skipped{Reason: "message too short"}, res)
			},
		},
		{
			name:     "Granted",
			activity: Activity{UserID: "1", GuildID: "g", Content: "hello there"},
			at:       t0,
			check: func(t *testing.T, res Result) {
				p, ok := res.(Progressed)
				require.True(t, ok, "got %T", res)
				assert.Equal(t, int64(10), p.Award.Granted)
				assert.Equal(t, int64(5), p.Coins)
			},
		},
		{
			name:     "Cooldown",
			activity: Activity{UserID: "1", GuildID: "g", Content: "hello again"},
			at:       t0.Add(2 * time.Second),
			check: func(t *testing.T, res Result) {
				f, ok := res.(Failure)
				require.True(t, ok, "got %T", res)
				assert.Equal(t, FailCooldown, f.Kind)
				assert.Equal(t, 3*time.Second, f.RetryAfter)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, e.OnActivity(ctx, tt.activity, tt.at))
		})
	}
}

func TestEngine_OnCommand(t *testing.T) {
	obs := &recorder{}
	e := newEngine(t, WithObserver(obs))
	ctx := context.Background()

	res := e.OnCommand(ctx, Command{Kind: CmdAwardAdminCredit, UserID: "admin", TargetUserID: "a", GuildID: "g", Amount: 20000}, t0)
	credited, ok := res.(Credited)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, int64(20000), credited.Credited)
	assert.Equal(t, "a", credited.Account.UserID)

	res = e.OnCommand(ctx, Command{Kind: CmdTransfer, UserID: "a", GuildID: "g", TargetUserID: "b", Amount: 500}, t0)
	tr, ok := res.(Transferred)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, int64(19500), tr.From.Balance)
	assert.Equal(t, int64(500), tr.To.Balance)

	res = e.OnCommand(ctx, Command{Kind: CmdPurchase, UserID: "a", GuildID: "g", ItemID: "badge_vip"}, t0)
	bought, ok := res.(Purchased)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, "badge_vip", bought.Item.ID)

	res = e.OnCommand(ctx, Command{Kind: CmdSetMultiplier, UserID: "a", GuildID: "g", Multiplier: decimal.NewFromInt(3), DurationHours: 2}, t0)
	ms, ok := res.(MultiplierSet)
	require.True(t, ok, "got %T", res)
	assert.True(t, ms.Account.Multiplier.Equal(decimal.NewFromInt(3)))

	res = e.OnCommand(ctx, Command{Kind: CmdClaimDaily, UserID: "a", GuildID: "g"}, t0)
	daily, ok := res.(DailyClaimed)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, 1, daily.Streak)

	res = e.OnCommand(ctx, Command{Kind: CmdCheckBalance, UserID: "a", GuildID: "g"}, t0)
	bal, ok := res.(BalanceChecked)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, int64(19500-5000)+daily.Reward, bal.Account.Balance)

	assert.Equal(t, []string{
		string(CmdAwardAdminCredit), string(CmdTransfer), string(CmdPurchase),
		string(CmdSetMultiplier), string(CmdClaimDaily), string(CmdCheckBalance),
	}, obs.kinds)
}

func TestEngine_OnCommandFailures(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  Command
		want FailureKind
	}{
		{"TransferBroke", Command{Kind: CmdTransfer, UserID: "a", GuildID: "g", TargetUserID: "b", Amount: 100}, FailInsufficientFunds},
		{"TransferSelf", Command{Kind: CmdTransfer, UserID: "a", GuildID: "g", TargetUserID: "a", Amount: 1}, FailSameUser},
		{"TransferZero", Command{Kind: CmdTransfer, UserID: "a", GuildID: "g", TargetUserID: "b"}, FailInvalidAmount},
		{"TransferNoTarget", Command{Kind: CmdTransfer, UserID: "a", GuildID: "g", Amount: 40}, FailInvalidTarget},
		{"UnknownItem", Command{Kind: CmdPurchase, UserID: "a", GuildID: "g", ItemID: "nope"}, FailItemNotFound},
		{"BadMultiplier", Command{Kind: CmdSetMultiplier, UserID: "a", GuildID: "g", Multiplier: decimal.NewFromInt(-1), DurationHours: 1}, FailInvalidAmount},
		{"Unknown", Command{Kind: "rob_bank", UserID: "a", GuildID: "g"}, FailUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.OnCommand(ctx, tt.cmd, t0)
			f, ok := res.(Failure)
			if !ok {
				t.Fatalf("OnCommand() got = %T, want Failure", res)
			}
			if f.Kind != tt.want {
				t.Errorf("OnCommand() kind got = %v, want %v", f.Kind, tt.want)
			}
		})
	}
}

func TestFail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"Cooldown", &ledger.CooldownError{Remaining: time.Minute}, FailCooldown},
		{"Funds", &ledger.InsufficientFundsError{Side: ledger.SideBank}, FailInsufficientFunds},
		{"Storage", ledger.NewStorageError("select", "account", errors.New("connection reset")), FailStorageUnavailable},
		{"Target", fmt.Errorf("%w: missing user", ledger.ErrInvalidTarget), FailInvalidTarget},
		{"Transient", fmt.Errorf("%w: gave up", ledger.ErrTransient), FailTransient},
		{"Conflict", ledger.ErrInvariantViolation, FailTransient},
		{"Other", errors.New("boom"), FailInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fail(tt.err).Kind; got != tt.want {
				t.Errorf("Fail() got = %v, want %v", got, tt.want)
			}
		})
	}

	f := Fail(&ledger.CooldownError{Remaining: time.Minute})
	assert.Equal(t, time.Minute, f.RetryAfter)
	assert.True(t, f.Kind.UserFacing())
	assert.False(t, FailStorageUnavailable.UserFacing())
}
