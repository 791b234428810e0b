package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/shopspring/decimal"
)

type CommandKind string

const (
	CmdClaimDaily       CommandKind = "claim_daily"
	CmdCheckBalance     CommandKind = "check_balance"
	CmdTransfer         CommandKind = "transfer"
	CmdPurchase         CommandKind = "purchase"
	CmdSetMultiplier    CommandKind = "set_multiplier"
	CmdAwardAdminCredit CommandKind = "award_admin_credit"

	// kindActivity labels activity outcomes for observers.
	kindActivity = "activity"
)

// Command carries the parameters of one requested action. Only the fields
// its Kind needs are read.
type Command struct {
	Kind          CommandKind
	UserID        string
	GuildID       string
	TargetUserID  string
	Amount        int64
	ItemID        string
	Multiplier    decimal.Decimal
	DurationHours int
	Reason        string
}

func (c Command) Key() ledger.Key {
	return ledger.Key{UserID: c.UserID, GuildID: c.GuildID}
}

type Activity struct {
	UserID  string
	GuildID string
	Content string
	Bot     bool
}

type Config struct {
	MinMessageLength int
	ActivityCoins    int64
}

func DefaultConfig() Config {
	return Config{MinMessageLength: 3, ActivityCoins: 5}
}

// Observer is told about every handled activity and command.
type Observer interface {
	Observe(kind string, res Result, took time.Duration)
}

type Engine struct {
	progression *progression.Service
	economy     *economy.Service
	cfg         Config
	observer    Observer
	log         *slog.Logger
}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(prog *progression.Service, econ *economy.Service, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		progression: prog,
		economy:     econ,
		cfg:         cfg,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Progression() *progression.Service {
	return e.progression
}

func (e *Engine) Economy() *economy.Service {
	return e.economy
}

// Qualifies reports whether a message earns activity rewards.
func (e *Engine) Qualifies(a Activity) (bool, string) {
	switch {
	case a.Bot:
		return false, "bot author"
	case a.GuildID == "":
		return false, "not in a guild"
	case utf8.RuneCountInString(strings.TrimSpace(a.Content)) < e.cfg.MinMessageLength:
		return false, "message too short"
	}
	return true, ""
}

// OnActivity grants activity XP and, when XP was granted, the scaled
// activity coins. A failed coin credit is logged and does not undo the XP.
func (e *Engine) OnActivity(ctx context.Context, a Activity, now time.Time) Result {
	start := time.Now()
	res := e.onActivity(ctx, a, now)
	e.observe(kindActivity, res, start)
	return res
}

func (e *Engine) onActivity(ctx context.Context, a Activity, now time.Time) Result {
	if ok, reason := e.Qualifies(a); !ok {
		return Skipped{Reason: reason}
	}

	key := ledger.Key{UserID: a.UserID, GuildID: a.GuildID}
	award, err := e.progression.AwardActivity(ctx, key, now)
	if err != nil {
		return Fail(err)
	}

	out := Progressed{Award: award}
	if e.cfg.ActivityCoins > 0 {
		credit, err := e.economy.Credit(ctx, key, e.cfg.ActivityCoins, economy.Scaled, "Message activity", now)
		if err != nil {
			e.log.Error("Failed to credit activity coins",
				slog.String("type", "error"),
				slog.String("user_id", key.UserID),
				slog.String("guild_id", key.GuildID),
				slog.Any("error", err),
			)
		} else {
			out.Coins = credit.Credited
		}
	}
	return out
}

func (e *Engine) OnCommand(ctx context.Context, cmd Command, now time.Time) Result {
	start := time.Now()
	res := e.onCommand(ctx, cmd, now)
	e.observe(string(cmd.Kind), res, start)

	if f, ok := res.(Failure); ok && !f.Kind.UserFacing() {
		e.log.Error("Command failed",
			slog.String("type", "error"),
			slog.String("command", string(cmd.Kind)),
			slog.String("user_id", cmd.UserID),
			slog.String("guild_id", cmd.GuildID),
			slog.String("kind", string(f.Kind)),
			slog.Any("error", f.Err),
		)
	}
	return res
}

func (e *Engine) onCommand(ctx context.Context, cmd Command, now time.Time) Result {
	key := cmd.Key()

	switch cmd.Kind {
	case CmdClaimDaily:
		res, err := e.economy.ClaimDaily(ctx, key, now)
		if err != nil {
			return Fail(err)
		}
		return DailyClaimed{res}

	case CmdCheckBalance:
		res, err := e.economy.Balance(ctx, key, now)
		if err != nil {
			return Fail(err)
		}
		return BalanceChecked{res}

	case CmdTransfer:
		to := ledger.Key{UserID: cmd.TargetUserID, GuildID: cmd.GuildID}
		res, err := e.economy.Transfer(ctx, key, to, cmd.Amount, now)
		if err != nil {
			return Fail(err)
		}
		return Transferred{Amount: cmd.Amount, TransferResult: res}

	case CmdPurchase:
		res, err := e.economy.Purchase(ctx, key, cmd.ItemID, now)
		if err != nil {
			return Fail(err)
		}
		return Purchased{res}

	case CmdSetMultiplier:
		acc, err := e.economy.SetMultiplier(ctx, e.targetKey(cmd), cmd.Multiplier, cmd.DurationHours, now)
		if err != nil {
			return Fail(err)
		}
		return MultiplierSet{Account: acc}

	case CmdAwardAdminCredit:
		reason := cmd.Reason
		if reason == "" {
			reason = "Admin credit"
		}
		res, err := e.economy.Credit(ctx, e.targetKey(cmd), cmd.Amount, economy.Unscaled, reason, now)
		if err != nil {
			return Fail(err)
		}
		return Credited{res}
	}

	return Failure{Kind: FailUnknownCommand, Err: fmt.Errorf("unknown command %q", cmd.Kind)}
}

// targetKey is the account an admin command acts on: the target user if
// one was given, otherwise the caller.
func (e *Engine) targetKey(cmd Command) ledger.Key {
	if cmd.TargetUserID != "" {
		return ledger.Key{UserID: cmd.TargetUserID, GuildID: cmd.GuildID}
	}
	return cmd.Key()
}

func (e *Engine) observe(kind string, res Result, start time.Time) {
	if e.observer != nil {
		e.observer.Observe(kind, res, time.Since(start))
	}
}
