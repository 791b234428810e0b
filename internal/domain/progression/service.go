package progression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
)

type Service struct {
	store   ledger.Store
	cfg     Config
	retrier *ledger.Retrier
	sink    RewardSink
	log     *slog.Logger
}

type Option func(*Service)

func WithRewardSink(sink RewardSink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithRetrier(r *ledger.Retrier) Option {
	return func(s *Service) { s.retrier = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(store ledger.Store, cfg Config, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cfg:     cfg,
		retrier: ledger.NewRetrier(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Curve() Curve {
	return s.cfg.Curve
}

// AwardXP grants amount (clamped to the per-event cap) if the per-key
// cooldown has elapsed. A rejected grant changes nothing.
func (s *Service) AwardXP(ctx context.Context, key ledger.Key, amount int64, now time.Time) (AwardResult, error) {
	return s.award(ctx, key, amount, now, false)
}

// AwardActivity grants the configured per-message XP and counts the message.
func (s *Service) AwardActivity(ctx context.Context, key ledger.Key, now time.Time) (AwardResult, error) {
	return s.award(ctx, key, s.cfg.XPPerActivity, now, true)
}

func (s *Service) award(ctx context.Context, key ledger.Key, amount int64, now time.Time, countMessage bool) (AwardResult, error) {
	if amount <= 0 {
		return AwardResult{}, fmt.Errorf("%w: xp %d", ledger.ErrInvalidAmount, amount)
	}

	granted := amount
	if s.cfg.PerEventCap > 0 && granted > s.cfg.PerEventCap {
		granted = s.cfg.PerEventCap
	}

	var res AwardResult
	err := s.retrier.Do(ctx, func() error {
		res = AwardResult{Granted: granted}
		p, err := ledger.UpdateProgression(ctx, s.store, key, func(p *ledger.Progression) error {
			if p.LastXPGrantAt != nil {
				if elapsed := now.Sub(*p.LastXPGrantAt); elapsed < s.cfg.Cooldown {
					return &ledger.CooldownError{Remaining: s.cfg.Cooldown - elapsed}
				}
			}

			res.OldLevel = p.Level
			p.CumulativeXP += granted
			p.Level = s.cfg.Curve.LevelFor(p.CumulativeXP).Level
			for l := res.OldLevel + 1; l <= p.Level; l++ {
				res.CrossedLevels = append(res.CrossedLevels, l)
				p.LevelUpHistory = append(p.LevelUpHistory, ledger.LevelUpEvent{
					Level:     l,
					Timestamp: now,
					XPAtEvent: p.CumulativeXP,
				})
			}
			res.NewLevel = p.Level

			t := now
			p.LastXPGrantAt = &t
			if countMessage {
				p.MessageCount++
			}
			return nil
		})
		res.Progression = p
		return err
	})
	if err != nil {
		return AwardResult{}, err
	}

	if res.LeveledUp() {
		s.log.Info("User leveled up",
			slog.String("type", "sys"),
			slog.String("user_id", key.UserID),
			slog.String("guild_id", key.GuildID),
			slog.Int("old_level", res.OldLevel),
			slog.Int("new_level", res.NewLevel),
		)
		res.Rewards = s.triggerRewards(ctx, key, res.CrossedLevels, now)
	}
	return res, nil
}

// triggerRewards runs after commit. A failed lookup only costs the
// rewards; the XP stays granted.
func (s *Service) triggerRewards(ctx context.Context, key ledger.Key, crossed []int, now time.Time) []RewardTrigger {
	rewards, err := s.store.RoleRewards(ctx, key.GuildID)
	if err != nil {
		s.log.Error("Failed to load role rewards",
			slog.String("type", "error"),
			slog.String("guild_id", key.GuildID),
			slog.Any("error", err),
		)
		return nil
	}
	if len(rewards) == 0 {
		return nil
	}

	byLevel := make(map[int]string, len(rewards))
	for _, r := range rewards {
		byLevel[r.Level] = r.RoleID
	}

	var out []RewardTrigger
	for _, l := range crossed {
		roleID, ok := byLevel[l]
		if !ok {
			continue
		}
		trig := RewardTrigger{UserID: key.UserID, GuildID: key.GuildID, Level: l, RoleID: roleID, At: now}
		out = append(out, trig)
		if s.sink != nil {
			s.sink.RewardTriggered(ctx, trig)
		}
	}
	return out
}

func (s *Service) Stats(ctx context.Context, key ledger.Key) (Stats, error) {
	p, err := s.store.Progression(ctx, key)
	if err != nil {
		return Stats{}, err
	}
	info := s.cfg.Curve.LevelFor(p.CumulativeXP)
	return Stats{
		Progression:        p,
		XPProgress:         info.IntoLevel,
		XPToNextLevel:      info.ToNext(),
		ProgressPercentage: info.Percent(),
		NextLevelThreshold: info.FloorXP + info.Span,
	}, nil
}

func (s *Service) Leaderboard(ctx context.Context, guildID string, offset, limit int) ([]ledger.Progression, error) {
	return s.store.TopProgressions(ctx, guildID, offset, limit)
}

// Reset returns a user's progression to the zero state.
func (s *Service) Reset(ctx context.Context, key ledger.Key) error {
	return s.retrier.Do(ctx, func() error {
		_, err := ledger.UpdateProgression(ctx, s.store, key, func(p *ledger.Progression) error {
			version := p.Version
			*p = ledger.NewProgression(key)
			p.Version = version
			return nil
		})
		return err
	})
}

func (s *Service) SetRoleReward(ctx context.Context, guildID string, level int, roleID string) error {
	if level < 2 {
		return fmt.Errorf("%w: role rewards start at level 2", ledger.ErrInvalidAmount)
	}
	return s.store.SetRoleReward(ctx, ledger.RoleReward{GuildID: guildID, Level: level, RoleID: roleID})
}

func (s *Service) RemoveRoleReward(ctx context.Context, guildID string, level int) error {
	return s.store.RemoveRoleReward(ctx, guildID, level)
}

func (s *Service) RoleRewards(ctx context.Context, guildID string) ([]ledger.RoleReward, error) {
	return s.store.RoleRewards(ctx, guildID)
}
