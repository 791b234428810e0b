package progression

import (
	"context"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
)

type Config struct {
	Curve Curve
	// PerEventCap clamps a single grant; zero disables the cap.
	PerEventCap int64
	Cooldown    time.Duration
	// XPPerActivity is granted for each qualifying message.
	XPPerActivity int64
}

func DefaultConfig() Config {
	return Config{
		Curve:         DefaultCurve(),
		PerEventCap:   100,
		Cooldown:      5 * time.Second,
		XPPerActivity: 10,
	}
}

type AwardResult struct {
	Granted       int64
	OldLevel      int
	NewLevel      int
	CrossedLevels []int
	Progression   ledger.Progression
	Rewards       []RewardTrigger
}

func (r AwardResult) LeveledUp() bool {
	return len(r.CrossedLevels) > 0
}

// RewardTrigger is emitted once per crossed level that has a configured
// role reward. Acting on it is up to the consumer.
type RewardTrigger struct {
	UserID  string
	GuildID string
	Level   int
	RoleID  string
	At      time.Time
}

//go:generate mockgen -destination=mock/sink.go -package=mock . RewardSink

// RewardSink receives reward triggers after the grant that caused them has
// been committed. Implementations must not block for long and handle their
// own failures; the grant is never undone.
type RewardSink interface {
	RewardTriggered(ctx context.Context, trigger RewardTrigger)
}

type Stats struct {
	Progression        ledger.Progression
	XPProgress         int64
	XPToNextLevel      int64
	ProgressPercentage int
	NextLevelThreshold int64
}
