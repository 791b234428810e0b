package progression_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression/mock"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	user = ledger.Key{UserID: "100", GuildID: "g1"}
	t0   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newService(t *testing.T, mutate func(*progression.Config), opts ...progression.Option) (*progression.Service, ledger.Store) {
	t.Helper()
	cfg := progression.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	store := memstore.New(100)
	return progression.NewService(store, cfg, opts...), store
}

func TestAwardXP_LargeGrantWithoutCap(t *testing.T) {
	svc, _ := newService(t, func(c *progression.Config) { c.PerEventCap = 0 })

	res, err := svc.AwardXP(context.Background(), user, 1200, t0)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), res.Granted)
	assert.Equal(t, 1, res.OldLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, []int{2}, res.CrossedLevels)
	// 1914 is where level 3 starts.
	assert.Less(t, res.Progression.CumulativeXP, svc.Curve().Threshold(3))
	require.Len(t, res.Progression.LevelUpHistory, 1)
	assert.Equal(t, ledger.LevelUpEvent{Level: 2, Timestamp: t0, XPAtEvent: 1200}, res.Progression.LevelUpHistory[0])
}

func TestAwardXP_Clamp(t *testing.T) {
	svc, _ := newService(t, nil)

	res, err := svc.AwardXP(context.Background(), user, 5000, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Granted)
	assert.Equal(t, int64(100), res.Progression.CumulativeXP)
	assert.False(t, res.LeveledUp())
}

func TestAwardXP_InvalidAmount(t *testing.T) {
	svc, store := newService(t, nil)

	for _, amount := range []int64{0, -5} {
		_, err := svc.AwardXP(context.Background(), user, amount, t0)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	}
	p, err := store.Progression(context.Background(), user)
	require.NoError(t, err)
	assert.Nil(t, p.LastXPGrantAt)
}

func TestAwardXP_Cooldown(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()

	_, err := svc.AwardXP(ctx, user, 50, t0)
	require.NoError(t, err)
	before, err := store.Progression(ctx, user)
	require.NoError(t, err)

	_, err = svc.AwardXP(ctx, user, 50, t0.Add(time.Second))
	require.ErrorIs(t, err, ledger.ErrCooldown)
	remaining, ok := ledger.RemainingCooldown(err)
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, remaining)

	after, err := store.Progression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	res, err := svc.AwardXP(ctx, user, 50, t0.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Progression.CumulativeXP)
}

func TestAwardXP_MultiLevelCrossing(t *testing.T) {
	svc, _ := newService(t, func(c *progression.Config) { c.PerEventCap = 0 })

	res, err := svc.AwardXP(context.Background(), user, 5000, t0)
	require.NoError(t, err)

	assert.Equal(t, 4, res.NewLevel)
	assert.Equal(t, []int{2, 3, 4}, res.CrossedLevels)
	require.Len(t, res.Progression.LevelUpHistory, 3)
	for i, ev := range res.Progression.LevelUpHistory {
		assert.Equal(t, i+2, ev.Level)
		assert.Equal(t, int64(5000), ev.XPAtEvent)
	}
}

func TestAwardXP_ConcurrentGrantsBothApply(t *testing.T) {
	svc, store := newService(t, func(c *progression.Config) { c.Cooldown = 0 })
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, amount := range []int64{10, 20} {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			_, err := svc.AwardXP(ctx, user, amount, t0)
			assert.NoError(t, err)
		}(amount)
	}
	wg.Wait()

	p, err := store.Progression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(30), p.CumulativeXP)
}

func TestAwardXP_RewardTriggers(t *testing.T) {
	sink := mock.NewMockRewardSink(gomock.NewController(t))
	svc, _ := newService(t,
		func(c *progression.Config) { c.PerEventCap = 0 },
		progression.WithRewardSink(sink),
	)
	ctx := context.Background()

	require.NoError(t, svc.SetRoleReward(ctx, user.GuildID, 2, "role-2"))
	require.NoError(t, svc.SetRoleReward(ctx, user.GuildID, 4, "role-4"))
	require.NoError(t, svc.SetRoleReward(ctx, user.GuildID, 10, "role-10"))

	gomock.InOrder(
		sink.EXPECT().RewardTriggered(gomock.Any(), progression.RewardTrigger{
			UserID: user.UserID, GuildID: user.GuildID, Level: 2, RoleID: "role-2", At: t0,
		}),
		sink.EXPECT().RewardTriggered(gomock.Any(), progression.RewardTrigger{
			UserID: user.UserID, GuildID: user.GuildID, Level: 4, RoleID: "role-4", At: t0,
		}),
	)

	res, err := svc.AwardXP(ctx, user, 5000, t0)
	require.NoError(t, err)
	assert.Len(t, res.Rewards, 2)

	// No new level crossed, so no further calls are expected.
	_, err = svc.AwardXP(ctx, user, 10, t0.Add(time.Minute))
	require.NoError(t, err)
}

func TestAwardActivity(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	res, err := svc.AwardActivity(ctx, user, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Granted)
	assert.Equal(t, int64(1), res.Progression.MessageCount)

	_, err = svc.AwardActivity(ctx, user, t0.Add(time.Second))
	assert.True(t, errors.Is(err, ledger.ErrCooldown))
}

func TestStats(t *testing.T) {
	svc, _ := newService(t, func(c *progression.Config) { c.PerEventCap = 0 })
	ctx := context.Background()

	_, err := svc.AwardXP(ctx, user, 1200, t0)
	require.NoError(t, err)

	st, err := svc.Stats(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(700), st.XPProgress)
	assert.Equal(t, int64(714), st.XPToNextLevel)
	assert.Equal(t, 49, st.ProgressPercentage)
	assert.Equal(t, int64(1914), st.NextLevelThreshold)
}

func TestReset(t *testing.T) {
	svc, store := newService(t, func(c *progression.Config) { c.PerEventCap = 0 })
	ctx := context.Background()

	_, err := svc.AwardXP(ctx, user, 5000, t0)
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx, user))

	p, err := store.Progression(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.Zero(t, p.CumulativeXP)
	assert.Empty(t, p.LevelUpHistory)
	assert.Nil(t, p.LastXPGrantAt)
}

func TestSetRoleReward_RejectsLevelOne(t *testing.T) {
	svc, _ := newService(t, nil)
	err := svc.SetRoleReward(context.Background(), "g1", 1, "r")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestLeaderboard(t *testing.T) {
	svc, _ := newService(t, func(c *progression.Config) { c.PerEventCap = 0 })
	ctx := context.Background()

	for i, xp := range []int64{300, 900, 600} {
		key := ledger.Key{UserID: string(rune('a' + i)), GuildID: "g1"}
		_, err := svc.AwardXP(ctx, key, xp, t0)
		require.NoError(t, err)
	}

	top, err := svc.Leaderboard(ctx, "g1", 0, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].UserID)
	assert.Equal(t, "c", top[1].UserID)
}
