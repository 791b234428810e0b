package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
)

// MemberRoles is the part of the disgo rest client used to grant roles.
type MemberRoles interface {
	AddMemberRole(guildID snowflake.ID, userID snowflake.ID, roleID snowflake.ID, opts ...rest.RequestOpt) error
}

// RoleAssigner grants level reward roles. It is created before the
// Discord client exists; triggers that arrive before Attach are dropped.
type RoleAssigner struct {
	mu       sync.RWMutex
	members  MemberRoles
	onResult func(error)
	log      *slog.Logger
	wg       sync.WaitGroup
}

var _ progression.RewardSink = (*RoleAssigner)(nil)

func NewRoleAssigner(onResult func(error), log *slog.Logger) *RoleAssigner {
	if log == nil {
		log = slog.Default()
	}
	return &RoleAssigner{onResult: onResult, log: log.With(slog.String("component", "roles"))}
}

func (r *RoleAssigner) Attach(m MemberRoles) {
	r.mu.Lock()
	r.members = m
	r.mu.Unlock()
}

// RewardTriggered assigns the role in the background.
func (r *RoleAssigner) RewardTriggered(_ context.Context, t progression.RewardTrigger) {
	r.mu.RLock()
	members := r.members
	r.mu.RUnlock()
	if members == nil {
		r.log.Warn("Role reward dropped, client not ready",
			slog.String("type", "sys"),
			slog.String("guild_id", t.GuildID),
			slog.String("user_id", t.UserID),
			slog.Int("level", t.Level),
		)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := r.assign(members, t)
		if r.onResult != nil {
			r.onResult(err)
		}
	}()
}

// Wait blocks until every started assignment has finished.
func (r *RoleAssigner) Wait() {
	r.wg.Wait()
}

func (r *RoleAssigner) assign(members MemberRoles, t progression.RewardTrigger) error {
	guildID, err := snowflake.Parse(t.GuildID)
	if err != nil {
		return r.fail(t, fmt.Errorf("invalid guild id: %w", err))
	}
	userID, err := snowflake.Parse(t.UserID)
	if err != nil {
		return r.fail(t, fmt.Errorf("invalid user id: %w", err))
	}
	roleID, err := snowflake.Parse(t.RoleID)
	if err != nil {
		return r.fail(t, fmt.Errorf("invalid role id: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.RoleAssignTimeout)
	defer cancel()
	if err := members.AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx)); err != nil {
		return r.fail(t, err)
	}

	r.log.Info("Role reward granted",
		slog.String("type", "sys"),
		slog.String("guild_id", t.GuildID),
		slog.String("user_id", t.UserID),
		slog.String("role_id", t.RoleID),
		slog.Int("level", t.Level),
	)
	return nil
}

func (r *RoleAssigner) fail(t progression.RewardTrigger, err error) error {
	r.log.Error("Failed to grant role reward",
		slog.String("type", "error"),
		slog.String("guild_id", t.GuildID),
		slog.String("user_id", t.UserID),
		slog.String("role_id", t.RoleID),
		slog.Int("level", t.Level),
		slog.Any("error", err),
	)
	return err
}
