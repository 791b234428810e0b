package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"golang.org/x/sync/semaphore"
)

// Announcer posts level-up messages. The disgo rest client satisfies it.
type Announcer interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ActivityHandler turns guild messages into activity grants. At most
// `workers` messages are processed at the same time.
type ActivityHandler struct {
	engine *engine.Engine
	sem    *semaphore.Weighted
	now    func() time.Time
	log    *slog.Logger
}

func NewActivityHandler(e *engine.Engine, workers int64, log *slog.Logger) *ActivityHandler {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &ActivityHandler{
		engine: e,
		sem:    semaphore.NewWeighted(workers),
		now:    time.Now,
		log:    log.With(slog.String("component", "activity")),
	}
}

// MessageHandler is the gateway listener for message events.
func MessageHandler(h *ActivityHandler) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		a := ActivityFromMessage(e.Message, e.GuildID)
		if ok, _ := h.engine.Qualifies(a); !ok {
			return
		}
		channelID := e.ChannelID
		client := e.Client().Rest()
		go func() {
			res := h.Handle(context.Background(), a)
			if p, ok := res.(engine.Progressed); ok && p.Award.LeveledUp() {
				h.announce(client, channelID, a.UserID, p)
			}
		}()
	})
}

func ActivityFromMessage(m discord.Message, guildID *snowflake.ID) engine.Activity {
	a := engine.Activity{
		UserID:  m.Author.ID.String(),
		Content: m.Content,
		Bot:     m.Author.Bot || m.Author.System,
	}
	if guildID != nil {
		a.GuildID = guildID.String()
	}
	return a
}

// Handle runs one activity once a worker slot is free.
func (h *ActivityHandler) Handle(ctx context.Context, a engine.Activity) engine.Result {
	ctx, cancel := context.WithTimeout(ctx, config.ActivityTimeout)
	defer cancel()

	if err := h.sem.Acquire(ctx, 1); err != nil {
		h.log.Warn("Dropped activity, all workers busy",
			slog.String("type", "sys"),
			slog.String("user_id", a.UserID),
			slog.String("guild_id", a.GuildID),
		)
		return engine.Fail(err)
	}
	defer h.sem.Release(1)

	res := h.engine.OnActivity(ctx, a, h.now())
	if p, ok := res.(engine.Progressed); ok && p.Award.LeveledUp() {
		h.log.Info("Activity leveled up user",
			slog.String("user_id", a.UserID),
			slog.String("guild_id", a.GuildID),
			slog.Int("level", p.Award.NewLevel),
		)
	}
	return res
}

func (h *ActivityHandler) announce(a Announcer, channelID snowflake.ID, userID string, p engine.Progressed) {
	msg := fmt.Sprintf("🎉 <@%s> reached level **%d**!", userID, p.Award.NewLevel)
	if len(p.Award.Rewards) > 0 {
		msg += " New role unlocked."
	}
	_, err := a.CreateMessage(channelID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: msg,
			Color:       config.GoldColor,
		}},
		AllowedMentions: &discord.AllowedMentions{},
	})
	if err != nil {
		h.log.Error("Failed to announce level up",
			slog.String("type", "error"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}
