package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
)

var Rank = discord.SlashCommandCreate{
	Name:        "rank",
	Description: "Show level and XP progress",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose rank to show (defaults to you)",
			Required:    false,
		},
	},
}

func RankHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		name := e.User().Username
		if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
			key.UserID = u.ID.String()
			name = u.Username
		}

		ctx, cancel := commandContext()
		defer cancel()

		stats, err := b.Progression.Stats(ctx, key)
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}

		p := stats.Progression
		desc := fmt.Sprintf("**Level %d**\n%s %d%%\n%s / %s XP into this level\n%s XP to level %d",
			p.Level,
			progressBar(stats.ProgressPercentage),
			stats.ProgressPercentage,
			utils.FormatNumber(stats.XPProgress),
			utils.FormatNumber(stats.XPProgress+stats.XPToNextLevel),
			utils.FormatNumber(stats.XPToNextLevel),
			p.Level+1,
		)

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       fmt.Sprintf("%s's Rank", name),
				Description: desc,
				Color:       config.InfoColor,
				Fields: []discord.EmbedField{
					{Name: "Total XP", Value: utils.FormatNumber(p.CumulativeXP), Inline: boolPtr(true)},
					{Name: "Messages", Value: utils.FormatNumber(p.MessageCount), Inline: boolPtr(true)},
				},
			}},
		})
	}
}

// progressBar renders percent as ten blocks.
func progressBar(percent int) string {
	filled := min(max(percent/10, 0), 10)
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

const (
	boardXP    = "xp"
	boardCoins = "coins"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "Show the top members of this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "type",
			Description: "Rank by XP or by coins",
			Required:    false,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "XP", Value: boardXP},
				{Name: "Coins", Value: boardCoins},
			},
		},
	},
}

type boardRow struct {
	userID string
	value  string
}

func LeaderboardHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return guildOnly(e)
		}
		kind, ok := e.SlashCommandInteractionData().OptString("type")
		if !ok {
			kind = boardXP
		}

		ctx, cancel := commandContext()
		defer cancel()

		limit := config.LeaderboardPageSize * config.LeaderboardMaxPages
		var rows []boardRow
		switch kind {
		case boardCoins:
			accounts, err := b.Economy.Leaderboard(ctx, guildID.String(), 0, limit)
			if err != nil {
				return utils.EH.CreateErrorFor(e, err)
			}
			for _, a := range accounts {
				rows = append(rows, boardRow{userID: a.UserID, value: utils.FormatCoins(a.Total())})
			}
		default:
			progs, err := b.Progression.Leaderboard(ctx, guildID.String(), 0, limit)
			if err != nil {
				return utils.EH.CreateErrorFor(e, err)
			}
			for _, p := range progs {
				rows = append(rows, boardRow{
					userID: p.UserID,
					value:  fmt.Sprintf("Level %d • %s XP", p.Level, utils.FormatNumber(p.CumulativeXP)),
				})
			}
		}
		if len(rows) == 0 {
			return utils.EH.CreateInfoEmbed(e, "Nobody is on the leaderboard yet.")
		}

		title := "🏆 XP Leaderboard"
		if kind == boardCoins {
			title = "🏆 Richest Members"
		}

		totalPages := pageCount(len(rows), config.LeaderboardPageSize)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := pageBounds(page, config.LeaderboardPageSize, len(rows))

				var description strings.Builder
				for i, row := range rows[start:end] {
					description.WriteString(fmt.Sprintf("%s <@%s> • %s\n", rankLabel(start+i+1), row.userID, row.value))
				}

				embed.
					SetTitle(title).
					SetDescription(description.String()).
					SetColor(config.GoldColor).
					SetFooter(fmt.Sprintf("Page %d/%d", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func rankLabel(pos int) string {
	switch pos {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("`#%d`", pos)
}
