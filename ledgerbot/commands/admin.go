package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
	"github.com/shopspring/decimal"
)

var Admin = discord.SlashCommandCreate{
	Name:        "admin",
	Description: "Server administration for levels and coins",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "credit",
			Description: "Give coins to a member",
			Options: []discord.ApplicationCommandOption{
				targetOption(),
				discord.ApplicationCommandOptionInt{
					Name:        "amount",
					Description: "Coins to give",
					Required:    true,
					MinValue:    intPtr(1),
				},
				discord.ApplicationCommandOptionString{
					Name:        "reason",
					Description: "Shown in the member's transaction history",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "multiplier",
			Description: "Set a temporary coin multiplier on a member",
			Options: []discord.ApplicationCommandOption{
				targetOption(),
				discord.ApplicationCommandOptionFloat{
					Name:        "value",
					Description: "Multiplier, for example 1.5",
					Required:    true,
					MinValue:    floatPtr(0.1),
					MaxValue:    floatPtr(config.MaxMultiplier),
				},
				discord.ApplicationCommandOptionInt{
					Name:        "hours",
					Description: "How long it lasts",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(config.MaxMultiplierHours),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "reset",
			Description: "Wipe a member's level and coins",
			Options:     []discord.ApplicationCommandOption{targetOption()},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "rolereward-set",
			Description: "Grant a role when members reach a level",
			Options: []discord.ApplicationCommandOption{
				levelOption(),
				discord.ApplicationCommandOptionRole{
					Name:        "role",
					Description: "Role to grant",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "rolereward-remove",
			Description: "Stop granting a role for a level",
			Options:     []discord.ApplicationCommandOption{levelOption()},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "rolereward-list",
			Description: "List the configured level roles",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "shop-add",
			Description: "Add an item to the shop",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{Name: "id", Description: "Unique item id", Required: true},
				discord.ApplicationCommandOptionString{Name: "name", Description: "Display name", Required: true},
				discord.ApplicationCommandOptionInt{Name: "price", Description: "Price in coins", Required: true, MinValue: intPtr(1)},
				discord.ApplicationCommandOptionString{Name: "description", Description: "What the item does", Required: false},
				discord.ApplicationCommandOptionString{Name: "category", Description: "Shop category", Required: false},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "shop-remove",
			Description: "Remove an item from the shop",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "item",
					Description:  "Item to remove",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "backup",
			Description: "Write a snapshot of all data to the backup sinks",
		},
	},
}

func targetOption() discord.ApplicationCommandOptionUser {
	return discord.ApplicationCommandOptionUser{
		Name:        "user",
		Description: "Member to act on",
		Required:    true,
	}
}

func levelOption() discord.ApplicationCommandOptionInt {
	return discord.ApplicationCommandOptionInt{
		Name:        "level",
		Description: "Level that triggers the role",
		Required:    true,
		MinValue:    intPtr(config.MinRoleRewardLevel),
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// requireAdmin wraps h so only members with Manage Server may run it.
func requireAdmin(h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		member := e.Member()
		if member == nil || !member.Permissions.Has(discord.PermissionManageGuild) {
			return utils.EH.CreatePermissionError(e, "use admin commands")
		}
		return h(e)
	}
}

func AdminCreditHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		data := e.SlashCommandInteractionData()
		target := data.User("user")

		ctx, cancel := commandContext()
		defer cancel()

		res := b.Engine.OnCommand(ctx, engine.Command{
			Kind:         engine.CmdAwardAdminCredit,
			UserID:       key.UserID,
			GuildID:      key.GuildID,
			TargetUserID: target.ID.String(),
			Amount:       int64(data.Int("amount")),
			Reason:       data.String("reason"),
		}, now())
		switch r := res.(type) {
		case engine.Credited:
			desc := fmt.Sprintf("Gave **%s** to %s.\nTheir balance: **%s**",
				utils.FormatCoins(r.Credited), target.Mention(), utils.FormatCoins(r.Account.Balance))
			return utils.EH.CreateSuccessEmbed(e, "Coins Credited", desc)
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	})
}

func AdminMultiplierHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		data := e.SlashCommandInteractionData()
		target := data.User("user")

		ctx, cancel := commandContext()
		defer cancel()

		res := b.Engine.OnCommand(ctx, engine.Command{
			Kind:          engine.CmdSetMultiplier,
			UserID:        key.UserID,
			GuildID:       key.GuildID,
			TargetUserID:  target.ID.String(),
			Multiplier:    decimal.NewFromFloat(data.Float("value")).Round(2),
			DurationHours: data.Int("hours"),
		}, now())
		switch r := res.(type) {
		case engine.MultiplierSet:
			desc := fmt.Sprintf("%s now earns **%sx** coins", target.Mention(), r.Account.Multiplier.String())
			if r.Account.MultiplierExpiresAt != nil {
				desc += fmt.Sprintf(" until <t:%d:f>", r.Account.MultiplierExpiresAt.Unix())
			}
			return utils.EH.CreateSuccessEmbed(e, "Multiplier Set", desc+".")
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	})
}

func AdminResetHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		target := e.SlashCommandInteractionData().User("user")
		key.UserID = target.ID.String()

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Progression.Reset(ctx, key); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if err := b.Economy.Reset(ctx, key); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Member Reset", fmt.Sprintf("Level and coins of %s were reset.", target.Mention()))
	})
}

func AdminRoleRewardSetHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return guildOnly(e)
		}
		data := e.SlashCommandInteractionData()
		level := data.Int("level")
		role := data.Role("role")

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Progression.SetRoleReward(ctx, guildID.String(), level, role.ID.String()); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Role Reward Set",
			fmt.Sprintf("Members reaching level **%d** get <@&%s>.", level, role.ID))
	})
}

func AdminRoleRewardRemoveHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return guildOnly(e)
		}
		level := e.SlashCommandInteractionData().Int("level")

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Progression.RemoveRoleReward(ctx, guildID.String(), level); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Role Reward Removed", fmt.Sprintf("Level **%d** no longer grants a role.", level))
	})
}

func AdminRoleRewardListHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return guildOnly(e)
		}

		ctx, cancel := commandContext()
		defer cancel()

		rewards, err := b.Progression.RoleRewards(ctx, guildID.String())
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if len(rewards) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No level roles configured.")
		}
		return utils.EH.CreateInfoEmbed(e, formatRoleRewards(rewards))
	})
}

func formatRoleRewards(rewards []ledger.RoleReward) string {
	sorted := append([]ledger.RoleReward(nil), rewards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	var sb strings.Builder
	for _, r := range sorted {
		sb.WriteString(fmt.Sprintf("Level **%d** → <@&%s>\n", r.Level, r.RoleID))
	}
	return sb.String()
}

func AdminShopAddHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		item := ledger.ShopItem{
			ID:          strings.ToLower(strings.TrimSpace(data.String("id"))),
			Name:        data.String("name"),
			Description: data.String("description"),
			Price:       int64(data.Int("price")),
			Category:    data.String("category"),
			Type:        economy.ItemTypeBadge,
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Shop.Add(ctx, item); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Item Added", formatShopItem(item))
	})
}

func AdminShopRemoveHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		item, err := b.Shop.Resolve(ctx, e.SlashCommandInteractionData().String("item"))
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if err := b.Shop.Remove(ctx, item.ID); err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Item Removed", fmt.Sprintf("**%s** is no longer for sale.", item.Name))
	})
}

func AdminBackupHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return requireAdmin(func(e *handler.CommandEvent) error {
		if b.Backup == nil {
			return utils.EH.CreateSystemError(e, "Backups are not configured.")
		}
		if err := e.DeferCreateMessage(true); err != nil {
			return err
		}

		ctx, cancel := backupContext()
		defer cancel()

		name, snap, err := b.Backup.Export(ctx, now())
		if err != nil {
			_, uerr := e.UpdateInteractionResponse(discord.NewMessageUpdateBuilder().
				SetEmbeds(discord.NewEmbedBuilder().
					SetTitle("Backup Failed").
					SetDescription(err.Error()).
					SetColor(config.ErrorColor).
					Build()).
				Build())
			return uerr
		}

		desc := fmt.Sprintf("Wrote `%s`\n%d progression(s), %d account(s), %d transaction(s)",
			name, len(snap.Progressions), len(snap.Accounts), len(snap.Transactions))
		_, err = e.UpdateInteractionResponse(discord.NewMessageUpdateBuilder().
			SetEmbeds(discord.NewEmbedBuilder().
				SetTitle("Backup Complete").
				SetDescription(desc).
				SetColor(config.SuccessColor).
				Build()).
			Build())
		return err
	})
}
