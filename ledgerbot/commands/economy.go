package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
)

var Daily = discord.SlashCommandCreate{
	Name:        "daily",
	Description: "Claim your daily coin reward",
}

func DailyHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		ctx, cancel := commandContext()
		defer cancel()

		res := b.Engine.OnCommand(ctx, engine.Command{Kind: engine.CmdClaimDaily, UserID: key.UserID, GuildID: key.GuildID}, now())
		switch r := res.(type) {
		case engine.DailyClaimed:
			desc := fmt.Sprintf("You received **%s**.\nNew balance: **%s**\nStreak: **%d** day(s)",
				utils.FormatCoins(r.Reward), utils.FormatCoins(r.NewBalance), r.Streak)
			return utils.EH.CreateSuccessEmbed(e, "Daily Reward Claimed!", desc)
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	}
}

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "Show a wallet, bank and earnings summary",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose balance to show (defaults to you)",
			Required:    false,
		},
	},
}

func BalanceHandler(b *ledgerbot.Bot) handler.CommandHandler {
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

		res := b.Engine.OnCommand(ctx, engine.Command{Kind: engine.CmdCheckBalance, UserID: key.UserID, GuildID: key.GuildID}, now())
		switch r := res.(type) {
		case engine.BalanceChecked:
			return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{balanceEmbed(name, r)}})
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	}
}

func balanceEmbed(name string, r engine.BalanceChecked) discord.Embed {
	a := r.Account
	fields := []discord.EmbedField{
		{Name: "Wallet", Value: utils.FormatCoins(a.Balance), Inline: boolPtr(true)},
		{Name: "Bank", Value: utils.FormatCoins(a.Bank), Inline: boolPtr(true)},
		{Name: "Total", Value: utils.FormatCoins(a.Total()), Inline: boolPtr(true)},
		{Name: "Daily Streak", Value: fmt.Sprintf("%d day(s)", a.DailyStreak), Inline: boolPtr(true)},
	}
	if a.MultiplierExpiresAt != nil {
		fields = append(fields, discord.EmbedField{
			Name:   "Multiplier",
			Value:  fmt.Sprintf("%sx until <t:%d:R>", a.Multiplier.String(), a.MultiplierExpiresAt.Unix()),
			Inline: boolPtr(true),
		})
	}

	s := r.Summary
	fields = append(fields, discord.EmbedField{
		Name: "Recent Activity",
		Value: fmt.Sprintf("Earned %s\nSpent %s\nNet %s over %d transaction(s)",
			utils.FormatCoins(s.TotalCredits), utils.FormatCoins(s.TotalDebits), utils.FormatCoins(s.Net()), s.Count),
	})

	return discord.Embed{
		Title:  fmt.Sprintf("%s's Balance", name),
		Color:  config.GoldColor,
		Fields: fields,
	}
}

var Pay = discord.SlashCommandCreate{
	Name:        "pay",
	Description: "Send coins from your wallet to another member",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Who receives the coins",
			Required:    true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How many coins to send",
			Required:    true,
			MinValue:    intPtr(1),
		},
	},
}

func PayHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		data := e.SlashCommandInteractionData()
		target := data.User("user")
		if target.Bot {
			return utils.EH.CreateUserError(e, "Bots don't have wallets.")
		}

		ctx, cancel := commandContext()
		defer cancel()

		res := b.Engine.OnCommand(ctx, engine.Command{
			Kind:         engine.CmdTransfer,
			UserID:       key.UserID,
			GuildID:      key.GuildID,
			TargetUserID: target.ID.String(),
			Amount:       int64(data.Int("amount")),
		}, now())
		switch r := res.(type) {
		case engine.Transferred:
			desc := fmt.Sprintf("Sent **%s** to %s.\nYour balance: **%s**",
				utils.FormatCoins(r.Amount), target.Mention(), utils.FormatCoins(r.From.Balance))
			return utils.EH.CreateSuccessEmbed(e, "Transfer Complete", desc)
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	}
}

var Deposit = discord.SlashCommandCreate{
	Name:        "deposit",
	Description: "Move coins from your wallet into the bank",
	Options:     []discord.ApplicationCommandOption{amountOption("How many coins to deposit")},
}

var Withdraw = discord.SlashCommandCreate{
	Name:        "withdraw",
	Description: "Move coins from the bank into your wallet",
	Options:     []discord.ApplicationCommandOption{amountOption("How many coins to withdraw")},
}

func amountOption(desc string) discord.ApplicationCommandOptionInt {
	return discord.ApplicationCommandOptionInt{
		Name:        "amount",
		Description: desc,
		Required:    true,
		MinValue:    intPtr(1),
	}
}

func DepositHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return bankHandler(b, true)
}

func WithdrawHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return bankHandler(b, false)
}

func bankHandler(b *ledgerbot.Bot, deposit bool) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		amount := int64(e.SlashCommandInteractionData().Int("amount"))

		ctx, cancel := commandContext()
		defer cancel()

		var (
			acc  ledger.Account
			err  error
			verb string
		)
		if deposit {
			acc, err = b.Economy.Deposit(ctx, key, amount, now())
			verb = "Deposited"
		} else {
			acc, err = b.Economy.Withdraw(ctx, key, amount, now())
			verb = "Withdrew"
		}
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}

		desc := fmt.Sprintf("%s **%s**.\nWallet: **%s** | Bank: **%s**",
			verb, utils.FormatCoins(amount), utils.FormatCoins(acc.Balance), utils.FormatCoins(acc.Bank))
		return utils.EH.CreateSuccessEmbed(e, strings.TrimSuffix(verb, "ed")+" Complete", desc)
	}
}

func boolPtr(v bool) *bool {
	return &v
}
