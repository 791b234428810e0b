package commands

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/handlers"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
)

var Commands = []discord.ApplicationCommandCreate{
	Daily,
	Balance,
	Pay,
	Deposit,
	Withdraw,
	Shop,
	Buy,
	Inventory,
	Transactions,
	Rank,
	Leaderboard,
	Admin,
}

// Register routes every command to its handler.
func Register(h *handler.Mux, b *ledgerbot.Bot) {
	route := func(path, name string, ch handler.CommandHandler) {
		h.Command(path, handlers.WrapWithLogging(name, ch))
	}

	route("/daily", "daily", DailyHandler(b))
	route("/balance", "balance", BalanceHandler(b))
	route("/pay", "pay", PayHandler(b))
	route("/deposit", "deposit", DepositHandler(b))
	route("/withdraw", "withdraw", WithdrawHandler(b))
	route("/shop", "shop", ShopHandler(b))
	route("/buy", "buy", BuyHandler(b))
	route("/inventory", "inventory", InventoryHandler(b))
	route("/transactions", "transactions", TransactionsHandler(b))
	route("/rank", "rank", RankHandler(b))
	route("/leaderboard", "leaderboard", LeaderboardHandler(b))

	route("/admin/credit", "admin credit", AdminCreditHandler(b))
	route("/admin/multiplier", "admin multiplier", AdminMultiplierHandler(b))
	route("/admin/reset", "admin reset", AdminResetHandler(b))
	route("/admin/rolereward-set", "admin rolereward-set", AdminRoleRewardSetHandler(b))
	route("/admin/rolereward-remove", "admin rolereward-remove", AdminRoleRewardRemoveHandler(b))
	route("/admin/rolereward-list", "admin rolereward-list", AdminRoleRewardListHandler(b))
	route("/admin/shop-add", "admin shop-add", AdminShopAddHandler(b))
	route("/admin/shop-remove", "admin shop-remove", AdminShopRemoveHandler(b))
	route("/admin/backup", "admin backup", AdminBackupHandler(b))

	h.Autocomplete("/buy", handlers.WrapAutocompleteWithLogging("buy", ItemAutocomplete(b)))
	h.Autocomplete("/admin/shop-remove", handlers.WrapAutocompleteWithLogging("admin shop-remove", ItemAutocomplete(b)))
}

// callerKey is the ledger key of the invoking member. Commands outside a
// guild have none.
func callerKey(e *handler.CommandEvent) (ledger.Key, bool) {
	guildID := e.GuildID()
	if guildID == nil {
		return ledger.Key{}, false
	}
	return ledger.Key{UserID: e.User().ID.String(), GuildID: guildID.String()}, true
}

func guildOnly(e *handler.CommandEvent) error {
	return utils.EH.CreateUserError(e, "This command only works inside a server.")
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
}

func backupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.BackupTimeout)
}

func intPtr(v int) *int {
	return &v
}

func now() time.Time {
	return time.Now().UTC()
}
