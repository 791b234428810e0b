package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
)

var Transactions = discord.SlashCommandCreate{
	Name:        "transactions",
	Description: "Show your recent coin transactions",
}

func TransactionsHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}

		ctx, cancel := commandContext()
		defer cancel()

		txs, err := b.Economy.Transactions(ctx, key, config.TransactionsFetch)
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if len(txs) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No transactions yet.")
		}

		totalPages := pageCount(len(txs), config.TransactionsPageSize)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := pageBounds(page, config.TransactionsPageSize, len(txs))

				var description strings.Builder
				for _, t := range txs[start:end] {
					description.WriteString(formatTransaction(t))
					description.WriteByte('\n')
				}

				embed.
					SetTitle("📜 Transaction History").
					SetDescription(description.String()).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d • newest first", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func formatTransaction(t ledger.Transaction) string {
	sign := "-"
	if t.Kind.Inbound() {
		sign = "+"
	}
	line := fmt.Sprintf("`%s%s` %s <t:%d:R>", sign, utils.FormatNumber(t.Amount), txLabel(t.Kind), t.Timestamp.Unix())
	if t.Reason != "" {
		line += " • " + t.Reason
	}
	return line
}

func txLabel(k ledger.TxKind) string {
	switch k {
	case ledger.TxCredit:
		return "Credit"
	case ledger.TxDebit:
		return "Debit"
	case ledger.TxTransferIn:
		return "Received"
	case ledger.TxTransferOut:
		return "Sent"
	case ledger.TxPurchase:
		return "Purchase"
	case ledger.TxDaily:
		return "Daily"
	}
	return string(k)
}
