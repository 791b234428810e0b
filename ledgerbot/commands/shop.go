package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/utils"
)

var Shop = discord.SlashCommandCreate{
	Name:        "shop",
	Description: "Browse the items for sale",
}

func ShopHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		items, err := b.Shop.List(ctx)
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if len(items) == 0 {
			return utils.EH.CreateInfoEmbed(e, "The shop is empty right now.")
		}

		totalPages := pageCount(len(items), config.ShopPageSize)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := pageBounds(page, config.ShopPageSize, len(items))

				var description strings.Builder
				for _, item := range items[start:end] {
					description.WriteString(formatShopItem(item))
					description.WriteString("\n\n")
				}

				embed.
					SetTitle("🛒 Shop").
					SetDescription(description.String()).
					SetColor(config.GoldColor).
					SetFooter(fmt.Sprintf("Page %d/%d • Buy with /buy", page+1, totalPages), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func formatShopItem(item ledger.ShopItem) string {
	line := fmt.Sprintf("**%s** `%s` • %s\n%s", item.Name, item.ID, utils.FormatCoins(item.Price), item.Description)
	if item.Type == economy.ItemTypeMultiplier {
		line += fmt.Sprintf("\n*%sx coins for %dh*", item.Multiplier.String(), item.DurationHours)
	}
	return line
}

var Buy = discord.SlashCommandCreate{
	Name:        "buy",
	Description: "Buy an item from the shop",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "item",
			Description:  "Item name or id",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func BuyHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}
		query := e.SlashCommandInteractionData().String("item")

		ctx, cancel := commandContext()
		defer cancel()

		item, err := b.Shop.Resolve(ctx, query)
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}

		res := b.Engine.OnCommand(ctx, engine.Command{
			Kind:    engine.CmdPurchase,
			UserID:  key.UserID,
			GuildID: key.GuildID,
			ItemID:  item.ID,
		}, now())
		switch r := res.(type) {
		case engine.Purchased:
			desc := fmt.Sprintf("You bought **%s** for **%s**.\nRemaining balance: **%s**",
				r.Item.Name, utils.FormatCoins(r.Item.Price), utils.FormatCoins(r.Account.Balance))
			if r.Account.MultiplierExpiresAt != nil && r.Item.Type == economy.ItemTypeMultiplier {
				desc += fmt.Sprintf("\nMultiplier **%sx** active until <t:%d:f>",
					r.Account.Multiplier.String(), r.Account.MultiplierExpiresAt.Unix())
			}
			return utils.EH.CreateSuccessEmbed(e, "Purchase Complete", desc)
		case engine.Failure:
			return utils.EH.CreateFailure(e, r)
		}
		return fmt.Errorf("unexpected result %T", res)
	}
}

// ItemAutocomplete suggests shop items for the focused option.
func ItemAutocomplete(b *ledgerbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		var query string
		if err := json.Unmarshal(focused.Value, &query); err != nil {
			return e.AutocompleteResult(nil)
		}

		ctx, cancel := commandContext()
		defer cancel()

		items, err := b.Shop.Search(ctx, query)
		if err != nil {
			return e.AutocompleteResult(nil)
		}
		return e.AutocompleteResult(itemChoices(items))
	}
}

func itemChoices(items []ledger.ShopItem) []discord.AutocompleteChoice {
	choices := make([]discord.AutocompleteChoice, 0, min(len(items), config.AutocompleteChoices))
	for _, item := range items {
		if len(choices) == config.AutocompleteChoices {
			break
		}
		choices = append(choices, discord.AutocompleteChoiceString{
			Name:  fmt.Sprintf("%s (%s)", item.Name, utils.FormatNumber(item.Price)),
			Value: item.ID,
		})
	}
	return choices
}

var Inventory = discord.SlashCommandCreate{
	Name:        "inventory",
	Description: "List the items you own",
}

func InventoryHandler(b *ledgerbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		key, ok := callerKey(e)
		if !ok {
			return guildOnly(e)
		}

		ctx, cancel := commandContext()
		defer cancel()

		entries, err := b.Economy.Inventory(ctx, key)
		if err != nil {
			return utils.EH.CreateErrorFor(e, err)
		}
		if len(entries) == 0 {
			return utils.EH.CreateInfoEmbed(e, "Your inventory is empty. Take a look at /shop.")
		}

		names := make(map[string]string, len(entries))
		for _, entry := range entries {
			if _, seen := names[entry.ItemID]; seen {
				continue
			}
			names[entry.ItemID] = entry.ItemID
			if item, err := b.Shop.Get(ctx, entry.ItemID); err == nil {
				names[entry.ItemID] = item.Name
			}
		}

		totalPages := pageCount(len(entries), config.InventoryPageSize)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := pageBounds(page, config.InventoryPageSize, len(entries))

				var description strings.Builder
				for _, entry := range entries[start:end] {
					description.WriteString(fmt.Sprintf("• **%s** <t:%d:R>\n", names[entry.ItemID], entry.AcquiredAt.Unix()))
				}

				embed.
					SetTitle(fmt.Sprintf("🎒 %s's Inventory", e.User().Username)).
					SetDescription(description.String()).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d item(s)", page+1, totalPages, len(entries)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func pageCount(n, size int) int {
	return max(1, int(math.Ceil(float64(n)/float64(size))))
}

func pageBounds(page, size, n int) (int, int) {
	start := min(page*size, n)
	return start, min(start+size, n)
}
