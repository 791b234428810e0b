package cmd

import (
	"context"
	"strings"
	"text/tabwriter"

	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var shopCmd = &cobra.Command{
	Use:   "shop",
	Short: "Manage shop items",
}

var shopListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every item for sale",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			items, err := s.Shop.List(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printf(w, "ID\tNAME\tPRICE\tTYPE\n")
			for _, it := range items {
				printf(w, "%s\t%s\t%d\t%s\n", it.ID, it.Name, it.Price, it.Type)
			}
			return w.Flush()
		})
	},
}

var shopItem struct {
	name        string
	description string
	price       int64
	category    string
	kind        string
	multiplier  string
	hours       int
}

var shopAddCmd = &cobra.Command{
	Use:   "add ID",
	Short: "Add an item to the shop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		item := ledger.ShopItem{
			ID:            strings.ToLower(strings.TrimSpace(args[0])),
			Name:          shopItem.name,
			Description:   shopItem.description,
			Price:         shopItem.price,
			Category:      shopItem.category,
			Type:          shopItem.kind,
			DurationHours: shopItem.hours,
		}
		if item.Name == "" {
			item.Name = item.ID
		}
		if shopItem.multiplier != "" {
			m, err := decimal.NewFromString(shopItem.multiplier)
			if err != nil {
				return err
			}
			item.Multiplier = m
		}

		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			if err := s.Shop.Add(ctx, item); err != nil {
				return err
			}
			logger.LogSystem("Shop item added", "item_id", item.ID)
			printf(cmd.OutOrStdout(), "added %s\n", item.ID)
			return nil
		})
	},
}

var shopRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove an item from the shop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			if err := s.Shop.Remove(ctx, args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		})
	},
}

func init() {
	f := shopAddCmd.Flags()
	f.StringVar(&shopItem.name, "name", "", "display name")
	f.StringVar(&shopItem.description, "description", "", "item description")
	f.Int64Var(&shopItem.price, "price", 0, "price in coins")
	f.StringVar(&shopItem.category, "category", "", "shop category")
	f.StringVar(&shopItem.kind, "type", economy.ItemTypeBadge, "item type (badge, role, color, loot, multiplier)")
	f.StringVar(&shopItem.multiplier, "multiplier", "", "coin multiplier for multiplier items")
	f.IntVar(&shopItem.hours, "hours", 0, "multiplier duration in hours")
	_ = shopAddCmd.MarkFlagRequired("price")

	shopCmd.AddCommand(shopListCmd, shopAddCmd, shopRemoveCmd)
	rootCmd.AddCommand(shopCmd)
}
