package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/spf13/cobra"
)

var creditArgs struct {
	guild  string
	user   string
	amount int64
	reason string
}

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Credit coins to a user without applying their multiplier",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			reason := creditArgs.reason
			if reason == "" {
				reason = "Admin credit (ledgerctl)"
			}
			res := s.Engine.OnCommand(ctx, engine.Command{
				Kind:    engine.CmdAwardAdminCredit,
				UserID:  creditArgs.user,
				GuildID: creditArgs.guild,
				Amount:  creditArgs.amount,
				Reason:  reason,
			}, time.Now().UTC())

			switch r := res.(type) {
			case engine.Credited:
				printf(cmd.OutOrStdout(), "credited %d, balance %d\n", r.Credited, r.Account.Balance)
				return nil
			case engine.Failure:
				return r
			}
			return fmt.Errorf("unexpected result %T", res)
		})
	},
}

func init() {
	f := creditCmd.Flags()
	f.StringVar(&creditArgs.guild, "guild", "", "guild id")
	f.StringVar(&creditArgs.user, "user", "", "user id")
	f.Int64Var(&creditArgs.amount, "amount", 0, "coins to credit")
	f.StringVar(&creditArgs.reason, "reason", "", "reason shown in the transaction log")
	_ = creditCmd.MarkFlagRequired("guild")
	_ = creditCmd.MarkFlagRequired("user")
	_ = creditCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(creditCmd)
}
