package cmd

import (
	"context"
	"time"

	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of the store to every configured backup sink",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			name, snap, err := s.Backup.Export(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\t%d progressions\t%d accounts\t%d transactions\n",
				name, len(snap.Progressions), len(snap.Accounts), len(snap.Transactions))
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import SNAPSHOT",
	Short: "Replace the store contents with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd, func(ctx context.Context, _ *ledgerbot.Config, s *ledgerbot.Services) error {
			snap, err := s.Backup.Import(ctx, args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "imported %s (%d progressions, %d accounts)\n",
				args[0], len(snap.Progressions), len(snap.Accounts))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
