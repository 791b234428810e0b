package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/database"
	"github.com/ledgerbot/ledgerbot/ledgerbot/logger"
	"github.com/spf13/cobra"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every record in the store",
	Long: `Delete all progressions, accounts, transactions, inventory, shop items
and role rewards. SQL databases are truncated directly, other backends are
restored from an empty snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return errors.New("refusing to reset without --yes")
		}

		return withServices(cmd, func(ctx context.Context, cfg *ledgerbot.Config, s *ledgerbot.Services) error {
			if cfg.Store.Backend == ledgerbot.StoreSQL {
				db, err := database.New(ctx, cfg.DB)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.ResetAppTables(ctx); err != nil {
					return err
				}
			} else {
				empty := &ledger.Snapshot{Version: ledger.SnapshotVersion, CreatedAt: time.Now().UTC()}
				if err := s.Backup.Restore(ctx, empty); err != nil {
					return err
				}
			}

			logger.LogSystem("Store reset", "backend", cfg.Store.Backend)
			printf(cmd.OutOrStdout(), "store reset\n")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm deleting all data")
	rootCmd.AddCommand(resetCmd)
}
