package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/logger"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Maintenance tool for the LedgerBot store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// withServices opens the configured store, builds the services on top of
// it and runs fn. Logs go to stderr so command output stays clean.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, cfg *ledgerbot.Config, s *ledgerbot.Services) error) error {
	cfg, err := ledgerbot.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ledgerbot.SetupLogging(cfg.Log, cmd.ErrOrStderr())

	ctx := cmd.Context()
	store, closeStore, err := ledgerbot.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	services, err := ledgerbot.NewServices(ctx, cfg, store, ledgerbot.Hooks{})
	if err != nil {
		logger.LogError("Failed to initialize services", err)
		return err
	}
	return fn(ctx, cfg, services)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
