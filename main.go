package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/ledgerbot/ledgerbot/ledgerbot"
	"github.com/ledgerbot/ledgerbot/ledgerbot/commands"
	"github.com/ledgerbot/ledgerbot/ledgerbot/config"
	"github.com/ledgerbot/ledgerbot/ledgerbot/handlers"
	"github.com/ledgerbot/ledgerbot/ledgerbot/metrics"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := ledgerbot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	ledgerbot.SetupLogging(cfg.Log, os.Stdout)

	slog.Info("Starting LedgerBot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := ledgerbot.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store",
			slog.String("type", "db"),
			slog.String("backend", cfg.Store.Backend),
			slog.Any("error", err),
		)
		os.Exit(-1)
	}
	defer closeStore()

	collector := metrics.New()
	roles := handlers.NewRoleAssigner(collector.RoleReward, slog.Default())

	services, err := ledgerbot.NewServices(ctx, cfg, store, ledgerbot.Hooks{
		Rewards:  roles,
		Observer: collector,
		OnRetry:  collector.StoreRetry,
	})
	if err != nil {
		slog.Error("Failed to initialize services", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}

	b := ledgerbot.New(*cfg, version, commit)
	b.Use(services)
	b.Metrics = collector

	h := handler.New()
	commands.Register(h, b)

	activity := handlers.NewActivityHandler(b.Engine, cfg.Bot.ActivityWorkers, slog.Default())
	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), handlers.MessageHandler(activity)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}
	roles.Attach(b.Client.Rest())

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		b.Client.Close(ctx)
		roles.Wait()
	}()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		ops := metrics.NewServer(cfg.Metrics.Addr, collector, store)
		go func() {
			if err := ops.Run(runCtx); err != nil {
				slog.Error("Ops server stopped", slog.String("type", "sys"), slog.Any("error", err))
			}
		}()
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(runCtx, 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	<-runCtx.Done()
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
}
