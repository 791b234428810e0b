package ledgerbot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/ledger"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/ledgerbot/ledgerbot/internal/gateways/database/sqlstore"
	"github.com/ledgerbot/ledgerbot/internal/gateways/memstore"
	"github.com/ledgerbot/ledgerbot/internal/gateways/mongostore"
	"github.com/ledgerbot/ledgerbot/ledgerbot/backup"
	"github.com/ledgerbot/ledgerbot/ledgerbot/database"
	"github.com/ledgerbot/ledgerbot/ledgerbot/logger"
)

// SetupLogging installs the default logger. "json" selects machine readable
// output, anything else the console format.
func SetupLogging(cfg LogConfig, w io.Writer) *slog.Logger {
	if strings.EqualFold(cfg.Format, "json") {
		log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}))
		slog.SetDefault(log)
		return log
	}
	return logger.Setup(cfg.Level, w)
}

// OpenStore connects the configured backend and prepares its schema. The
// returned close func releases everything OpenStore opened.
func OpenStore(ctx context.Context, cfg *Config) (ledger.Store, func(), error) {
	start := time.Now()

	switch cfg.Store.Backend {
	case StoreMemory:
		slog.Warn("Using in-memory store, data is lost on exit", slog.String("type", "db"))
		s := memstore.New(cfg.Store.LogCap)
		return s, func() { _ = s.Close() }, nil

	case StoreMongo:
		s, err := mongostore.Connect(ctx, cfg.Mongo, cfg.Store.LogCap)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to migrate mongodb: %w", err)
		}
		slog.Info("MongoDB store ready",
			slog.String("type", "db"),
			slog.String("database", cfg.Mongo.Database),
			slog.Duration("took", time.Since(start)),
		)
		return s, func() { _ = s.Close() }, nil

	case StoreSQL:
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitializeSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		s := sqlstore.New(db.BunDB(), cfg.Store.LogCap)
		slog.Info("SQL store ready",
			slog.String("type", "db"),
			slog.String("driver", db.Driver()),
			slog.Duration("took", time.Since(start)),
		)
		return s, func() {
			_ = s.Close()
			db.Close()
		}, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// Hooks are the optional collaborators services report to.
type Hooks struct {
	Rewards  progression.RewardSink
	Observer engine.Observer
	OnRetry  func(attempt int, err error)
}

// Services is the domain layer built on top of one store.
type Services struct {
	Store       ledger.Store
	Progression *progression.Service
	Economy     *economy.Service
	Shop        *economy.Shop
	Engine      *engine.Engine
	Backup      *backup.Service
}

// NewServices wires the domain services, seeds the shop when configured and
// registers every backup sink the config enables.
func NewServices(ctx context.Context, cfg *Config, store ledger.Store, hooks Hooks) (*Services, error) {
	log := slog.Default()
	retrier := &ledger.Retrier{
		Attempts: cfg.Store.Retries,
		Backoff:  cfg.RetryWait(),
		OnRetry:  hooks.OnRetry,
	}

	shop := economy.NewShop(store, log)
	if seed := cfg.Economy.SeedShop; seed == nil || *seed {
		if _, err := shop.SeedDefaults(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed shop: %w", err)
		}
	}

	progOpts := []progression.Option{progression.WithRetrier(retrier), progression.WithLogger(log)}
	if hooks.Rewards != nil {
		progOpts = append(progOpts, progression.WithRewardSink(hooks.Rewards))
	}
	prog := progression.NewService(store, cfg.ProgressionConfig(), progOpts...)
	econ := economy.NewService(store, shop, cfg.EconomyConfig(), economy.WithRetrier(retrier), economy.WithLogger(log))

	engOpts := []engine.Option{engine.WithLogger(log)}
	if hooks.Observer != nil {
		engOpts = append(engOpts, engine.WithObserver(hooks.Observer))
	}

	sinks, err := backupSinks(ctx, cfg.Backup)
	if err != nil {
		return nil, err
	}

	return &Services{
		Store:       store,
		Progression: prog,
		Economy:     econ,
		Shop:        shop,
		Engine:      engine.New(prog, econ, cfg.EngineConfig(), engOpts...),
		Backup:      backup.New(store, log, sinks...),
	}, nil
}

func backupSinks(ctx context.Context, cfg BackupConfig) ([]backup.Sink, error) {
	var sinks []backup.Sink
	if cfg.Dir != "" {
		sinks = append(sinks, backup.DirSink{Dir: cfg.Dir})
	}
	if cfg.S3Enabled() {
		s3, err := backup.NewS3Sink(ctx, backup.S3Config{
			Key:      cfg.Key,
			Secret:   cfg.Secret,
			Region:   cfg.Region,
			Bucket:   cfg.Bucket,
			Endpoint: cfg.Endpoint,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	return sinks, nil
}

// Use copies the services onto the bot.
func (b *Bot) Use(s *Services) {
	b.Store = s.Store
	b.Engine = s.Engine
	b.Progression = s.Progression
	b.Economy = s.Economy
	b.Shop = s.Shop
	b.Backup = s.Backup
}
