package ledgerbot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/ledgerbot/ledgerbot/internal/domain/economy"
	"github.com/ledgerbot/ledgerbot/internal/domain/engine"
	"github.com/ledgerbot/ledgerbot/internal/domain/progression"
	"github.com/ledgerbot/ledgerbot/internal/domain/txlog"
	"github.com/ledgerbot/ledgerbot/internal/gateways/mongostore"
	"github.com/ledgerbot/ledgerbot/ledgerbot/database"
	"github.com/pelletier/go-toml/v2"
)

const (
	StoreSQL    = "sql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// Environment variables that take precedence over the config file.
const (
	EnvToken      = "LEDGERBOT_TOKEN"
	EnvDBPassword = "LEDGERBOT_DB_PASSWORD"
	EnvMongoURI   = "LEDGERBOT_MONGO_URI"
	EnvS3Key      = "LEDGERBOT_S3_KEY"
	EnvS3Secret   = "LEDGERBOT_S3_SECRET"
)

// LoadConfig reads a TOML config file, loads .env secrets on top of it and
// fills in defaults for everything left unset.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type Config struct {
	Log      LogConfig         `toml:"log"`
	Bot      BotConfig         `toml:"bot"`
	Store    StoreConfig       `toml:"store"`
	DB       database.DBConfig `toml:"db"`
	Mongo    mongostore.Config `toml:"mongo"`
	Leveling LevelingConfig    `toml:"leveling"`
	Economy  EconomyConfig     `toml:"economy"`
	Backup   BackupConfig      `toml:"backup"`
	Metrics  MetricsConfig     `toml:"metrics"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
	// ActivityWorkers bounds how many messages are processed at once.
	ActivityWorkers int64 `toml:"activity_workers"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type StoreConfig struct {
	// Backend is one of "sql", "mongo" or "memory".
	Backend   string `toml:"backend"`
	LogCap    int    `toml:"log_cap"`
	Retries   int    `toml:"retries"`
	RetryWait int    `toml:"retry_wait_ms"`
}

type LevelingConfig struct {
	BaseXP           float64 `toml:"base_xp"`
	Exponent         float64 `toml:"exponent"`
	XPPerMessage     int64   `toml:"xp_per_message"`
	MaxXPPerEvent    int64   `toml:"max_xp_per_event"`
	CooldownSeconds  int     `toml:"cooldown_seconds"`
	MinMessageLength int     `toml:"min_message_length"`
}

type EconomyConfig struct {
	DailyBase        int64 `toml:"daily_base"`
	DailyBonusRange  int64 `toml:"daily_bonus_range"`
	DailyCooldownH   int   `toml:"daily_cooldown_hours"`
	StreakResetHours int   `toml:"streak_reset_hours"`
	ActivityCoins    int64 `toml:"activity_coins"`
	SeedShop         *bool `toml:"seed_shop"`
}

type BackupConfig struct {
	Dir      string `toml:"dir"`
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	Prefix   string `toml:"prefix"`
}

// S3Enabled reports whether snapshots go to object storage.
func (c BackupConfig) S3Enabled() bool {
	return c.Bucket != ""
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

func DefaultConfig() *Config {
	lv := progression.DefaultConfig()
	ec := economy.DefaultConfig()
	ac := engine.DefaultConfig()
	seed := true

	return &Config{
		Log:   LogConfig{Level: slog.LevelInfo, Format: "text"},
		Bot:   BotConfig{ActivityWorkers: 16},
		Store: StoreConfig{Backend: StoreSQL, LogCap: txlog.DefaultCap, Retries: 3, RetryWait: 10},
		DB:    database.DBConfig{Driver: database.DriverSQLite, Path: "data/ledgerbot.db"},
		Mongo: mongostore.Config{Database: "ledgerbot", Timeout: 10},
		Leveling: LevelingConfig{
			BaseXP:           lv.Curve.BaseXP,
			Exponent:         lv.Curve.Exponent,
			XPPerMessage:     lv.XPPerActivity,
			MaxXPPerEvent:    lv.PerEventCap,
			CooldownSeconds:  int(lv.Cooldown / time.Second),
			MinMessageLength: ac.MinMessageLength,
		},
		Economy: EconomyConfig{
			DailyBase:        ec.DailyBaseReward,
			DailyBonusRange:  ec.DailyBonusRange,
			DailyCooldownH:   int(ec.DailyCooldown / time.Hour),
			StreakResetHours: int(ec.StreakResetWindow / time.Hour),
			ActivityCoins:    ec.ActivityCoins,
			SeedShop:         &seed,
		},
		Backup:  BackupConfig{Dir: "backups", Prefix: "snapshots/"},
		Metrics: MetricsConfig{Addr: ":9464"},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(EnvS3Key); v != "" {
		c.Backup.Key = v
	}
	if v := os.Getenv(EnvS3Secret); v != "" {
		c.Backup.Secret = v
	}
}

// applyDefaults fills values a partial config file may have zeroed.
func (c *Config) applyDefaults() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = StoreSQL
	}
	if c.Store.LogCap <= 0 {
		c.Store.LogCap = txlog.DefaultCap
	}
	if c.Store.Retries <= 0 {
		c.Store.Retries = 3
	}
	if c.Bot.ActivityWorkers <= 0 {
		c.Bot.ActivityWorkers = 16
	}
	if c.DB.Driver == "" {
		c.DB.Driver = database.DriverSQLite
	}
	if c.Economy.SeedShop == nil {
		seed := true
		c.Economy.SeedShop = &seed
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreSQL, StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backend == StoreMongo && c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri: required for the mongo backend"))
	}
	if c.Leveling.BaseXP <= 0 {
		errs = append(errs, errors.New("leveling.base_xp: must be positive"))
	}
	if c.Leveling.Exponent <= 0 {
		errs = append(errs, errors.New("leveling.exponent: must be positive"))
	}
	if c.Leveling.XPPerMessage < 0 || c.Leveling.MaxXPPerEvent < 0 || c.Leveling.CooldownSeconds < 0 {
		errs = append(errs, errors.New("leveling: xp amounts and cooldown must not be negative"))
	}
	if c.Economy.DailyBase <= 0 {
		errs = append(errs, errors.New("economy.daily_base: must be positive"))
	}
	if c.Economy.DailyBonusRange < 0 {
		errs = append(errs, errors.New("economy.daily_bonus_range: must not be negative"))
	}
	if c.Economy.DailyCooldownH < 0 || c.Economy.StreakResetHours < 0 {
		errs = append(errs, errors.New("economy: daily windows must not be negative"))
	}
	if c.Economy.ActivityCoins < 0 {
		errs = append(errs, errors.New("economy.activity_coins: must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) ProgressionConfig() progression.Config {
	return progression.Config{
		Curve:         progression.Curve{BaseXP: c.Leveling.BaseXP, Exponent: c.Leveling.Exponent},
		PerEventCap:   c.Leveling.MaxXPPerEvent,
		Cooldown:      time.Duration(c.Leveling.CooldownSeconds) * time.Second,
		XPPerActivity: c.Leveling.XPPerMessage,
	}
}

func (c *Config) EconomyConfig() economy.Config {
	return economy.Config{
		DailyBaseReward:   c.Economy.DailyBase,
		DailyBonusRange:   c.Economy.DailyBonusRange,
		DailyCooldown:     time.Duration(c.Economy.DailyCooldownH) * time.Hour,
		StreakResetWindow: time.Duration(c.Economy.StreakResetHours) * time.Hour,
		ActivityCoins:     c.Economy.ActivityCoins,
	}
}

func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		MinMessageLength: c.Leveling.MinMessageLength,
		ActivityCoins:    c.Economy.ActivityCoins,
	}
}

func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Store.RetryWait) * time.Millisecond
}
