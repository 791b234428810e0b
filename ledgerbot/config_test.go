package ledgerbot

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[bot]
token = "file-token"
dev_guilds = [123456789012345678]

[log]
level = "debug"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.Bot.Token)
	assert.Len(t, cfg.Bot.DevGuilds, 1)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, StoreSQL, cfg.Store.Backend)
	assert.Equal(t, 1000, cfg.Store.LogCap)

	pc := cfg.ProgressionConfig()
	assert.Equal(t, 500.0, pc.Curve.BaseXP)
	assert.Equal(t, 1.5, pc.Curve.Exponent)
	assert.Equal(t, int64(100), pc.PerEventCap)
	assert.Equal(t, 5*time.Second, pc.Cooldown)
	assert.Equal(t, int64(10), pc.XPPerActivity)

	ec := cfg.EconomyConfig()
	assert.Equal(t, int64(500), ec.DailyBaseReward)
	assert.Equal(t, int64(500), ec.DailyBonusRange)
	assert.Equal(t, 24*time.Hour, ec.DailyCooldown)
	assert.Equal(t, 48*time.Hour, ec.StreakResetWindow)

	assert.Equal(t, 3, cfg.EngineConfig().MinMessageLength)
	assert.True(t, *cfg.Economy.SeedShop)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvToken, "env-token")
	t.Setenv(EnvDBPassword, "env-password")
	t.Setenv(EnvS3Secret, "env-secret")

	path := writeConfig(t, `
[bot]
token = "file-token"

[db]
driver = "postgres"
password = "file-password"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, "env-password", cfg.DB.Password)
	assert.Equal(t, "env-secret", cfg.Backup.Secret)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "UnknownBackend", body: "[store]\nbackend = \"redis\"\n"},
		{name: "MongoWithoutURI", body: "[store]\nbackend = \"mongo\"\n"},
		{name: "NegativeExponent", body: "[leveling]\nexponent = -1.0\n"},
		{name: "ZeroDailyBase", body: "[economy]\ndaily_base = 0\n"},
		{name: "NegativeBonus", body: "[economy]\ndaily_bonus_range = -5\n"},
		{name: "BadToml", body: "[store\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Errorf("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
