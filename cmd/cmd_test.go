package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
[store]
backend = "memory"

[backup]
dir = %q

[metrics]
addr = ""
`, filepath.Join(dir, "backups"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLedgerctl(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "shop", "list", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "badge_vip")

	out, err = run(t, "credit", "--config", cfg, "--guild", "g1", "--user", "u1", "--amount", "50")
	require.NoError(t, err)
	assert.Equal(t, "credited 50, balance 50\n", out)

	out, err = run(t, "export", "--config", cfg)
	require.NoError(t, err)
	name := strings.SplitN(out, "\t", 2)[0]
	require.True(t, strings.HasPrefix(name, "ledgerbot-"), "export() got = %q", out)

	out, err = run(t, "import", name, "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "imported "+name)
}

func TestLedgerctlErrors(t *testing.T) {
	cfg := writeConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{name: "ResetUnconfirmed", args: []string{"reset", "--config", cfg}},
		{name: "ImportMissing", args: []string{"import", "nope.json", "--config", cfg}},
		{name: "CreditZero", args: []string{"credit", "--config", cfg, "--guild", "g", "--user", "u", "--amount", "0"}},
		{name: "BadLevel", args: []string{"rolereward", "set", "g", "two", "r", "--config", cfg}},
		{name: "MissingConfig", args: []string{"shop", "list", "--config", filepath.Join(t.TempDir(), "none.toml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v got = nil error, want error", tt.args)
			}
		})
	}
}
