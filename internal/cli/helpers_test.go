package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harun/ctx/internal/config"
	"github.com/stretchr/testify/require"
)

// clearEnv hides secrets from the developer's shell
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"TRELLO_API_KEY", "TRELLO_TOKEN", "TRELLO_BASE_URL",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_WEBHOOK_SECRET",
		"OBSIDIAN_VAULT_PATH",
	} {
		t.Setenv(key, "")
	}
}

// writeConfig saves a config file in a temp dir and returns its path
func writeConfig(t *testing.T, mutate func(cfg *config.Config)) string {
	t.Helper()
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Metrics.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	require.NoError(t, config.NewLoader(path).Save(cfg))
	return path
}

// execute runs the root command with args and stdin, returning its output
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile = ""
		logLevel = ""
	})

	cmd := GetRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return output.String(), err
}
