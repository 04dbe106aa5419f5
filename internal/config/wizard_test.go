package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardRun(t *testing.T) {
	vault := t.TempDir()
	answers := strings.Join([]string{
		"bad-key",       // rejected
		"sk-ant-wizard", // anthropic
		"",              // trello key kept
		"trello-token",  // trello token
		"123:abc",       // telegram
		"42, 7",         // allowlist
		vault,           // vault
		"",              // log level default
	}, "\n") + "\n"

	var out bytes.Buffer
	cfg, err := NewWizard(strings.NewReader(answers), &out).Run(nil)

	require.NoError(t, err)
	assert.Equal(t, "sk-ant-wizard", cfg.Anthropic.APIKey)
	assert.Equal(t, "trello-token", cfg.Trello.Token)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{42, 7}, cfg.Telegram.Allowlist)
	assert.Equal(t, vault, cfg.Vault.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, out.String(), "Error: invalid Anthropic API key format")
	assert.NotContains(t, out.String(), "allowlist is empty")
}

func TestWizardRun_WarnsOnOpenBot(t *testing.T) {
	answers := strings.Join([]string{
		"sk-ant-wizard",
		"",
		"trello-token",
		"123:abc",
		"", // any chat
		t.TempDir(),
		"",
	}, "\n") + "\n"

	var out bytes.Buffer
	cfg, err := NewWizard(strings.NewReader(answers), &out).Run(nil)

	require.NoError(t, err)
	assert.Empty(t, cfg.Telegram.Allowlist)
	assert.Contains(t, out.String(), "Warning: telegram allowlist is empty")
}

func TestWizardRun_EOF(t *testing.T) {
	_, err := NewWizard(strings.NewReader(""), &bytes.Buffer{}).Run(nil)
	assert.Error(t, err)
}
