package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := NewValidator()

	t.Run("anthropic key", func(t *testing.T) {
		assert.NoError(t, v.ValidateAnthropicKey("sk-ant-abc"))
		assert.Error(t, v.ValidateAnthropicKey(""))
		assert.Error(t, v.ValidateAnthropicKey("sk-abc"))
	})

	t.Run("telegram token", func(t *testing.T) {
		assert.NoError(t, v.ValidateTelegramToken("123456789:ABCdef_GHI-jkl"))
		assert.Error(t, v.ValidateTelegramToken(""))
		assert.Error(t, v.ValidateTelegramToken("not-a-token"))
	})

	t.Run("trello key", func(t *testing.T) {
		assert.NoError(t, v.ValidateTrelloKey(strings.Repeat("a1", 16)))
		assert.Error(t, v.ValidateTrelloKey("short"))
	})

	t.Run("schedule", func(t *testing.T) {
		assert.NoError(t, v.ValidateSchedule(""))
		assert.NoError(t, v.ValidateSchedule("0 0 * * *"))
		assert.NoError(t, v.ValidateSchedule("@daily"))
		assert.Error(t, v.ValidateSchedule("every day"))
	})

	t.Run("vault path", func(t *testing.T) {
		dir := t.TempDir()
		assert.NoError(t, v.ValidateVaultPath(dir))
		assert.Error(t, v.ValidateVaultPath(filepath.Join(dir, "missing")))
		assert.Error(t, v.ValidateVaultPath(""))
	})

	t.Run("log level", func(t *testing.T) {
		assert.NoError(t, v.ValidateLogLevel("debug"))
		assert.Error(t, v.ValidateLogLevel("verbose"))
	})
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("valid", func(t *testing.T) {
		cfg := validConfig(t)
		assert.Empty(t, v.ValidateConfig(cfg))
	})

	t.Run("collects every problem", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Anthropic.APIKey = "bad"
		cfg.Vault.DailySchedule = "nope"
		cfg.Logging.Level = "loud"
		cfg.Telegram.DedupeTTLSeconds = -1

		errs := v.ValidateConfig(cfg)
		assert.Len(t, errs, 4)
	})

	t.Run("webhook path", func(t *testing.T) {
		for _, path := range []string{"hook", "/health"} {
			cfg := validConfig(t)
			cfg.Webhook.Path = path

			errs := v.ValidateConfig(cfg)
			require.Len(t, errs, 1, path)
			assert.Contains(t, errs[0].Error(), "webhook path")
		}
	})
}
