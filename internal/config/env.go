package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Env holds secrets read from the environment. Set values win over the file.
type Env struct {
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL"`
	TrelloAPIKey    string `envconfig:"TRELLO_API_KEY"`
	TrelloToken     string `envconfig:"TRELLO_TOKEN"`
	TrelloBaseURL   string `envconfig:"TRELLO_BASE_URL"`
	TelegramToken   string `envconfig:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret   string `envconfig:"TELEGRAM_WEBHOOK_SECRET"`
	VaultPath       string `envconfig:"OBSIDIAN_VAULT_PATH"`
}

// LoadEnv reads Env from the process environment
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

// Apply overlays non-empty environment values onto cfg
func (e Env) Apply(cfg *Config) {
	overlay := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	overlay(&cfg.Anthropic.APIKey, e.AnthropicAPIKey)
	overlay(&cfg.Anthropic.Model, e.AnthropicModel)
	overlay(&cfg.Trello.APIKey, e.TrelloAPIKey)
	overlay(&cfg.Trello.Token, e.TrelloToken)
	overlay(&cfg.Trello.BaseURL, e.TrelloBaseURL)
	overlay(&cfg.Telegram.BotToken, e.TelegramToken)
	overlay(&cfg.Webhook.Secret, e.WebhookSecret)
	overlay(&cfg.Vault.Path, e.VaultPath)
}
