package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config represents the main ctx configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Anthropic completion endpoint
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`

	// Trello task tracker
	Trello TrelloConfig `json:"trello" mapstructure:"trello"`

	// Obsidian vault
	Vault VaultConfig `json:"vault" mapstructure:"vault"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Webhook configuration
	Webhook WebhookConfig `json:"webhook" mapstructure:"webhook"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken         string  `json:"bot_token" mapstructure:"bot_token"`
	Allowlist        []int64 `json:"allowlist" mapstructure:"allowlist"`
	DedupeTTLSeconds int     `json:"dedupe_ttl_seconds" mapstructure:"dedupe_ttl_seconds"`
	QueueWarnMs      int     `json:"queue_warn_ms" mapstructure:"queue_warn_ms"`
}

// AnthropicConfig holds completion settings
type AnthropicConfig struct {
	APIKey        string `json:"api_key" mapstructure:"api_key"`
	Model         string `json:"model" mapstructure:"model"`
	MaxTokens     int    `json:"max_tokens" mapstructure:"max_tokens"`
	ContextWindow int    `json:"context_window" mapstructure:"context_window"`
}

// TrelloConfig holds task tracker credentials and defaults
type TrelloConfig struct {
	APIKey         string `json:"api_key" mapstructure:"api_key"`
	Token          string `json:"token" mapstructure:"token"`
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	DefaultBoardID string `json:"default_board_id" mapstructure:"default_board_id"`
	DefaultListID  string `json:"default_list_id" mapstructure:"default_list_id"`
}

// VaultConfig holds notes vault settings
type VaultConfig struct {
	Path          string `json:"path" mapstructure:"path"`
	DailySchedule string `json:"daily_schedule" mapstructure:"daily_schedule"` // cron spec, empty disables
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	AuditFile string `json:"audit_file" mapstructure:"audit_file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// WebhookConfig holds webhook server configuration
type WebhookConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Port      int    `json:"port" mapstructure:"port"`
	Host      string `json:"host" mapstructure:"host"`
	Path      string `json:"path" mapstructure:"path"`
	Timeout   int    `json:"timeout" mapstructure:"timeout"` // seconds
	Secret    string `json:"secret" mapstructure:"secret"`
	RateLimit int    `json:"rate_limit" mapstructure:"rate_limit"` // requests per minute per IP
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Allowlist:        []int64{},
			DedupeTTLSeconds: 300,
			QueueWarnMs:      5000,
		},
		Anthropic: AnthropicConfig{
			Model:         "claude-haiku-4-5-20251001",
			MaxTokens:     1024,
			ContextWindow: 200000,
		},
		Trello: TrelloConfig{
			BaseURL: "https://api.trello.com/1",
		},
		Vault: VaultConfig{
			DailySchedule: "0 0 * * *",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Webhook: WebhookConfig{
			Enabled:   false,
			Port:      3000,
			Host:      "0.0.0.0",
			Path:      "/webhook",
			Timeout:   30,
			RateLimit: 60,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.Telegram.BotToken = mask(c.Telegram.BotToken)
	masked.Anthropic.APIKey = mask(c.Anthropic.APIKey)
	masked.Trello.APIKey = mask(c.Trello.APIKey)
	masked.Trello.Token = mask(c.Trello.Token)
	masked.Webhook.Secret = mask(c.Webhook.Secret)

	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}

// Validate checks if the configuration is usable by the daemon
func (c *Config) Validate() error {
	if err := c.ValidateCore(); err != nil {
		return err
	}

	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required (set TELEGRAM_BOT_TOKEN)")
	}

	if c.Webhook.Enabled && (c.Webhook.Port <= 0 || c.Webhook.Port > 65535) {
		return fmt.Errorf("invalid webhook port: %d", c.Webhook.Port)
	}

	return nil
}

// Warnings lists settings that are valid but probably unintended
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Telegram.BotToken != "" && len(c.Telegram.Allowlist) == 0 {
		warnings = append(warnings, "telegram allowlist is empty, any chat that finds the bot can use it")
	}
	return warnings
}

// ValidateCore checks what a single message needs: the model, the task
// tracker and the vault. The terminal commands only need this much.
func (c *Config) ValidateCore() error {
	if strings.TrimSpace(c.Anthropic.APIKey) == "" {
		return fmt.Errorf("anthropic api key is required (set ANTHROPIC_API_KEY)")
	}
	if strings.TrimSpace(c.Anthropic.Model) == "" {
		return fmt.Errorf("anthropic model is required")
	}
	if c.Anthropic.MaxTokens <= 0 {
		return fmt.Errorf("anthropic max_tokens must be positive, got %d", c.Anthropic.MaxTokens)
	}

	if strings.TrimSpace(c.Trello.APIKey) == "" || strings.TrimSpace(c.Trello.Token) == "" {
		return fmt.Errorf("trello api key and token are required (set TRELLO_API_KEY and TRELLO_TOKEN)")
	}

	if strings.TrimSpace(c.Vault.Path) == "" {
		return fmt.Errorf("vault path is required (ctx config set-vault <path>)")
	}

	return nil
}
