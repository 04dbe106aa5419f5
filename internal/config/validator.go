package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

var (
	telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)
	trelloKeyPattern     = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAnthropicKey validates an Anthropic API key format
func (v *Validator) ValidateAnthropicKey(key string) error {
	if key == "" {
		return fmt.Errorf("anthropic API key cannot be empty")
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
	}
	return nil
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateTrelloKey validates a Trello API key
func (v *Validator) ValidateTrelloKey(key string) error {
	if key == "" {
		return fmt.Errorf("trello API key cannot be empty")
	}
	if !trelloKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid Trello API key format (expected 32 hex characters)")
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateSchedule validates a five-field cron spec. Empty disables the job.
func (v *Validator) ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// ValidateVaultPath checks the vault directory exists
func (v *Validator) ValidateVaultPath(path string) error {
	if path == "" {
		return fmt.Errorf("vault path cannot be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("vault path %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path %s is not a directory", path)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if cfg.Anthropic.APIKey != "" {
		if err := v.ValidateAnthropicKey(cfg.Anthropic.APIKey); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateMaxTokens(cfg.Anthropic.MaxTokens); err != nil {
		errors = append(errors, fmt.Errorf("anthropic: %w", err))
	}
	if cfg.Anthropic.ContextWindow < cfg.Anthropic.MaxTokens {
		errors = append(errors, fmt.Errorf("anthropic context_window must be >= max_tokens"))
	}

	if cfg.Trello.APIKey != "" {
		if err := v.ValidateTrelloKey(cfg.Trello.APIKey); err != nil {
			errors = append(errors, err)
		}
	}

	if cfg.Telegram.BotToken != "" {
		if err := v.ValidateTelegramToken(cfg.Telegram.BotToken); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Telegram.DedupeTTLSeconds < 0 {
		errors = append(errors, fmt.Errorf("telegram dedupe_ttl_seconds must be >= 0"))
	}
	if cfg.Telegram.QueueWarnMs < 0 {
		errors = append(errors, fmt.Errorf("telegram queue_warn_ms must be >= 0"))
	}

	if cfg.Vault.Path != "" {
		if err := v.ValidateVaultPath(cfg.Vault.Path); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateSchedule(cfg.Vault.DailySchedule); err != nil {
		errors = append(errors, fmt.Errorf("vault: %w", err))
	}

	if cfg.Webhook.RateLimit < 0 {
		errors = append(errors, fmt.Errorf("webhook rate_limit must be >= 0"))
	}
	if cfg.Webhook.Path != "" && (!strings.HasPrefix(cfg.Webhook.Path, "/") || cfg.Webhook.Path == "/health") {
		errors = append(errors, fmt.Errorf("webhook path must start with / and cannot be /health: %q", cfg.Webhook.Path))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
