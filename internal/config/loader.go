package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration file and overlays environment secrets
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadFile()
	if err != nil {
		return nil, err
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	env.Apply(cfg)

	return cfg, nil
}

// LoadFile loads the configuration file only. Missing files yield defaults.
func (l *Loader) LoadFile() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		v := viper.New()
		v.SetConfigFile(configPath)
		v.SetConfigType("json")

		v.SetEnvPrefix("CTX")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	// Set data directory if not specified
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(configPath)
	}

	// Set logging file paths if not specified
	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "ctx.log")
	}
	if cfg.Logging.AuditFile == "" {
		cfg.Logging.AuditFile = filepath.Join(cfg.DataDir, "audit.log")
	}

	return cfg, nil
}

// Save saves the configuration to file with owner-only permissions
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("telegram", cfg.Telegram)
	v.Set("anthropic", cfg.Anthropic)
	v.Set("trello", cfg.Trello)
	v.Set("vault", cfg.Vault)
	v.Set("logging", cfg.Logging)
	v.Set("webhook", cfg.Webhook)
	v.Set("metrics", cfg.Metrics)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}

	return nil
}

// SetDefaultBoard persists the board used when none is named
func (l *Loader) SetDefaultBoard(boardID string) error {
	return l.update(func(cfg *Config) error {
		if strings.TrimSpace(boardID) == "" {
			return fmt.Errorf("board id is required")
		}
		cfg.Trello.DefaultBoardID = boardID
		return nil
	})
}

// SetDefaultList persists the inbox list new cards land in
func (l *Loader) SetDefaultList(listID string) error {
	return l.update(func(cfg *Config) error {
		if strings.TrimSpace(listID) == "" {
			return fmt.Errorf("list id is required")
		}
		cfg.Trello.DefaultListID = listID
		return nil
	})
}

// SetVaultPath persists the notes vault location
func (l *Loader) SetVaultPath(path string) error {
	return l.update(func(cfg *Config) error {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("vault path is required")
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve vault path: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("vault path %s: %w", abs, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path %s is not a directory", abs)
		}
		cfg.Vault.Path = abs
		return nil
	})
}

// update applies fn to the file config only, so environment secrets never
// end up on disk
func (l *Loader) update(fn func(*Config) error) error {
	cfg, err := l.LoadFile()
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return l.Save(cfg)
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".ctx", "config.json"), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
