package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run walks through the settings, starting from base, and returns the result
func (w *Wizard) Run(base *Config) (*Config, error) {
	fmt.Fprintln(w.out, "=== ctx Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	key, err := w.ask("Anthropic API Key (Enter to keep, or set ANTHROPIC_API_KEY)", "", func(s string) error {
		return validator.ValidateAnthropicKey(s)
	})
	if err != nil {
		return nil, err
	}
	if key != "" {
		cfg.Anthropic.APIKey = key
	}

	key, err = w.ask("Trello API Key (Enter to keep)", "", func(s string) error {
		return validator.ValidateTrelloKey(s)
	})
	if err != nil {
		return nil, err
	}
	if key != "" {
		cfg.Trello.APIKey = key
	}

	token, err := w.ask("Trello Token (Enter to keep)", "", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.Trello.Token = token
	}

	token, err = w.ask("Telegram Bot Token (Enter to keep)", "", func(s string) error {
		return validator.ValidateTelegramToken(s)
	})
	if err != nil {
		return nil, err
	}
	if token != "" {
		cfg.Telegram.BotToken = token
	}

	fmt.Fprintln(w.out)

	allow, err := w.ask("Allowed Telegram chat ids, comma separated (Enter for any)", "", func(s string) error {
		_, err := parseChatIDs(s)
		return err
	})
	if err != nil {
		return nil, err
	}
	if allow != "" {
		cfg.Telegram.Allowlist, _ = parseChatIDs(allow)
	}
	for _, warning := range cfg.Warnings() {
		fmt.Fprintf(w.out, "Warning: %s\n", warning)
	}

	vault, err := w.ask("Obsidian vault path", cfg.Vault.Path, func(s string) error {
		return validator.ValidateVaultPath(s)
	})
	if err != nil {
		return nil, err
	}
	cfg.Vault.Path = vault

	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level, func(s string) error {
		return validator.ValidateLogLevel(s)
	})
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = level

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete! Set the default board and inbox with 'ctx config set-board' and 'ctx config set-inbox'.")

	return cfg, nil
}

// ask prompts until check accepts the answer. Empty answers return def unchecked.
func (w *Wizard) ask(prompt, def string, check func(string) error) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
		} else {
			fmt.Fprintf(w.out, "%s: ", prompt)
		}

		answer, err := w.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			return def, nil
		}
		if check != nil {
			if err := check(answer); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
		}
		return answer, nil
	}
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseChatIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
