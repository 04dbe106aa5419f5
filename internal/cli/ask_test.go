package cli

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/daemon"
	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient plays the model. Messages starting with "archive" request
// archive_card; anything else is answered with the board list.
type scriptedClient struct {
	mu    sync.Mutex
	calls int
}

func (c *scriptedClient) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	usage := agent.TokenUsage{InputTokens: 100, OutputTokens: 10}
	last := req.Turns[len(req.Turns)-1]

	if len(req.Turns) == 1 {
		if strings.HasPrefix(last.Blocks[0].Text, "archive") {
			return &agent.Completion{
				Blocks: []agent.ContentBlock{agent.NewToolUseBlock("tu_1", toolexecutor.ToolArchiveCard, map[string]interface{}{
					"card_id": "c1",
					"name":    "Dentist",
				})},
				StopReason: agent.StopToolUse,
				Usage:      usage,
			}, nil
		}
		return &agent.Completion{
			Blocks:     []agent.ContentBlock{agent.NewToolUseBlock("tu_1", toolexecutor.ToolGetBoards, map[string]interface{}{})},
			StopReason: agent.StopToolUse,
			Usage:      usage,
		}, nil
	}

	return &agent.Completion{
		Blocks:     []agent.ContentBlock{agent.NewTextBlock("You have: " + last.Blocks[0].Content)},
		StopReason: agent.StopEndTurn,
		Usage:      usage,
	}, nil
}

func withScriptedCore(t *testing.T) {
	t.Helper()
	original := newCore
	newCore = func(cfg *config.Config, logger zerolog.Logger) (*daemon.Core, error) {
		return daemon.BuildCoreWithClient(cfg, &scriptedClient{}, logger)
	}
	t.Cleanup(func() { newCore = original })
}

func askConfig(t *testing.T) string {
	t.Helper()
	srv := newTrelloServer(t)
	vault := t.TempDir()
	return writeConfig(t, func(cfg *config.Config) {
		cfg.Anthropic.APIKey = "sk-ant-test"
		cfg.Trello.APIKey = "0123456789abcdef0123456789abcdef"
		cfg.Trello.Token = "trello-token"
		cfg.Trello.BaseURL = srv.URL + "/1"
		cfg.Vault.Path = vault
	})
}

func TestAskCommand(t *testing.T) {
	withScriptedCore(t)

	t.Run("plain message", func(t *testing.T) {
		path := askConfig(t)

		output, err := execute(t, "", "ask", "what", "boards", "do", "I", "have?", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "You have:")
		assert.Contains(t, output, "Personal")
	})

	t.Run("confirmed archive", func(t *testing.T) {
		path := askConfig(t)

		output, err := execute(t, "yes\n", "ask", "archive the dentist card", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Archive card: 'Dentist'? Reply yes or no.")
		assert.Contains(t, output, "Archived 'Dentist'.")
	})

	t.Run("answer is case insensitive", func(t *testing.T) {
		path := askConfig(t)

		output, err := execute(t, "  YES", "ask", "archive the dentist card", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Archived 'Dentist'.")
	})

	t.Run("cancelled archive", func(t *testing.T) {
		path := askConfig(t)

		output, err := execute(t, "no\n", "ask", "archive the dentist card", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "Cancelled. 'Dentist' was not archived.")
		assert.NotContains(t, output, "Archived")
	})

	t.Run("no answer", func(t *testing.T) {
		path := askConfig(t)

		output, err := execute(t, "", "ask", "archive the dentist card", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, output, "No answer given")
		assert.NotContains(t, output, "Archived")
	})
}

func TestAskCommandValidatesConfig(t *testing.T) {
	withScriptedCore(t)
	path := writeConfig(t, nil)

	_, err := execute(t, "", "ask", "hello", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestAskCommandRequiresMessage(t *testing.T) {
	path := writeConfig(t, nil)

	_, err := execute(t, "", "ask", "--config", path)
	assert.Error(t, err)
}

func TestReadAnswer(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"newline", "yes\n", "yes", false},
		{"crlf", "no\r\n", "no", false},
		{"no trailing newline", "yes", "yes", false},
		{"only first line", "yes\nno\n", "yes", false},
		{"empty input", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAnswer(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
