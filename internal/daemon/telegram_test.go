package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/logger"
	"github.com/harun/ctx/internal/telegram"
	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAPI struct {
	mu    sync.Mutex
	texts []string
}

func (a *recordingAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		a.texts = append(a.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (a *recordingAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (a *recordingAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (a *recordingAPI) StopReceivingUpdates() {}

func (a *recordingAPI) sent() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.texts...)
}

// plainClient answers every message with fixed text and never calls a tool
type plainClient struct{}

func (plainClient) Complete(context.Context, agent.CompletionRequest) (*agent.Completion, error) {
	return &agent.Completion{
		Blocks:     []agent.ContentBlock{agent.NewTextBlock("Nothing to confirm right now.")},
		StopReason: agent.StopEndTurn,
	}, nil
}

// createTelegramDaemon builds a daemon whose bot talks to a recording API.
// The returned counter tracks write requests that reached Trello.
func createTelegramDaemon(t *testing.T) (*Daemon, *recordingAPI, func() int) {
	t.Helper()

	var mu sync.Mutex
	writes := 0
	trelloSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			mu.Lock()
			writes++
			mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","name":"Dentist","closed":true}`))
	}))
	t.Cleanup(trelloSrv.Close)

	withCompletionClient(t, plainClient{})

	api := &recordingAPI{}
	original := newTelegramBot
	newTelegramBot = func(cfg *config.TelegramConfig, log *logger.Logger) (*telegram.Bot, error) {
		return telegram.NewWithAPI(api, tgbotapi.User{ID: 1, UserName: "ctxbot"}, cfg, log), nil
	}
	t.Cleanup(func() { newTelegramBot = original })

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Anthropic.APIKey = "sk-ant-test"
	cfg.Trello.APIKey = "0123456789abcdef0123456789abcdef"
	cfg.Trello.Token = "trello-token"
	cfg.Trello.BaseURL = trelloSrv.URL + "/1"
	cfg.Vault.Path = t.TempDir()
	cfg.Metrics.Enabled = false
	cfg.Telegram.BotToken = "123456:test-token"

	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	d, err := New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() {
		d.telegramBot.Close()
		d.cronService.Stop()
		d.queue.Close()
	})

	return d, api, func() int {
		mu.Lock()
		defer mu.Unlock()
		return writes
	}
}

func chatUpdate(updateID int, msg *tgbotapi.Message) tgbotapi.Update {
	msg.MessageID = updateID
	msg.Chat = &tgbotapi.Chat{ID: 42, Type: "private"}
	msg.From = &tgbotapi.User{ID: 42, FirstName: "Ana"}
	msg.Date = 1760778000
	return tgbotapi.Update{UpdateID: updateID, Message: msg}
}

func TestTelegramCannedRepliesClearPendingConfirmation(t *testing.T) {
	tests := []struct {
		name  string
		msg   *tgbotapi.Message
		reply string
	}{
		{
			name:  "sticker",
			msg:   &tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "stk"}},
			reply: telegram.TextOnlyReply,
		},
		{
			name: "help command",
			msg: &tgbotapi.Message{
				Text:     "/help",
				Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
			},
			reply: telegram.HelpText,
		},
		{
			name: "unknown command",
			msg: &tgbotapi.Message{
				Text:     "/weather",
				Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 8}},
			},
			reply: "Unknown command: /weather. Try /help.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, api, trelloWrites := createTelegramDaemon(t)

			d.core.Approvals.Put(42, toolexecutor.PendingApproval{
				ToolName:    toolexecutor.ToolArchiveCard,
				TargetID:    "c1",
				Description: "Dentist",
				CreatedAt:   time.Now(),
			})

			require.NoError(t, d.telegramBot.HandleUpdate(chatUpdate(1, tt.msg)))
			assert.Eventually(t, func() bool {
				return len(api.sent()) == 1
			}, time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.reply, api.sent()[0])
			assert.False(t, d.core.FrontDoor.Pending(42))

			require.NoError(t, d.telegramBot.HandleUpdate(chatUpdate(2, &tgbotapi.Message{Text: "yes"})))
			assert.Eventually(t, func() bool {
				return len(api.sent()) == 2
			}, time.Second, 5*time.Millisecond)
			assert.Equal(t, "Nothing to confirm right now.", api.sent()[1])
			assert.Zero(t, trelloWrites(), "the card is never archived")
		})
	}
}

func TestTelegramCancelCommand(t *testing.T) {
	d, api, trelloWrites := createTelegramDaemon(t)

	d.core.Approvals.Put(42, toolexecutor.PendingApproval{
		ToolName:    toolexecutor.ToolArchiveCard,
		TargetID:    "c1",
		Description: "Dentist",
		CreatedAt:   time.Now(),
	})

	cancel := &tgbotapi.Message{
		Text:     "/cancel",
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}},
	}
	require.NoError(t, d.telegramBot.HandleUpdate(chatUpdate(1, cancel)))

	assert.Eventually(t, func() bool {
		return len(api.sent()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Cancelled. 'Dentist' was not archived.", api.sent()[0])
	assert.False(t, d.core.FrontDoor.Pending(42))
	assert.Zero(t, trelloWrites())
}
