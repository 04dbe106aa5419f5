package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/ctx/internal/config"
	"github.com/harun/ctx/internal/logger"
	"github.com/harun/ctx/pkg/commandqueue"
	"github.com/rs/zerolog"
)

// MaxMessageLength is the Telegram limit for one text message
const MaxMessageLength = 4096

// API is the subset of tgbotapi.BotAPI the bot uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot represents a Telegram bot instance
type Bot struct {
	api      API
	self     tgbotapi.User
	config   *config.TelegramConfig
	logger   zerolog.Logger
	allowed  map[int64]bool
	seen     *commandqueue.DedupCache[int]
	stopSeen context.CancelFunc

	// Handlers
	messageHandler MessageHandler
	commandHandler CommandHandler

	// State
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// MessageHandler handles incoming messages
type MessageHandler interface {
	HandleMessage(update tgbotapi.Update) error
}

// CommandHandler handles bot commands
type CommandHandler interface {
	HandleCommand(update tgbotapi.Update) error
}

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot := newBot(api, api.Self, cfg, log.GetZerolog())

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI creates a bot on an already authenticated API client
func NewWithAPI(api API, self tgbotapi.User, cfg *config.TelegramConfig, log *logger.Logger) *Bot {
	return newBot(api, self, cfg, log.GetZerolog())
}

func newBot(api API, self tgbotapi.User, cfg *config.TelegramConfig, base zerolog.Logger) *Bot {
	allowed := make(map[int64]bool, len(cfg.Allowlist))
	for _, id := range cfg.Allowlist {
		allowed[id] = true
	}

	ttl := time.Duration(cfg.DedupeTTLSeconds) * time.Second
	seenCtx, stopSeen := context.WithCancel(context.Background())

	return &Bot{
		api:      api,
		self:     self,
		config:   cfg,
		logger:   base.With().Str("component", "telegram").Logger(),
		allowed:  allowed,
		seen:     commandqueue.NewDedupCache[int](seenCtx, ttl),
		stopSeen: stopSeen,
	}
}

// Start begins long polling and dispatching updates
func (b *Bot) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.running = true
	b.done = make(chan struct{})

	go b.processUpdates(updates, b.done)

	b.logger.Info().Msg("Telegram bot started")

	return nil
}

// Stop stops long polling. Updates already dispatched keep running.
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}
	b.running = false
	done := b.done
	b.mu.Unlock()

	b.logger.Info().Msg("Stopping Telegram bot")

	b.api.StopReceivingUpdates()
	<-done

	b.logger.Info().Msg("Telegram bot stopped")

	return nil
}

// processUpdates drains the updates channel until it closes
func (b *Bot) processUpdates(updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for update := range updates {
		if err := b.HandleUpdate(update); err != nil {
			b.logger.Error().
				Err(err).
				Int("update_id", update.UpdateID).
				Msg("Failed to handle update")
		}
	}
}

// HandleUpdate routes an update to the appropriate handler. Both long
// polling and the webhook server feed it. Redelivered updates and chats
// outside the allowlist are dropped.
func (b *Bot) HandleUpdate(update tgbotapi.Update) error {
	if b.seen.Seen(update.UpdateID) {
		b.logger.Debug().Int("update_id", update.UpdateID).Msg("Duplicate update ignored")
		return nil
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	if !b.IsAllowed(msg.Chat.ID) {
		b.logger.Warn().
			Int64("chat_id", msg.Chat.ID).
			Msg("Message from chat outside allowlist ignored")
		return nil
	}

	if msg.IsCommand() && b.commandHandler != nil {
		return b.commandHandler.HandleCommand(update)
	}

	if b.messageHandler != nil {
		return b.messageHandler.HandleMessage(update)
	}

	return nil
}

// IsAllowed reports whether the chat may talk to the bot. An empty
// allowlist admits every chat.
func (b *Bot) IsAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	return b.allowed[chatID]
}

// SendMessage sends a text message, split into several when it is too long
func (b *Bot) SendMessage(chatID int64, text string) error {
	return b.send(chatID, text, 0)
}

// SendMessageWithReply sends a text message as a reply
func (b *Bot) SendMessageWithReply(chatID int64, text string, replyToMessageID int) error {
	return b.send(chatID, text, replyToMessageID)
}

func (b *Bot) send(chatID int64, text string, replyTo int) error {
	for i, chunk := range SplitMessage(text, MaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}

		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}

	b.logger.Debug().
		Int64("chat_id", chatID).
		Int("reply_to", replyTo).
		Msg("Message sent")

	return nil
}

// SendTyping sends the typing chat action
func (b *Bot) SendTyping(chatID int64) error {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}

// SplitMessage breaks text into chunks of at most limit runes, preferring
// line breaks
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return []string{""}
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// SetMessageHandler sets the message handler
func (b *Bot) SetMessageHandler(handler MessageHandler) {
	b.messageHandler = handler
}

// SetCommandHandler sets the command handler
func (b *Bot) SetCommandHandler(handler CommandHandler) {
	b.commandHandler = handler
}

// Username returns the bot's Telegram username
func (b *Bot) Username() string {
	return b.self.UserName
}

// Close releases the update dedup cache
func (b *Bot) Close() {
	b.stopSeen()
}

// IsRunning returns whether the bot is polling
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// DeleteWebhook removes any webhook so long polling receives updates
func (b *Bot) DeleteWebhook() error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}
