package telegram

import (
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TextOnlyReply answers messages that carry nothing readable
const TextOnlyReply = "I can only read text messages. Try describing it in words."

// Responder delivers a canned reply to an inbound message. The daemon
// installs one that first passes the message through the chat's lane, so
// a canned reply still counts as the chat's next message.
type Responder func(chatID int64, text string, replyTo int) error

// Handler implements message handling for Telegram
type Handler struct {
	bot     *Bot
	logger  zerolog.Logger
	respond Responder

	// Callback for processing messages
	onMessage func(MessageContext) error
}

// MessageContext contains message metadata
type MessageContext struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Text      string
	Timestamp time.Time
	IsGroup   bool
	MediaType string
}

// NewHandler creates a new message handler
func NewHandler(bot *Bot) *Handler {
	return &Handler{
		bot:     bot,
		logger:  bot.logger.With().Str("module", "handler").Logger(),
		respond: bot.SendMessageWithReply,
	}
}

// HandleMessage processes incoming messages. Captions stand in for text on
// media messages.
func (h *Handler) HandleMessage(update tgbotapi.Update) error {
	if update.Message == nil {
		return nil
	}

	msg := update.Message

	ctx := MessageContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      strings.TrimSpace(ParseCaption(msg)),
		Timestamp: time.Unix(int64(msg.Date), 0),
		IsGroup:   msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
		MediaType: mediaType(msg),
	}
	if msg.From != nil {
		ctx.UserID = msg.From.ID
		ctx.Username = msg.From.UserName
	}

	h.logger.Debug().
		Int64("chat_id", ctx.ChatID).
		Int64("user_id", ctx.UserID).
		Str("media_type", ctx.MediaType).
		Bool("is_group", ctx.IsGroup).
		Msg("Message received")

	if ctx.Text == "" {
		return h.respond(ctx.ChatID, TextOnlyReply, ctx.MessageID)
	}

	if h.onMessage != nil {
		return h.onMessage(ctx)
	}

	return nil
}

// SetOnMessage sets the message callback
func (h *Handler) SetOnMessage(callback func(MessageContext) error) {
	h.onMessage = callback
}

// SetResponder replaces how canned replies are delivered
func (h *Handler) SetResponder(respond Responder) {
	h.respond = respond
}

// SendResponse sends a reply to the message
func (h *Handler) SendResponse(ctx MessageContext, text string) error {
	return h.bot.SendMessageWithReply(ctx.ChatID, text, ctx.MessageID)
}

// SendTyping sends typing action
func (h *Handler) SendTyping(chatID int64) error {
	return h.bot.SendTyping(chatID)
}

// ParseCaption extracts caption from a message
func ParseCaption(msg *tgbotapi.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	return msg.Text
}

func mediaType(msg *tgbotapi.Message) string {
	switch {
	case msg.Photo != nil:
		return "photo"
	case msg.Video != nil:
		return "video"
	case msg.Audio != nil:
		return "audio"
	case msg.Document != nil:
		return "document"
	case msg.Voice != nil:
		return "voice"
	case msg.Sticker != nil:
		return "sticker"
	default:
		return ""
	}
}
