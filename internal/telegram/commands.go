package telegram

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// HelpText lists what the assistant understands
const HelpText = `I keep your Trello board and Obsidian daily note in sync with chat.

Try:
- "add buy milk to my list, due friday"
- "what's on my board?"
- "move the dentist card to Done"
- "note: call mom back"
- "what did I capture today?"

Archiving a card asks first. Reply yes or no, or send /cancel.`

// Commands dispatches slash commands
type Commands struct {
	bot      *Bot
	logger   zerolog.Logger
	handlers map[string]command
	respond  Responder
}

type command struct {
	description string
	run         CommandFunc
}

// CommandFunc is a function that handles a command
type CommandFunc func(CommandContext) error

// CommandContext contains command metadata
type CommandContext struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Command   string
	Args      []string
	RawArgs   string
}

// NewCommands creates a command handler with /start and /help registered
func NewCommands(bot *Bot) *Commands {
	c := &Commands{
		bot:      bot,
		logger:   bot.logger.With().Str("module", "commands").Logger(),
		handlers: make(map[string]command),
		respond:  bot.SendMessageWithReply,
	}

	c.Register("start", "Introduction", func(ctx CommandContext) error {
		return c.Reply(ctx, "Hi! Tell me what to capture or ask about your board.\n\n"+HelpText)
	})
	c.Register("help", "What I can do", func(ctx CommandContext) error {
		return c.Reply(ctx, HelpText)
	})

	return c
}

// HandleCommand processes incoming commands
func (c *Commands) HandleCommand(update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	msg := update.Message
	name := msg.Command()
	args := strings.Fields(msg.CommandArguments())

	ctx := CommandContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Command:   name,
		Args:      args,
		RawArgs:   msg.CommandArguments(),
	}
	if msg.From != nil {
		ctx.UserID = msg.From.ID
	}

	c.logger.Debug().
		Int64("chat_id", ctx.ChatID).
		Str("command", name).
		Strs("args", args).
		Msg("Command received")

	handler, exists := c.handlers[name]
	if !exists {
		return c.sendUnknownCommand(ctx)
	}

	return handler.run(ctx)
}

// Register registers a command handler. The description is shown in the
// Telegram command menu.
func (c *Commands) Register(name, description string, handler CommandFunc) {
	c.handlers[name] = command{description: description, run: handler}
	c.logger.Debug().Str("command", name).Msg("Command registered")
}

// Publish sets the bot's command menu to the registered commands
func (c *Commands) Publish() error {
	names := c.GetRegisteredCommands()
	commands := make([]tgbotapi.BotCommand, 0, len(names))
	for _, name := range names {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     name,
			Description: c.handlers[name].description,
		})
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := c.bot.api.Request(cfg); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", len(commands)).Msg("Bot commands updated")
	return nil
}

// sendUnknownCommand sends an unknown command response
func (c *Commands) sendUnknownCommand(ctx CommandContext) error {
	return c.Reply(ctx, fmt.Sprintf("Unknown command: /%s. Try /help.", ctx.Command))
}

// SetResponder replaces how canned replies are delivered
func (c *Commands) SetResponder(respond Responder) {
	c.respond = respond
}

// Reply delivers a canned reply through the responder
func (c *Commands) Reply(ctx CommandContext, text string) error {
	return c.respond(ctx.ChatID, text, ctx.MessageID)
}

// SendResponse sends a response to a command directly
func (c *Commands) SendResponse(ctx CommandContext, text string) error {
	return c.bot.SendMessageWithReply(ctx.ChatID, text, ctx.MessageID)
}

// GetRegisteredCommands returns all registered commands, sorted
func (c *Commands) GetRegisteredCommands() []string {
	commands := make([]string, 0, len(c.handlers))
	for cmd := range c.handlers {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}
