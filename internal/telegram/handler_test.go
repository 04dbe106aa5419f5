package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessage_TextMessage(t *testing.T) {
	bot, _ := createTestBot(t, nil)
	handler := NewHandler(bot)

	var received MessageContext
	handler.SetOnMessage(func(ctx MessageContext) error {
		received = ctx
		return nil
	})

	err := handler.HandleMessage(textUpdate(1, 67890, "  add milk  "))
	require.NoError(t, err)
	assert.Equal(t, int64(67890), received.ChatID)
	assert.Equal(t, int64(12345), received.UserID)
	assert.Equal(t, "harun", received.Username)
	assert.Equal(t, "add milk", received.Text)
	assert.False(t, received.IsGroup)
}

func TestHandleMessage_CaptionStandsInForText(t *testing.T) {
	bot, _ := createTestBot(t, nil)
	handler := NewHandler(bot)

	var received MessageContext
	handler.SetOnMessage(func(ctx MessageContext) error {
		received = ctx
		return nil
	})

	update := textUpdate(1, 42, "")
	update.Message.Photo = []tgbotapi.PhotoSize{{FileID: "p1"}}
	update.Message.Caption = "receipt for taxes"

	require.NoError(t, handler.HandleMessage(update))
	assert.Equal(t, "receipt for taxes", received.Text)
	assert.Equal(t, "photo", received.MediaType)
}

func TestHandleMessage_MediaWithoutText(t *testing.T) {
	bot, api := createTestBot(t, nil)
	handler := NewHandler(bot)

	called := false
	handler.SetOnMessage(func(ctx MessageContext) error {
		called = true
		return nil
	})

	update := textUpdate(1, 42, "")
	update.Message.Voice = &tgbotapi.Voice{FileID: "v1"}

	require.NoError(t, handler.HandleMessage(update))
	assert.False(t, called)
	assert.Equal(t, []string{TextOnlyReply}, api.texts())
}

func TestHandleMessage_NilMessage(t *testing.T) {
	bot, _ := createTestBot(t, nil)
	handler := NewHandler(bot)

	assert.NoError(t, handler.HandleMessage(tgbotapi.Update{}))
}
