package toolexecutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// CreateTaskInput is the input of create_task
type CreateTaskInput struct {
	Name   string `mapstructure:"name"`
	Desc   string `mapstructure:"desc"`
	ListID string `mapstructure:"list_id"`
	Due    string `mapstructure:"due"`
}

// GetListsInput is the input of get_lists
type GetListsInput struct {
	BoardID string `mapstructure:"board_id"`
}

// GetCardsInput is the input of get_cards
type GetCardsInput struct {
	ListID string `mapstructure:"list_id"`
}

// MoveCardInput is the input of move_card
type MoveCardInput struct {
	CardID       string `mapstructure:"card_id"`
	TargetListID string `mapstructure:"target_list_id"`
}

// ArchiveCardInput is the input of archive_card
type ArchiveCardInput struct {
	CardID string `mapstructure:"card_id"`
	Name   string `mapstructure:"name"`
}

// SetDueDateInput is the input of set_due_date
type SetDueDateInput struct {
	CardID  string `mapstructure:"card_id"`
	DueDate string `mapstructure:"due_date"`
}

// AppendNoteInput is the input of append_note
type AppendNoteInput struct {
	NoteText string `mapstructure:"note_text"`
}

// SearchNotesInput is the input of search_notes
type SearchNotesInput struct {
	QueryText string `mapstructure:"query_text"`
}

// NoInput is the input of tools without parameters
type NoInput struct{}

// inputError marks a failure to turn raw input into a typed value
type inputError struct {
	err error
}

func (e *inputError) Error() string {
	return e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}

func invalidInput(format string, args ...interface{}) error {
	return &inputError{err: fmt.Errorf(format, args...)}
}

func decodeInput[T any](raw map[string]interface{}) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(raw); err != nil {
		return out, &inputError{err: err}
	}
	return out, nil
}

// handler runs one tool for a conversation
type handler func(ctx context.Context, conversationID int64, raw map[string]interface{}) (Outcome, error)

// typed binds a handler to its input type so business logic only sees decoded values
func typed[T any](fn func(ctx context.Context, conversationID int64, in T) (Outcome, error)) handler {
	return func(ctx context.Context, conversationID int64, raw map[string]interface{}) (Outcome, error) {
		in, err := decodeInput[T](raw)
		if err != nil {
			return Outcome{}, err
		}
		return fn(ctx, conversationID, in)
	}
}

// parseDate accepts YYYY-MM-DD (midnight UTC) or an RFC 3339 timestamp
func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, invalidInput("%s must be YYYY-MM-DD or RFC 3339, got %q", field, value)
}
