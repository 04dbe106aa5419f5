package daemon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/obsidian"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/harun/ctx/pkg/trello"
)

// fakeTasks is an in-memory task tracker
type fakeTasks struct {
	mu       sync.Mutex
	cards    map[string]*trello.Card
	archived []string
	fail     error
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{
		cards: map[string]*trello.Card{
			"c1": {ID: "c1", Name: "Dentist", IDList: "inbox"},
		},
	}
}

func (f *fakeTasks) CreateCard(ctx context.Context, card trello.NewCard) (*trello.Card, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTasks) Boards(ctx context.Context) ([]trello.Board, error) {
	return []trello.Board{{ID: "b1", Name: "Personal"}}, nil
}

func (f *fakeTasks) Lists(ctx context.Context, boardID string) ([]trello.List, error) {
	return nil, nil
}

func (f *fakeTasks) Cards(ctx context.Context, listID string) ([]trello.Card, error) {
	return nil, nil
}

func (f *fakeTasks) MoveCard(ctx context.Context, cardID, targetListID string) (*trello.Card, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTasks) ArchiveCard(ctx context.Context, cardID string) (*trello.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail != nil {
		return nil, f.fail
	}
	card, ok := f.cards[cardID]
	if !ok {
		return nil, errors.New("card not found")
	}
	card.Closed = true
	f.archived = append(f.archived, cardID)
	return card, nil
}

func (f *fakeTasks) SetDue(ctx context.Context, cardID string, due time.Time) (*trello.Card, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTasks) archivedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.archived...)
}

type fakeNotes struct{}

func (fakeNotes) AppendToDaily(ctx context.Context, text string) error { return nil }
func (fakeNotes) ReadDaily(ctx context.Context) (string, error)         { return "", nil }
func (fakeNotes) Search(ctx context.Context, query string) ([]obsidian.Match, error) {
	return nil, nil
}

// scriptedRunner stands in for the agent. Messages starting with
// "archive" call archive_card the way the model would.
type scriptedRunner struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (r *scriptedRunner) Run(ctx context.Context, message string, tools agent.ToolExecutor) (string, error) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()

	if r.err != nil {
		return "", r.err
	}

	if strings.HasPrefix(message, "archive") {
		outcome := tools.Execute(ctx, toolexecutor.ToolArchiveCard, map[string]interface{}{
			"card_id": "c1",
			"name":    "Dentist",
		})
		return outcome.Message, nil
	}

	return "echo: " + message, nil
}

func (r *scriptedRunner) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
