package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/internal/tracing"
	"github.com/harun/ctx/pkg/obsidian"
	"github.com/harun/ctx/pkg/svcerr"
	"github.com/harun/ctx/pkg/trello"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/panics"
)

// TaskTracker is the task tracking service used by the card tools
type TaskTracker interface {
	CreateCard(ctx context.Context, card trello.NewCard) (*trello.Card, error)
	Boards(ctx context.Context) ([]trello.Board, error)
	Lists(ctx context.Context, boardID string) ([]trello.List, error)
	Cards(ctx context.Context, listID string) ([]trello.Card, error)
	MoveCard(ctx context.Context, cardID, targetListID string) (*trello.Card, error)
	ArchiveCard(ctx context.Context, cardID string) (*trello.Card, error)
	SetDue(ctx context.Context, cardID string, due time.Time) (*trello.Card, error)
}

// NotesVault is the notes service used by the note tools
type NotesVault interface {
	AppendToDaily(ctx context.Context, text string) error
	ReadDaily(ctx context.Context) (string, error)
	Search(ctx context.Context, query string) ([]obsidian.Match, error)
}

// Config holds executor dependencies
type Config struct {
	Catalog       *Catalog
	Tasks         TaskTracker
	Notes         NotesVault
	Approvals     *ApprovalStore
	DefaultListID string
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Executor dispatches tool calls to the task tracker and notes vault.
// It holds no state of its own beyond the injected approval store.
type Executor struct {
	catalog       *Catalog
	tasks         TaskTracker
	notes         NotesVault
	approvals     *ApprovalStore
	defaultListID string
	now           func() time.Time
	logger        zerolog.Logger
	handlers      map[string]handler
}

// New creates a new Executor
func New(cfg Config) (*Executor, error) {
	if cfg.Tasks == nil {
		return nil, fmt.Errorf("task tracker is required")
	}
	if cfg.Notes == nil {
		return nil, fmt.Errorf("notes vault is required")
	}
	if cfg.Approvals == nil {
		return nil, fmt.Errorf("approval store is required")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Executor{
		catalog:       cfg.Catalog,
		tasks:         cfg.Tasks,
		notes:         cfg.Notes,
		approvals:     cfg.Approvals,
		defaultListID: cfg.DefaultListID,
		now:           cfg.Now,
		logger:        cfg.Logger.With().Str("component", "toolexecutor").Logger(),
	}

	e.handlers = map[string]handler{
		ToolCreateTask:  typed(e.createTask),
		ToolGetBoards:   typed(e.getBoards),
		ToolGetLists:    typed(e.getLists),
		ToolGetCards:    typed(e.getCards),
		ToolMoveCard:    typed(e.moveCard),
		ToolArchiveCard: typed(e.archiveCard),
		ToolSetDueDate:  typed(e.setDueDate),
		ToolAppendNote:  typed(e.appendNote),
		ToolSearchNotes: typed(e.searchNotes),
		ToolReadDaily:   typed(e.readDaily),
	}

	return e, nil
}

// Catalog returns the tool catalog
func (e *Executor) Catalog() *Catalog {
	return e.catalog
}

// Session is an executor bound to one conversation
type Session struct {
	executor       *Executor
	conversationID int64
}

// Bind returns a session whose destructive calls are recorded for conversationID
func (e *Executor) Bind(conversationID int64) *Session {
	return &Session{executor: e, conversationID: conversationID}
}

// ConversationID returns the bound conversation
func (s *Session) ConversationID() int64 {
	return s.conversationID
}

// Execute runs one tool call. Failures never escape: they come back as a
// success outcome carrying the in-band error text.
func (s *Session) Execute(ctx context.Context, name string, input map[string]interface{}) Outcome {
	start := time.Now()
	outcome, failure := s.executor.execute(ctx, s.conversationID, name, input)

	status := outcome.Kind.String()
	logger := tracing.LoggerFromContext(ctx, s.executor.logger)
	if failure != nil {
		status = failure.Kind.String()
		outcome = failure.Outcome()
		logger.Warn().
			Str("tool", name).
			Str("kind", status).
			Str("detail", failure.Detail).
			Msg("Tool execution failed")
	} else {
		logger.Debug().
			Str("tool", name).
			Str("outcome", status).
			Dur("duration", time.Since(start)).
			Msg("Tool execution completed")
	}

	observability.RecordToolExecution(metricToolName(s.executor.catalog, name), status, time.Since(start))
	return outcome
}

// metricToolName keeps model-supplied names out of metric labels
func metricToolName(catalog *Catalog, name string) string {
	if _, known := catalog.Lookup(name); known {
		return name
	}
	return "unknown"
}

func (e *Executor) execute(ctx context.Context, conversationID int64, name string, input map[string]interface{}) (Outcome, *Failure) {
	h, ok := e.handlers[name]
	if _, known := e.catalog.Lookup(name); !known || !ok {
		return Outcome{}, &Failure{Kind: FailureUnknownTool, Tool: name}
	}

	if input == nil {
		input = map[string]interface{}{}
	}
	if err := e.catalog.Validate(name, input); err != nil {
		return Outcome{}, &Failure{Kind: FailureParsing, Tool: name, Detail: err.Error()}
	}

	var (
		outcome Outcome
		err     error
		pc      panics.Catcher
	)
	pc.Try(func() {
		outcome, err = h(ctx, conversationID, input)
	})
	if r := pc.Recovered(); r != nil {
		return Outcome{}, &Failure{Kind: FailureToolFault, Tool: name, Detail: fmt.Sprint(r.Value)}
	}
	if err != nil {
		return Outcome{}, classify(name, err)
	}
	return outcome, nil
}

func classify(tool string, err error) *Failure {
	var inErr *inputError
	if errors.As(err, &inErr) {
		return &Failure{Kind: FailureParsing, Tool: tool, Detail: inErr.Error()}
	}
	if svcErr, ok := svcerr.As(err); ok {
		return &Failure{Kind: FailureService, Tool: tool, Code: svcErr.Code, Detail: svcErr.Message}
	}
	return &Failure{Kind: FailureToolFault, Tool: tool, Detail: err.Error()}
}

func cardMessage(card *trello.Card) string {
	return fmt.Sprintf("Card name: %s, id: %s", card.Name, card.ID)
}

func (e *Executor) createTask(ctx context.Context, _ int64, in CreateTaskInput) (Outcome, error) {
	card := trello.NewCard{
		ListID: in.ListID,
		Name:   in.Name,
		Desc:   in.Desc,
	}
	if card.ListID == "" {
		card.ListID = e.defaultListID
	}
	if in.Due != "" {
		due, err := parseDate("due", in.Due)
		if err != nil {
			return Outcome{}, err
		}
		card.Due = &due
	}

	created, err := e.tasks.CreateCard(ctx, card)
	if err != nil {
		return Outcome{}, err
	}
	return Success(cardMessage(created)), nil
}

func (e *Executor) getBoards(ctx context.Context, _ int64, _ NoInput) (Outcome, error) {
	boards, err := e.tasks.Boards(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(boards) == 0 {
		return Success("No boards found."), nil
	}
	lines := make([]string, 0, len(boards))
	for _, b := range boards {
		lines = append(lines, fmt.Sprintf("- %s (id: %s)", b.Name, b.ID))
	}
	return Success(strings.Join(lines, "\n")), nil
}

func (e *Executor) getLists(ctx context.Context, _ int64, in GetListsInput) (Outcome, error) {
	lists, err := e.tasks.Lists(ctx, in.BoardID)
	if err != nil {
		return Outcome{}, err
	}
	if len(lists) == 0 {
		return Success("No lists found."), nil
	}
	lines := make([]string, 0, len(lists))
	for _, l := range lists {
		lines = append(lines, fmt.Sprintf("- %s (id: %s)", l.Name, l.ID))
	}
	return Success(strings.Join(lines, "\n")), nil
}

func (e *Executor) getCards(ctx context.Context, _ int64, in GetCardsInput) (Outcome, error) {
	cards, err := e.tasks.Cards(ctx, in.ListID)
	if err != nil {
		return Outcome{}, err
	}
	if len(cards) == 0 {
		return Success("No cards found."), nil
	}
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		desc := c.Desc
		if desc == "" {
			desc = "none"
		}
		lines = append(lines, fmt.Sprintf("- %s (id: %s), (desc: %s), (due: %s)", c.Name, c.ID, desc, c.DueString()))
	}
	return Success(strings.Join(lines, "\n")), nil
}

func (e *Executor) moveCard(ctx context.Context, _ int64, in MoveCardInput) (Outcome, error) {
	card, err := e.tasks.MoveCard(ctx, in.CardID, in.TargetListID)
	if err != nil {
		return Outcome{}, err
	}
	return Success(cardMessage(card)), nil
}

// archiveCard defers the archive until the user answers yes
func (e *Executor) archiveCard(ctx context.Context, conversationID int64, in ArchiveCardInput) (Outcome, error) {
	description := in.Name
	if description == "" {
		description = in.CardID
	}

	approval := PendingApproval{
		ToolName:    ToolArchiveCard,
		TargetID:    in.CardID,
		Description: description,
		CreatedAt:   e.now(),
	}
	if replaced := e.approvals.Put(conversationID, approval); replaced {
		e.logger.Info().
			Int64("conversation_id", conversationID).
			Msg("Pending approval replaced by a newer request")
	}

	observability.SetPendingApprovals(e.approvals.Len())
	observability.RecordApproval(ctx, observability.ApprovalEvent{
		ConversationID: conversationID,
		Tool:           ToolArchiveCard,
		Status:         observability.ApprovalRequested,
		TargetID:       in.CardID,
		Description:    description,
	})

	return ConfirmationRequired(fmt.Sprintf("Archive card: '%s'? Reply yes or no.", description)), nil
}

func (e *Executor) setDueDate(ctx context.Context, _ int64, in SetDueDateInput) (Outcome, error) {
	due, err := parseDate("due_date", in.DueDate)
	if err != nil {
		return Outcome{}, err
	}
	card, err := e.tasks.SetDue(ctx, in.CardID, due)
	if err != nil {
		return Outcome{}, err
	}
	return Success(cardMessage(card)), nil
}

func (e *Executor) appendNote(ctx context.Context, _ int64, in AppendNoteInput) (Outcome, error) {
	if err := e.notes.AppendToDaily(ctx, in.NoteText); err != nil {
		return Outcome{}, err
	}
	return Success("Note appended to daily note."), nil
}

func (e *Executor) searchNotes(ctx context.Context, _ int64, in SearchNotesInput) (Outcome, error) {
	matches, err := e.notes.Search(ctx, in.QueryText)
	if err != nil {
		return Outcome{}, err
	}
	if len(matches) == 0 {
		return Success(fmt.Sprintf("No notes matched '%s'.", in.QueryText)), nil
	}
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("- %s:%d: %s", m.Path, m.Line, m.Text))
	}
	return Success("Notes found:\n" + strings.Join(lines, "\n")), nil
}

func (e *Executor) readDaily(ctx context.Context, _ int64, _ NoInput) (Outcome, error) {
	content, err := e.notes.ReadDaily(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return Success("Daily note:\n" + content), nil
}

// ResolveApproval performs a confirmed destructive action and returns the
// reply for the user.
func (e *Executor) ResolveApproval(ctx context.Context, approval PendingApproval) (string, error) {
	switch approval.ToolName {
	case ToolArchiveCard:
		card, err := e.tasks.ArchiveCard(ctx, approval.TargetID)
		if err != nil {
			return "", fmt.Errorf("failed to archive card %s: %w", approval.TargetID, err)
		}
		e.logger.Info().Str("card_id", card.ID).Msg("Card archived")
		return fmt.Sprintf("Archived '%s'.", card.Name), nil
	default:
		return "", fmt.Errorf("no resolver for tool %s", approval.ToolName)
	}
}
