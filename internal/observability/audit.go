package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harun/ctx/internal/tracing"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Approval statuses, in the order a confirmation moves through them
const (
	ApprovalRequested = "requested"
	ApprovalApproved  = "approved"
	ApprovalCancelled = "cancelled"
	ApprovalDropped   = "dropped"
)

// ApprovalEvent is one step in the life of a destructive-action confirmation
type ApprovalEvent struct {
	ConversationID int64
	Tool           string
	Status         string
	TargetID       string
	Description    string
}

// AuditTrail writes approval events as JSON lines
type AuditTrail struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
	now    func() time.Time
}

var trail atomic.Pointer[AuditTrail]

// NewAuditTrail creates a trail writing to w
func NewAuditTrail(w io.Writer) *AuditTrail {
	return &AuditTrail{
		logger: zerolog.New(w),
		now:    time.Now,
	}
}

// Audit returns the process audit trail. It writes to stderr until
// OpenAuditFile is called.
func Audit() *AuditTrail {
	if a := trail.Load(); a != nil {
		return a
	}
	trail.CompareAndSwap(nil, NewAuditTrail(os.Stderr))
	return trail.Load()
}

// OpenAuditFile points the process audit trail at a rotated file. The
// previous trail is closed.
func OpenAuditFile(path string) error {
	if path == "" {
		return fmt.Errorf("audit file path is required")
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		Compress:   true,
	}
	next := NewAuditTrail(file)
	next.closer = file

	if prev := trail.Swap(next); prev != nil {
		return prev.Close()
	}
	return nil
}

// Approval records one approval event
func (a *AuditTrail) Approval(ctx context.Context, ev ApprovalEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("event_type", "approval").
		Time("timestamp", a.now()).
		Int64("conversation_id", ev.ConversationID).
		Str("tool", ev.Tool).
		Str("status", ev.Status).
		Str("target_id", ev.TargetID)
	if ev.Description != "" {
		entry = entry.Str("description", ev.Description)
	}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		entry = entry.Str("trace_id", traceID)
	}
	entry.Send()
}

// Close closes the underlying file, if any. Later events are discarded.
func (a *AuditTrail) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger = zerolog.Nop()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// RecordApproval counts an approval event and writes it to the audit trail
func RecordApproval(ctx context.Context, ev ApprovalEvent) {
	RecordConfirmation(ev.Status)
	Audit().Approval(ctx, ev)
}
