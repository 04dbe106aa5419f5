package daemon

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/ctx/internal/observability"
	"github.com/harun/ctx/internal/tracing"
	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// FailureReply is sent when a run or a confirmed action fails
const FailureReply = "Sorry, something went wrong. Please try again."

// AgentRunner turns one message into a reply
type AgentRunner interface {
	Run(ctx context.Context, message string, tools agent.ToolExecutor) (string, error)
}

// ToolBinder binds tool execution to a conversation and resolves confirmed actions
type ToolBinder interface {
	Bind(conversationID int64) *toolexecutor.Session
	ResolveApproval(ctx context.Context, approval toolexecutor.PendingApproval) (string, error)
}

// FrontDoor is the single entry point for a user message.
// It settles a pending confirmation first and otherwise runs the agent.
type FrontDoor struct {
	approvals *toolexecutor.ApprovalStore
	tools     ToolBinder
	runner    AgentRunner
	logger    zerolog.Logger
}

// NewFrontDoor creates a front door
func NewFrontDoor(approvals *toolexecutor.ApprovalStore, tools ToolBinder, runner AgentRunner, logger zerolog.Logger) (*FrontDoor, error) {
	if approvals == nil {
		return nil, fmt.Errorf("approval store is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("agent runner is required")
	}

	return &FrontDoor{
		approvals: approvals,
		tools:     tools,
		runner:    runner,
		logger:    logger.With().Str("component", "frontdoor").Logger(),
	}, nil
}

// Handle returns the reply for one message in a conversation
func (f *FrontDoor) Handle(ctx context.Context, conversationID int64, text string) string {
	logger := tracing.LoggerFromContext(ctx, f.logger)

	// Take always clears, so a stale approval never survives the next message
	approval, pending := f.approvals.Take(conversationID)
	if pending {
		observability.SetPendingApprovals(f.approvals.Len())
		answer := strings.TrimSpace(text)

		switch {
		case strings.EqualFold(answer, "yes"):
			observability.RecordApproval(ctx, approvalEvent(conversationID, approval, observability.ApprovalApproved))
			reply, err := f.tools.ResolveApproval(ctx, approval)
			if err != nil {
				logger.Error().Err(err).
					Str("tool", approval.ToolName).
					Str("target_id", approval.TargetID).
					Msg("Confirmed action failed")
				return FailureReply
			}
			return reply

		case strings.EqualFold(answer, "no"):
			observability.RecordApproval(ctx, approvalEvent(conversationID, approval, observability.ApprovalCancelled))
			return fmt.Sprintf("Cancelled. '%s' was not archived.", approval.Description)

		default:
			f.drop(ctx, conversationID, approval)
		}
	}

	reply, err := f.runner.Run(ctx, text, f.tools.Bind(conversationID))
	if err != nil {
		event := logger.Error().Err(err)
		if agentErr, ok := agent.AsError(err); ok {
			event = event.Str("code", agentErr.Code)
		}
		event.Msg("Agent run failed")
		return FailureReply
	}

	return reply
}

// Discard clears a pending confirmation because the conversation moved on
// with a message the agent does not see, such as a sticker or /help
func (f *FrontDoor) Discard(ctx context.Context, conversationID int64) {
	if approval, pending := f.approvals.Take(conversationID); pending {
		observability.SetPendingApprovals(f.approvals.Len())
		f.drop(ctx, conversationID, approval)
	}
}

func (f *FrontDoor) drop(ctx context.Context, conversationID int64, approval toolexecutor.PendingApproval) {
	observability.RecordApproval(ctx, approvalEvent(conversationID, approval, observability.ApprovalDropped))
	logger := tracing.LoggerFromContext(ctx, f.logger)
	logger.Info().
		Str("tool", approval.ToolName).
		Str("target_id", approval.TargetID).
		Msg("Pending confirmation dropped by a new message")
}

// Cancel drops the pending confirmation of a conversation without running
// the agent
func (f *FrontDoor) Cancel(ctx context.Context, conversationID int64) string {
	approval, pending := f.approvals.Take(conversationID)
	if !pending {
		return "Nothing to cancel."
	}
	observability.SetPendingApprovals(f.approvals.Len())
	observability.RecordApproval(ctx, approvalEvent(conversationID, approval, observability.ApprovalCancelled))
	return fmt.Sprintf("Cancelled. '%s' was not archived.", approval.Description)
}

func approvalEvent(conversationID int64, approval toolexecutor.PendingApproval, status string) observability.ApprovalEvent {
	return observability.ApprovalEvent{
		ConversationID: conversationID,
		Tool:           approval.ToolName,
		Status:         status,
		TargetID:       approval.TargetID,
		Description:    approval.Description,
	}
}

// Pending reports whether the conversation awaits a yes/no reply
func (f *FrontDoor) Pending(conversationID int64) bool {
	return f.approvals.Pending(conversationID)
}
