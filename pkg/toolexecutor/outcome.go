package toolexecutor

import "fmt"

// OutcomeKind tells the orchestrator whether to continue the run
type OutcomeKind int

const (
	// OutcomeSuccess is fed back to the model as a tool result
	OutcomeSuccess OutcomeKind = iota
	// OutcomeConfirmationRequired ends the run with Message as the reply
	OutcomeConfirmationRequired
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeConfirmationRequired:
		return "confirmation_required"
	default:
		return "unknown"
	}
}

// Outcome is the result of one tool invocation
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// Success creates a success outcome
func Success(message string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Message: message}
}

// ConfirmationRequired creates an outcome that asks the user for yes/no
func ConfirmationRequired(message string) Outcome {
	return Outcome{Kind: OutcomeConfirmationRequired, Message: message}
}

// FailureKind classifies tool failures
type FailureKind int

const (
	FailureParsing FailureKind = iota
	FailureService
	FailureUnknownTool
	FailureToolFault
)

func (k FailureKind) String() string {
	switch k {
	case FailureParsing:
		return "parsing_error"
	case FailureService:
		return "service_error"
	case FailureUnknownTool:
		return "unknown_tool"
	case FailureToolFault:
		return "tool_error"
	default:
		return "unknown"
	}
}

// Failure is a tool failure kept as a value until it is shown to the model
type Failure struct {
	Kind   FailureKind
	Tool   string
	Code   string // service error code, FailureService only
	Detail string
}

// Message renders the failure as the in-band text the model reads
func (f Failure) Message() string {
	switch f.Kind {
	case FailureParsing:
		return "PARSING_ERROR: " + f.Detail
	case FailureService:
		return fmt.Sprintf("SERVICE_ERROR: %s, %s", f.Code, f.Detail)
	case FailureUnknownTool:
		return "Unknown tool: " + f.Tool
	default:
		return fmt.Sprintf("Tool error: %s failed - %s", f.Tool, f.Detail)
	}
}

// Outcome folds the failure into a success outcome
func (f Failure) Outcome() Outcome {
	return Success(f.Message())
}
