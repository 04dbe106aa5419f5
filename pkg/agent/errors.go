package agent

import (
	"errors"
	"fmt"
)

// Error codes returned by Run
const (
	CodeAPI       = "API_ERROR"
	CodeAgent     = "AGENT_ERROR"
	CodeLoopLimit = "AGENT_LOOP_LIMIT"
)

// Error is an orchestrator-level failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts an orchestrator error from an error chain
func AsError(err error) (*Error, bool) {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr, true
	}
	return nil, false
}
