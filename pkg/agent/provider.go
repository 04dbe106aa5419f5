package agent

import (
	"context"
	"fmt"
)

// CompletionClient is the language model completion endpoint
type CompletionClient interface {
	// Complete returns one assistant turn for the conversation so far
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// APIError is a structured failure reported by the completion endpoint.
// Errors of any other type are treated as transport failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("completion API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion API error (status %d)", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
