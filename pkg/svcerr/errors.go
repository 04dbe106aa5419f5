// Package svcerr defines the typed failure returned by external service clients.
//
// Clients return *Error for every failure the caller is expected to report back
// (network, API status, malformed payload, filesystem). Anything else escaping a
// client is treated as a fault by the caller.
package svcerr

import (
	"errors"
	"fmt"
)

// Error codes shared by the service clients
const (
	CodeNetwork    = "NETWORK_ERROR"
	CodeAPI        = "API_ERROR"
	CodeParse      = "PARSE_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeWrite      = "WRITE_ERROR"
	CodeRead       = "READ_ERROR"
)

// Error is a typed service failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// New creates a service error
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a service error that keeps the underlying cause
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// As extracts a service error from an error chain
func As(err error) (*Error, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
