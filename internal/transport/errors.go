package transport

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when a successful export call has no body.
var ErrEmptyResult = errors.New("result is empty")

// Error is a failed call: either a non-success status or a network failure.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Reason     string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 || e.Reason == "" {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Reason)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }
