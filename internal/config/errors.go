package config

import "fmt"

// Error reports unusable configuration or command line input. It is always
// fatal.
type Error struct {
	Msg string
	Err error
}

// Errorf builds an *Error.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }
