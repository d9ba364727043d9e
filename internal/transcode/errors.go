package transcode

import "fmt"

// Error reports a value that cannot be converted between the native and the
// flat representation. It aborts the whole transcode.
type Error struct {
	Resource string
	// Record is the zero-based index of the offending record, -1 when the
	// failure is not tied to one record.
	Record int
	Field  string
	Value  string
	Err    error
}

func (e *Error) Error() string {
	loc := e.Resource
	if e.Record >= 0 {
		loc = fmt.Sprintf("%s record %d", e.Resource, e.Record+1)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q value %q: %v", loc, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", loc, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
