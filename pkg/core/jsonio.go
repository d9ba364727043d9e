package core

import (
	"io"

	"github.com/qsync/qsync/internal/report"
)

// MarshalRecords pretty-prints records as a JSON array for humans or
// pipelines.
func MarshalRecords(w io.Writer, buf Buffer) error {
	return report.WriteJSON(w, buf)
}

// UnmarshalRecords decodes a JSON array of flat objects (or one object).
func UnmarshalRecords(r io.Reader) (Buffer, error) {
	return report.ReadJSON(r)
}
