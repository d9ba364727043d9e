package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/qsync/qsync/internal/types"
)

// WriteJSON writes buf as an indented array of flat objects. Non-ASCII text
// and HTML characters are written as is.
func WriteJSON(w io.Writer, buf types.Buffer) error {
	if buf == nil {
		buf = types.Buffer{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(buf)
}

// ReadJSON accepts an array of flat objects or a single object.
func ReadJSON(r io.Reader) (types.Buffer, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, ErrEmptyFile
	}
	if b[0] == '{' {
		rec := types.NewRecord()
		if err := json.Unmarshal(b, rec); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return types.Buffer{rec}, nil
	}
	var buf types.Buffer
	if err := json.Unmarshal(b, &buf); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return buf, nil
}

// SaveJSON writes buf to path.
func SaveJSON(path string, buf types.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write the JSON into file: %w", err)
	}
	if err := WriteJSON(f, buf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadJSON reads records from path.
func LoadJSON(path string) (types.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}
