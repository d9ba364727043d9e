package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qsync/qsync/internal/types"
)

const (
	// Comma is the default CSV delimiter.
	Comma = ','
	// Tab is used with -t.
	Tab = '\t'

	bom = "\ufeff"
)

// ErrEmptyFile is returned when a source file holds no records.
var ErrEmptyFile = errors.New("file holds no records")

// Header returns the union of field names across buf in first-seen order.
func Header(buf types.Buffer) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range buf {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// WriteCSV writes buf with a header row. Fields missing from a record are
// written as empty cells.
func WriteCSV(w io.Writer, buf types.Buffer, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	header := Header(buf)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range buf {
		for i, k := range header {
			row[i] = rec.Text(k)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a header row followed by data rows. Short rows leave the
// trailing fields empty; cells beyond the header are dropped.
func ReadCSV(r io.Reader, delim rune) (types.Buffer, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var buf types.Buffer
	for line := 2; ; line++ {
		cells, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(cells) == 1 && cells[0] == "" {
			continue
		}
		rec := types.NewRecord()
		for i, k := range header {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			rec.Set(k, v)
		}
		buf = append(buf, rec)
	}
	return buf, nil
}

// SaveCSV writes buf to path.
func SaveCSV(path string, buf types.Buffer, delim rune) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot write the CSV into file: %w", err)
	}
	if err := WriteCSV(f, buf, delim); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadCSV reads records from path.
func LoadCSV(path string, delim rune) (types.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf, err := ReadCSV(f, delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}
