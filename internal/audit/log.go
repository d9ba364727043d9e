// Package audit keeps a JSON lines history of qsync runs.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/cespare/xxhash/v2"

	"github.com/qsync/qsync/internal/types"
)

// Record is one history line.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"`
	Resource  string    `json:"resource"`
	Name      string    `json:"name,omitempty"`
	Host      string    `json:"host"`
	Records   int       `json:"records"`
	Requests  int       `json:"requests,omitempty"`
	Duration  string    `json:"duration"`
	// Digest is the xxhash64 of the buffer's JSON encoding, so two runs
	// that moved the same data can be recognized.
	Digest string `json:"digest,omitempty"`
	Error  string `json:"error,omitempty"`
}

// History is an append-only JSONL file.
type History struct {
	path string
}

// DefaultPath is $XDG_STATE_HOME/qsync/history.jsonl.
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "qsync", "history.jsonl")
}

// NewHistory returns a history stored at path; empty uses DefaultPath.
func NewHistory(path string) *History {
	if path == "" {
		path = DefaultPath()
	}
	return &History{path: path}
}

// Path returns the backing file.
func (h *History) Path() string { return h.path }

// LoadHistory returns the records newest first. A missing file is an empty
// history; undecodable lines are skipped.
func (h *History) LoadHistory() ([]Record, error) {
	f, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	var records []Record
	decoder := json.NewDecoder(f)
	for decoder.More() {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Log appends record, filling RunID and Timestamp when unset.
func (h *History) Log(record Record) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.RunID == "" {
		record.RunID = "run_" + strconv.FormatInt(record.Timestamp.UnixNano(), 36)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	// connection hosts and table names are not for other users
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(record); err != nil {
		return fmt.Errorf("failed to write history record: %w", err)
	}
	return nil
}

// DeleteRecord removes the record at index, counted newest first as
// returned by LoadHistory.
func (h *History) DeleteRecord(index int) error {
	records, err := h.LoadHistory()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(records) {
		return fmt.Errorf("invalid index: %d", index)
	}
	records = append(records[:index], records[index+1:]...)

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to rewrite history: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("failed to write history record: %w", err)
		}
	}
	return nil
}

// Digest hashes the JSON encoding of buf. An empty buffer has no digest.
func Digest(buf types.Buffer) string {
	if len(buf) == 0 {
		return ""
	}
	b, err := json.Marshal(buf)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// NewRecord builds a history record for a finished run. runErr, when set,
// is stored as text.
func NewRecord(operation, resource, name, host string, buf types.Buffer, records, requests int, duration time.Duration, runErr error) Record {
	r := Record{
		Timestamp: time.Now(),
		Operation: operation,
		Resource:  resource,
		Name:      name,
		Host:      host,
		Records:   records,
		Requests:  requests,
		Duration:  duration.Round(time.Millisecond).String(),
		Digest:    Digest(buf),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}
