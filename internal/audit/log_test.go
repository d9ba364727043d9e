package audit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsync/qsync/internal/types"
)

func TestHistory_LogAndLoadNewestFirst(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "state", "history.jsonl"))

	require.NoError(t, h.Log(Record{Operation: "export", Resource: "networks", Records: 3}))
	require.NoError(t, h.Log(Record{Operation: "import", Resource: "reftable", Name: "users", Records: 1}))

	got, err := h.LoadHistory()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "import", got[0].Operation)
	assert.Equal(t, "users", got[0].Name)
	assert.Equal(t, "export", got[1].Operation)
	assert.NotEmpty(t, got[1].RunID)
	assert.False(t, got[1].Timestamp.IsZero())

	st, err := os.Stat(h.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), st.Mode().Perm())
}

func TestHistory_MissingFileIsEmpty(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "none.jsonl"))
	got, err := h.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory_DeleteRecord(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "history.jsonl"))
	for _, op := range []string{"export", "import", "delete"} {
		require.NoError(t, h.Log(Record{Operation: op}))
	}
	require.NoError(t, h.DeleteRecord(1))

	got, err := h.LoadHistory()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "delete", got[0].Operation)
	assert.Equal(t, "export", got[1].Operation)

	assert.Error(t, h.DeleteRecord(5))
}

func TestDigest(t *testing.T) {
	a := types.Buffer{types.RecordOf("id", "1", "name", "lan")}
	b := types.Buffer{types.RecordOf("id", "1", "name", "lan")}
	c := types.Buffer{types.RecordOf("name", "lan", "id", "1")}

	assert.Len(t, Digest(a), 16)
	assert.Equal(t, Digest(a), Digest(b))
	assert.NotEqual(t, Digest(a), Digest(c), "field order is part of the digest")
	assert.Empty(t, Digest(nil))
}

func TestNewRecord(t *testing.T) {
	buf := types.Buffer{types.RecordOf("id", "1")}
	r := NewRecord("export", "networks", "", "siem", buf, 1, 2, 1500*time.Millisecond, errors.New("boom"))
	assert.Equal(t, "1.5s", r.Duration)
	assert.Equal(t, "boom", r.Error)
	assert.Equal(t, Digest(buf), r.Digest)
	assert.Equal(t, 2, r.Requests)
}
