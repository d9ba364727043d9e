package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qsync/qsync/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	aliases := map[string]string{"failed_logins": "SELECT * FROM events LAST 1 HOURS"}
	resolve := func(name string) (string, error) {
		if q, ok := aliases[name]; ok {
			return q, nil
		}
		return "", fmt.Errorf("no query named %q", name)
	}

	s, err := Classify("SELECT sourceip FROM events", resolve)
	require.NoError(t, err)
	assert.Equal(t, Expression, s.Kind)
	assert.Equal(t, "SELECT sourceip FROM events", s.Value)

	s, err = Classify("id:1234", resolve)
	require.NoError(t, err)
	assert.Equal(t, SavedSearch, s.Kind)
	assert.Equal(t, "1234", s.Value)

	s, err = Classify("failed_logins", resolve)
	require.NoError(t, err)
	assert.Equal(t, Expression, s.Kind)
	assert.Equal(t, aliases["failed_logins"], s.Value)

	unused := func(name string) (string, error) {
		t.Fatalf("alias lookup for %q", name)
		return "", nil
	}
	for input, want := range map[string]string{
		"id=77":   "77",
		"ID 5":    "5",
		"id42":    "2",
		"ID_42":   "42",
		"idfoo":   "oo",
		"id:abcd": "abcd",
	} {
		s, err = Classify(input, unused)
		require.NoError(t, err, input)
		assert.Equal(t, SavedSearch, s.Kind, input)
		assert.Equal(t, want, s.Value, input)
	}
	_, err = Classify("id:", unused)
	assert.Error(t, err)

	_, err = Classify("unknown_alias", resolve)
	assert.Error(t, err)
	_, err = Classify("  ", resolve)
	assert.Error(t, err)
}

func TestSubmission_Query(t *testing.T) {
	assert.Equal(t, "query_expression=select%20%2A%20from%20events", Submission{Kind: Expression, Value: "select * from events"}.Query())
	assert.Equal(t, "saved_search_id=42", Submission{Kind: SavedSearch, Value: "42"}.Query())
}

// fakeSearches serves a search whose status walks through statuses.
type fakeSearches struct {
	statuses    []string
	statusCalls atomic.Int32
	submitQuery string
}

func (f *fakeSearches) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/ariel/searches":
			f.submitQuery = r.URL.RawQuery
			_, _ = w.Write([]byte(`{"search_id": "s-1", "status": "WAIT"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/ariel/searches/s-1":
			n := int(f.statusCalls.Add(1)) - 1
			st := f.statuses[len(f.statuses)-1]
			if n < len(f.statuses) {
				st = f.statuses[n]
			}
			fmt.Fprintf(w, `{"search_id": "s-1", "status": %q, "progress": %d, "query_execution_time": 1500}`, st, (n+1)*100/len(f.statuses))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newPoller(t *testing.T, f *fakeSearches) *Poller {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c, err := transport.NewClient(transport.Config{BaseURL: srv.URL + transport.BasePath, Token: "tok"})
	require.NoError(t, err)
	return &Poller{Client: c, Endpoint: "ariel/searches", Interval: time.Millisecond}
}

func TestRun_PollsUntilCompleted(t *testing.T) {
	f := &fakeSearches{statuses: []string{"WAIT", "EXECUTE", "COMPLETED"}}
	p := newPoller(t, f)
	var seen []Status
	p.Progress = func(j Job) { seen = append(seen, j.Status) }

	job, err := p.Run(context.Background(), Submission{Kind: Expression, Value: "select 1"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.statusCalls.Load())
	assert.Equal(t, []Status{StatusWait, StatusExecute, StatusCompleted}, seen)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, 1500*time.Millisecond, job.ExecutionTime)
	assert.Equal(t, "ariel/searches/s-1/results", job.ResultsPath)
	assert.True(t, strings.HasPrefix(f.submitQuery, "query_expression="))
}

func TestRun_ErrorStatusStillReturnsResults(t *testing.T) {
	f := &fakeSearches{statuses: []string{"EXECUTE", "ERROR"}}
	p := newPoller(t, f)
	job, err := p.Run(context.Background(), Submission{Kind: SavedSearch, Value: "7"})
	require.NoError(t, err)
	assert.Equal(t, StatusError, job.Status)
	assert.Equal(t, "ariel/searches/s-1/results", job.ResultsPath)
	assert.Equal(t, "saved_search_id=7", f.submitQuery)
}

func TestRun_Timeout(t *testing.T) {
	f := &fakeSearches{statuses: []string{"EXECUTE"}}
	p := newPoller(t, f)
	p.Interval = 5 * time.Millisecond
	p.Timeout = 30 * time.Millisecond
	_, err := p.Run(context.Background(), Submission{Kind: Expression, Value: "select 1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), err.Error())
}

func TestRun_Cancel(t *testing.T) {
	f := &fakeSearches{statuses: []string{"WAIT"}}
	p := newPoller(t, f)
	p.Interval = time.Hour
	p.Timeout = -1
	ctx, cancel := context.WithCancel(context.Background())
	p.Progress = func(Job) { cancel() }
	_, err := p.Run(ctx, Submission{Kind: Expression, Value: "select 1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_SubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()
	c, err := transport.NewClient(transport.Config{BaseURL: srv.URL + transport.BasePath})
	require.NoError(t, err)
	p := &Poller{Client: c, Endpoint: "ariel/searches"}
	_, err = p.Run(context.Background(), Submission{Kind: Expression, Value: "select"})
	var te *transport.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCanceled, StatusError} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []Status{StatusWait, StatusExecute, StatusSorting, ""} {
		assert.False(t, s.Terminal(), s)
	}
}
