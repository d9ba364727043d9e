// Package poller submits asynchronous searches and waits for them to reach a
// terminal state.
package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/qsync/qsync/internal/logging"
	"github.com/qsync/qsync/internal/transport"
)

const (
	// DefaultInterval is the wait between two status checks.
	DefaultInterval = time.Second
	// DefaultTimeout bounds the whole wait.
	DefaultTimeout = 30 * time.Minute
)

// ErrTimeout is returned when a search is still running after Timeout.
var ErrTimeout = errors.New("search did not finish in time")

// Status is the server-side state of a search.
type Status string

const (
	StatusWait      Status = "WAIT"
	StatusExecute   Status = "EXECUTE"
	StatusSorting   Status = "SORTING"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
	StatusError     Status = "ERROR"
)

// Terminal reports whether polling stops at s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusError:
		return true
	}
	return false
}

// Kind tells how a submission identifies its search.
type Kind int

const (
	// Expression submits a query text.
	Expression Kind = iota + 1
	// SavedSearch runs a search stored on the server.
	SavedSearch
)

// Submission is what gets posted to start a search.
type Submission struct {
	Kind  Kind
	Value string
}

// Query returns the escaped query string for the submit call.
func (s Submission) Query() string {
	if s.Kind == SavedSearch {
		return "saved_search_id=" + transport.Quote(s.Value, "")
	}
	return "query_expression=" + transport.Quote(s.Value, "")
}

// Resolver maps a named query alias to its query text.
type Resolver func(name string) (string, error)

// Classify turns user input into a submission: text starting with "select"
// is a query expression, text starting with "id" a saved search whose id
// follows the third character ("id:42", "id=42"), anything else an alias
// looked up through resolve.
func Classify(input string, resolve Resolver) (Submission, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Submission{}, errors.New("empty query")
	}
	lower := strings.ToLower(input)
	switch {
	case strings.HasPrefix(lower, "select"):
		return Submission{Kind: Expression, Value: input}, nil
	case strings.HasPrefix(lower, "id"):
		if len(input) <= 3 {
			return Submission{}, fmt.Errorf("saved search %q has no id", input)
		}
		return Submission{Kind: SavedSearch, Value: strings.TrimSpace(input[3:])}, nil
	}
	if resolve == nil {
		return Submission{}, fmt.Errorf("query %q is neither a select statement nor a saved search id", input)
	}
	q, err := resolve(input)
	if err != nil {
		return Submission{}, err
	}
	return Submission{Kind: Expression, Value: q}, nil
}

// Job is the state of one submitted search.
type Job struct {
	Submission    Submission
	SearchID      string
	Status        Status
	Progress      int
	ExecutionTime time.Duration
	// ResultsPath is where the results can be fetched once terminal.
	ResultsPath string
}

type statusReply struct {
	SearchID           string `json:"search_id"`
	Status             Status `json:"status"`
	Progress           int    `json:"progress"`
	QueryExecutionTime int64  `json:"query_execution_time"`
}

// Doer is the part of the transport the poller needs.
type Doer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Poller drives one search from submission to a terminal status.
type Poller struct {
	Client Doer
	// Endpoint is the searches collection, e.g. "ariel/searches".
	Endpoint string
	// Interval between status checks; DefaultInterval when zero.
	Interval time.Duration
	// Timeout bounds the wait; DefaultTimeout when zero, negative for none.
	Timeout time.Duration
	// Progress, when set, is called after every status check.
	Progress func(Job)
}

// Run submits sub and polls until the search is COMPLETED, CANCELED or
// ERROR. A search ending in CANCELED or ERROR is not an error here: the
// caller still fetches ResultsPath.
func (p *Poller) Run(ctx context.Context, sub Submission) (*Job, error) {
	log := logging.GetLogger("poller")
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	endpoint := strings.TrimSuffix(p.Endpoint, "/")

	resp, err := p.Client.Do(ctx, transport.Request{Method: http.MethodPost, Path: endpoint + "?" + sub.Query()})
	if err != nil {
		return nil, p.wrap(ctx, timeout, fmt.Errorf("submit search: %w", err))
	}
	var submitted statusReply
	if err := resp.JSON(&submitted); err != nil {
		return nil, fmt.Errorf("decode search submission: %w", err)
	}
	if submitted.SearchID == "" {
		return nil, errors.New("server did not return a search id")
	}
	job := &Job{Submission: sub, SearchID: submitted.SearchID, Status: submitted.Status}
	log.Debug().Str("search_id", job.SearchID).Msg("Search submitted")

	statusPath := endpoint + "/" + transport.Quote(job.SearchID, "")
	for {
		resp, err := p.Client.Do(ctx, transport.Request{Method: http.MethodGet, Path: statusPath})
		if err != nil {
			return nil, p.wrap(ctx, timeout, fmt.Errorf("search %s status: %w", job.SearchID, err))
		}
		var st statusReply
		if err := resp.JSON(&st); err != nil {
			return nil, fmt.Errorf("decode search status: %w", err)
		}
		job.Status, job.Progress = st.Status, st.Progress
		job.ExecutionTime = time.Duration(st.QueryExecutionTime) * time.Millisecond
		log.Info().Int("progress", job.Progress).Str("status", string(job.Status)).Msgf("Progress - %d%%", job.Progress)
		if p.Progress != nil {
			p.Progress(*job)
		}
		if job.Status.Terminal() {
			break
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, p.wrap(ctx, timeout, ctx.Err())
		case <-t.C:
		}
	}

	if job.Status != StatusCompleted {
		log.Warn().Str("search_id", job.SearchID).Str("status", string(job.Status)).Msg("Search ended without completing")
	} else {
		log.Info().Msgf("Search completed. Execution time %.2f seconds", job.ExecutionTime.Seconds())
	}
	job.ResultsPath = statusPath + "/results"
	return job, nil
}

func (p *Poller) wrap(ctx context.Context, timeout time.Duration, err error) error {
	if timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
	}
	return err
}
