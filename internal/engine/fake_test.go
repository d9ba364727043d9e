package engine

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/qsync/qsync/internal/transport"
	"github.com/stretchr/testify/require"
)

type call struct {
	Method  string
	URI     string
	Body    string
	Header  http.Header
	Version string
}

// fakeAPI answers canned bodies keyed by "METHOD /path" (query ignored) and
// records every call.
type fakeAPI struct {
	mu      sync.Mutex
	replies map[string][]string
	status  map[string]int
	calls   []call
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{replies: map[string][]string{}, status: map[string]int{}}
}

// on queues replies for a route; the last one repeats.
func (f *fakeAPI) on(route string, bodies ...string) *fakeAPI {
	f.replies[route] = append(f.replies[route], bodies...)
	return f
}

func (f *fakeAPI) fail(route string, code int) *fakeAPI {
	f.status[route] = code
	return f
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Method: r.Method, URI: r.URL.RequestURI(), Body: string(b), Header: r.Header.Clone(), Version: r.Header.Get("Version")})

	route := r.Method + " " + strings.TrimPrefix(r.URL.EscapedPath(), "/api/")
	if code, ok := f.status[route]; ok {
		w.WriteHeader(code)
		return
	}
	bodies, ok := f.replies[route]
	if !ok {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `{"message": "no route %s"}`, route)
		}
		return
	}
	_, _ = w.Write([]byte(bodies[0]))
	if len(bodies) > 1 {
		f.replies[route] = bodies[1:]
	}
}

func (f *fakeAPI) callsTo(method, prefix string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && strings.HasPrefix(c.URI, "/api/"+prefix) {
			out = append(out, c)
		}
	}
	return out
}

func newEngine(t *testing.T, f *fakeAPI, cfg Config) *Engine {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := transport.NewClient(transport.Config{BaseURL: srv.URL + transport.BasePath, Token: "tok"})
	require.NoError(t, err)
	e, err := New(c, cfg)
	require.NoError(t, err)
	return e
}
