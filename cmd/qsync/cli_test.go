package qsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qsync/qsync/internal/audit"
	"github.com/qsync/qsync/internal/config"
	"github.com/qsync/qsync/internal/report"
)

// resetFlags restores every package level flag to its default so commands
// can run more than once per process.
func resetFlags() {
	flagConfig, flagHost, flagToken, flagConfigFile = "", "", "", ""
	flagDebug, flagVerbose, flagInsecure = false, false, false
	flagRateLimit, flagSearchTimeout = 0, 0
	flagLogFile, flagHistoryFile = "", ""
	flagNoHistory, flagNoUpdateCheck, flagSelfUpdate = false, false, false

	flagFilter, flagFields, flagRecords = "", "", ""
	flagCSV, flagJSON, flagData = "", "", ""
	flagScreen, flagTab, flagRowByRow = false, false, false
	flagName, flagAQL, flagDateFormat = "", "", ""

	flagHistoryLimit, flagHistoryDelete = 20, -1
	cfgOutput, cfgName, cfgForce, cfgGlobal = ".qsync.yml", "default", false, false
}

type cliResult struct {
	stdout, stderr string
	err            error
}

// runCLI executes the root command in-process. Logging and history go to
// a temp dir unless args override them.
func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	resetFlags()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	base := []string{"--log-file", filepath.Join(dir, "qsync.log"), "--history-file", filepath.Join(dir, "history.jsonl"), "--no-update-check"}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(base, args...))
	err := rootCmd.ExecuteContext(context.Background())
	_ = closeLog()
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

type call struct {
	method, uri, token, body string
}

// fakeSIEM serves the handful of endpoints the commands touch.
type fakeSIEM struct {
	mu    sync.Mutex
	calls []call
	srv   *httptest.Server
}

func newFakeSIEM(t *testing.T) *fakeSIEM {
	t.Helper()
	f := &fakeSIEM{}
	f.srv = httptest.NewTLSServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSIEM) host() string { return strings.TrimPrefix(f.srv.URL, "https://") }

func (f *fakeSIEM) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeSIEM) serve(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, call{r.Method, r.URL.RequestURI(), r.Header.Get("SEC"), string(b)})
	f.mu.Unlock()

	switch r.Method + " " + r.URL.Path {
	case "GET /api/config/network_hierarchy/networks":
		_, _ = io.WriteString(w, `[{"id": 1, "name": "core", "cidr": "10.0.0.0/24", "group": "DC",
		  "description": "<42>[Critical VLAN]core", "location": {"type": "Point", "coordinates": [13.4, 52.5]}}]`)
	case "PUT /api/config/network_hierarchy/staged_networks":
		_, _ = io.WriteString(w, `[]`)
	case "GET /api/reference_data/tables":
		_, _ = io.WriteString(w, `[{"name": "users", "key_label": "username", "key_name_types": {"group": "ALN"}}]`)
	case "GET /api/reference_data/tables/users":
		_, _ = io.WriteString(w, `{"name": "users", "data": {"alice": {"group": {"value": "admins"}}, "bob": {"group": {"value": "ops"}}}}`)
	case "POST /api/reference_data/tables/bulk_load/users":
		_, _ = io.WriteString(w, `{"name": "users"}`)
	case "DELETE /api/reference_data/tables/users/alice/group":
		_, _ = io.WriteString(w, `{"name": "users"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message": "no such endpoint"}`)
	}
}

func TestCLI_ValidationErrorIsConfigError(t *testing.T) {
	res := runCLI(t, "", "export", "networks", "--host", "siem", "--token", "t", "--filter", "id=1")
	require.Error(t, res.err)
	var ce *config.Error
	assert.True(t, errors.As(res.err, &ce))
	assert.Contains(t, res.err.Error(), "not supported for networks")
}

func TestCLI_UnknownResource(t *testing.T) {
	res := runCLI(t, "", "export", "logsources", "--host", "siem", "--token", "t")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "logsources")
}

func TestCLI_ExportNetworksToCSVAndScreen(t *testing.T) {
	f := newFakeSIEM(t)
	out := filepath.Join(t.TempDir(), "nets.csv")
	res := runCLI(t, "", "export", "networks", "--host", f.host(), "--token", "tok", "--insecure",
		"--csv", out, "-t", "--screen")
	require.NoError(t, res.err)

	buf, err := report.LoadCSV(out, report.Tab)
	require.NoError(t, err)
	require.Len(t, buf, 1)
	assert.Equal(t, "core", buf[0].Text("name"))
	assert.Equal(t, "42", buf[0].Text("vlan"))
	assert.Equal(t, "13.4", buf[0].Text("coord_x"))
	assert.Contains(t, res.stdout, "10.0.0.0/24")
	assert.Contains(t, res.stderr, "1 records of networks saved to")

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "tok", calls[0].token)
}

func TestCLI_ExportReftableJSON_RecordsHistory(t *testing.T) {
	f := newFakeSIEM(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "users.json")
	history := filepath.Join(dir, "history.jsonl")
	res := runCLI(t, "", "export", "reftable", "--name", "users", "--host", f.host(), "--token", "tok",
		"--insecure", "--json", out, "--history-file", history)
	require.NoError(t, res.err)

	buf, err := report.LoadJSON(out)
	require.NoError(t, err)
	require.Len(t, buf, 2)
	assert.Equal(t, []string{"username", "group"}, buf[0].Keys())
	assert.Equal(t, "alice", buf[0].Text("username"))

	recs, err := audit.NewHistory(history).LoadHistory()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "export", recs[0].Operation)
	assert.Equal(t, "users", recs[0].Name)
	assert.Equal(t, 2, recs[0].Records)
	assert.Equal(t, audit.Digest(buf), recs[0].Digest)
}

func TestCLI_ImportNetworksFromCSV(t *testing.T) {
	f := newFakeSIEM(t)
	in := filepath.Join(t.TempDir(), "nets.csv")
	require.NoError(t, os.WriteFile(in, []byte("id,name,cidr,group,vlan,critical\n5,lab,10.5.0.0/16,LAB,7,1\n"), 0644))

	res := runCLI(t, "", "import", "networks", "--host", f.host(), "--token", "tok", "--insecure", "--csv", in)
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "1 records of networks updated")

	calls := f.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].method)
	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(calls[0].body), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "10.5.0.0/16", sent[0]["cidr"])
	assert.Equal(t, "<7>[Critical VLAN]", sent[0]["description"])
}

func TestCLI_DeleteReftableRow(t *testing.T) {
	f := newFakeSIEM(t)
	res := runCLI(t, "", "delete", "reftable", "--name", "users", "--host", f.host(), "--token", "tok",
		"--insecure", "--data", "username=alice")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "1 records deleted from reference table users")

	var deletes []string
	for _, c := range f.recorded() {
		if c.method == http.MethodDelete {
			deletes = append(deletes, c.uri)
		}
	}
	assert.Equal(t, []string{"/api/reference_data/tables/users/alice/group?value=admins"}, deletes)
}

func TestCLI_FieldsOperation(t *testing.T) {
	f := newFakeSIEM(t)
	res := runCLI(t, "", "fields", "reftable", "--name", "users", "--host", f.host(), "--token", "tok", "--insecure")
	require.NoError(t, res.err)
	assert.Equal(t, "Fields available for export:\n  username\n  group\n", res.stdout)
}

func TestCLI_TokenPrompt(t *testing.T) {
	f := newFakeSIEM(t)
	res := runCLI(t, "from-stdin\n", "export", "networks", "--host", f.host(), "--token", "-", "--insecure", "--json",
		filepath.Join(t.TempDir(), "n.json"))
	require.NoError(t, res.err)
	calls := f.recorded()
	require.NotEmpty(t, calls)
	assert.Equal(t, "from-stdin", calls[0].token)
}

func TestCLI_ConfigConnection(t *testing.T) {
	f := newFakeSIEM(t)
	cfgFile := filepath.Join(t.TempDir(), "qsync.yml")
	doc := "connections:\n  Prod:\n    host: \"" + f.host() + "\"\n    token: cfgtok\n    insecure: true\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(doc), 0600))

	res := runCLI(t, "", "export", "networks", "--config", "prod", "--config-file", cfgFile, "--screen")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "core")
	assert.Equal(t, "cfgtok", f.recorded()[0].token)

	res = runCLI(t, "", "export", "networks", "--config", "staging", "--config-file", cfgFile)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `"staging"`)
}

func TestCLI_TransportErrorFails(t *testing.T) {
	f := newFakeSIEM(t)
	res := runCLI(t, "", "export", "assets", "--host", f.host(), "--token", "tok", "--insecure", "--screen")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "404")
}

func TestCLI_ConfigInit(t *testing.T) {
	out := filepath.Join(t.TempDir(), ".qsync.yml")
	res := runCLI(t, "", "config", "init", "--output", out, "--name", "prod", "--host", "siem.local")
	require.NoError(t, res.err)

	fc, err := config.LoadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "siem.local", fc.Connections["prod"].Host)

	res = runCLI(t, "", "config", "init", "--output", out)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "already exists")
}

func TestCLI_History(t *testing.T) {
	history := filepath.Join(t.TempDir(), "history.jsonl")
	h := audit.NewHistory(history)
	require.NoError(t, h.Log(audit.Record{Operation: "export", Resource: "networks", Host: "siem", Records: 4, Duration: "1s"}))
	require.NoError(t, h.Log(audit.Record{Operation: "import", Resource: "assets", Host: "siem", Records: 2, Duration: "2s"}))

	res := runCLI(t, "", "history", "--history-file", history, "--limit", "1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "assets")
	assert.NotContains(t, res.stdout, "networks")

	res = runCLI(t, "", "history", "--history-file", history, "--delete", "0")
	require.NoError(t, res.err)
	recs, err := h.LoadHistory()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "export", recs[0].Operation)
}

func TestCLI_Completion(t *testing.T) {
	res := runCLI(t, "", "completion", "bash")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "qsync")
}
