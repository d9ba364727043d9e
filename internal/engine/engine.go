package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/logging"
	"github.com/qsync/qsync/internal/poller"
	"github.com/qsync/qsync/internal/reconcile"
	"github.com/qsync/qsync/internal/transcode"
	"github.com/qsync/qsync/internal/transport"
	"github.com/qsync/qsync/internal/types"
)

var (
	// ErrNoData is returned when an import or delete gets an empty buffer.
	ErrNoData = errors.New("no data to write")
	// ErrNameRequired is returned when a reference table operation has no name.
	ErrNameRequired = errors.New("reference table name is required")
	// ErrQueryRequired is returned when events are exported without a query.
	ErrQueryRequired = errors.New("a search query is required to export events")
)

// Doer performs one REST call. *transport.Client implements it.
type Doer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Config controls one invocation.
type Config struct {
	// Filter is passed verbatim as the server-side filter expression.
	Filter string
	// Fields restricts the exported fields; empty means all.
	Fields []string
	// Range is an items range ("0-24"), see transport.ParseRange.
	Range string
	// Name is the reference table to work with.
	Name string
	// Query is a select statement, a saved search id ("id:42") or an alias.
	Query string
	// Resolve looks up query aliases.
	Resolve poller.Resolver
	// DateFormat renders reference table dates (strftime style).
	DateFormat string
	// Location is the zone dates are rendered in; nil means local time.
	Location *time.Location
	// RowByRow sends one bulk load call per reference table row.
	RowByRow bool

	SearchInterval time.Duration
	SearchTimeout  time.Duration
	// SearchProgress is called after each search status check.
	SearchProgress func(poller.Job)
}

// Result is the outcome of an operation along with basic statistics.
type Result struct {
	Records  types.Buffer
	Written  int
	Requests int
	Duration time.Duration
	// Search is set for events exports.
	Search *poller.Job
}

// Engine executes operations for one invocation. It is not safe for
// concurrent use.
type Engine struct {
	client  *countingDoer
	cfg     Config
	dates   transcode.DateCodec
	session *Session
}

type countingDoer struct {
	next  Doer
	calls atomic.Int64
}

func (c *countingDoer) Do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	c.calls.Add(1)
	return c.next.Do(ctx, req)
}

// New validates cfg and returns an engine talking through client.
func New(client Doer, cfg Config) (*Engine, error) {
	if client == nil {
		return nil, errors.New("engine: client is required")
	}
	dates, err := transcode.NewDateCodec(cfg.DateFormat, cfg.Location)
	if err != nil {
		return nil, err
	}
	cd := &countingDoer{next: client}
	return &Engine{client: cd, cfg: cfg, dates: dates, session: NewSession(cd)}, nil
}

// Session exposes the per-invocation catalog and schema cache.
func (e *Engine) Session() *Session { return e.session }

// Fields lists the fields an export of r can produce.
func (e *Engine) Fields(ctx context.Context, r endpoint.Resource) ([]string, error) {
	d, err := endpoint.Lookup(r, endpoint.Fields)
	if err != nil {
		return nil, err
	}
	switch r {
	case endpoint.Assets:
		catalog, err := e.session.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		return append(d.Fields, catalog.Names()...), nil
	case endpoint.RefTable:
		if e.cfg.Name == "" {
			return nil, ErrNameRequired
		}
		schema, err := e.session.Schema(ctx, e.cfg.Name)
		if err != nil {
			return nil, err
		}
		return schema.Columns(), nil
	}
	return d.Fields, nil
}

// Export reads r and returns its records.
func (e *Engine) Export(ctx context.Context, r endpoint.Resource) (types.Buffer, error) {
	res, err := e.ExportWithStats(ctx, r)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ExportWithStats reads r and returns records along with timing and request
// counts.
func (e *Engine) ExportWithStats(ctx context.Context, r endpoint.Resource) (result Result, err error) {
	log := logging.GetLogger("engine")
	done := logging.LogOperationStart(log, "export "+r.String())
	defer done()

	start := time.Now()
	before := e.client.calls.Load()
	defer func() {
		result.Duration = time.Since(start)
		result.Requests = int(e.client.calls.Load() - before)
	}()

	d, err := endpoint.Lookup(r, endpoint.Export)
	if err != nil {
		return result, err
	}
	if r == endpoint.Events {
		buf, job, err := e.exportEvents(ctx, d)
		result.Records, result.Search = buf, job
		return result, err
	}

	available, err := e.Fields(ctx, r)
	if err != nil {
		return result, err
	}
	fields := selectFields(available, e.cfg.Fields)

	path := d.Path
	if r.IsReference() {
		path = d.Expand(map[string]string{"id": transport.Quote(e.cfg.Name, transport.ReservedSafe)})
	}
	var query []string
	if e.cfg.Filter != "" {
		query = append(query, "filter="+transport.Quote(e.cfg.Filter, ""))
	}
	if len(e.cfg.Fields) > 0 {
		if native := serverFields(fields, d.NativeField); len(native) > 0 {
			query = append(query, "fields="+transport.Quote(strings.Join(native, ","), ""))
		}
	}
	if len(query) > 0 {
		path += "?" + strings.Join(query, "&")
	}

	resp, err := e.client.Do(ctx, transport.Request{Method: d.Method, Path: path, Range: e.cfg.Range})
	if err != nil {
		return result, err
	}

	var buf types.Buffer
	switch {
	case r == endpoint.Networks:
		buf, err = transcode.DecodeNetworks(resp.Body, fields)
	case r == endpoint.Assets:
		var catalog transcode.Catalog
		if catalog, err = e.session.Catalog(ctx); err == nil {
			buf, err = transcode.DecodeAssets(resp.Body, fields, catalog)
		}
	case r.IsCollection():
		buf, err = transcode.DecodeCollections(resp.Body, fields)
	case r == endpoint.RefTable:
		var schema transcode.Schema
		if schema, err = e.session.Schema(ctx, e.cfg.Name); err == nil {
			buf, err = transcode.DecodeRefTable(resp.Body, schema, fields, e.dates)
		}
	default:
		return result, &endpoint.NotFoundError{Resource: r, Operation: endpoint.Export}
	}
	if err != nil {
		return result, err
	}
	log.Info().Str("resource", r.String()).Int("records", len(buf)).Msg("Export finished")
	result.Records = buf
	return result, nil
}

func (e *Engine) exportEvents(ctx context.Context, d endpoint.Descriptor) (types.Buffer, *poller.Job, error) {
	if strings.TrimSpace(e.cfg.Query) == "" {
		return nil, nil, ErrQueryRequired
	}
	sub, err := poller.Classify(e.cfg.Query, e.cfg.Resolve)
	if err != nil {
		return nil, nil, err
	}
	p := &poller.Poller{
		Client:   e.client,
		Endpoint: d.Path,
		Interval: e.cfg.SearchInterval,
		Timeout:  e.cfg.SearchTimeout,
		Progress: e.cfg.SearchProgress,
	}
	job, err := p.Run(ctx, sub)
	if err != nil {
		return nil, nil, err
	}
	resp, err := e.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: job.ResultsPath, Range: e.cfg.Range})
	if err != nil {
		return nil, job, fmt.Errorf("fetch results of search %s: %w", job.SearchID, err)
	}
	buf, err := transcode.DecodeResults(resp.Body)
	return buf, job, err
}

// Import writes buf to r and returns the number of records written. The
// whole buffer is encoded before the first write call.
func (e *Engine) Import(ctx context.Context, r endpoint.Resource, buf types.Buffer) (int, error) {
	log := logging.GetLogger("engine")
	done := logging.LogOperationStart(log, "import "+r.String())
	defer done()

	d, err := endpoint.Lookup(r, endpoint.Import)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, ErrNoData
	}

	var n int
	switch r {
	case endpoint.Networks:
		n, err = e.importNetworks(ctx, d, buf)
	case endpoint.Assets:
		n, err = e.importAssets(ctx, d, buf)
	case endpoint.RefTable:
		n, err = e.importRefTable(ctx, d, buf)
	default:
		return 0, &endpoint.NotFoundError{Resource: r, Operation: endpoint.Import}
	}
	if err != nil {
		return n, err
	}
	log.Info().Str("resource", r.String()).Int("records", n).Msg("Import finished")
	return n, nil
}

func (e *Engine) importNetworks(ctx context.Context, d endpoint.Descriptor, buf types.Buffer) (int, error) {
	body, err := transcode.EncodeNetworks(buf)
	if err != nil {
		return 0, err
	}
	if _, err := e.client.Do(ctx, transport.Request{Method: d.Method, Path: d.Path, Body: body}); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (e *Engine) importAssets(ctx context.Context, d endpoint.Descriptor, buf types.Buffer) (int, error) {
	catalog, err := e.session.Catalog(ctx)
	if err != nil {
		return 0, err
	}
	updates, err := transcode.EncodeAssets(buf, catalog)
	if err != nil {
		return 0, err
	}
	bodies := make([][]byte, len(updates))
	for i, u := range updates {
		if bodies[i], err = u.Body(); err != nil {
			return 0, err
		}
	}
	for i, u := range updates {
		path := d.Expand(map[string]string{"id": transport.Quote(u.ID, transport.ReservedSafe)})
		if _, err := e.client.Do(ctx, transport.Request{Method: d.Method, Path: path, Body: bodies[i], PlainText: true}); err != nil {
			return i, fmt.Errorf("update asset %s: %w", u.ID, err)
		}
	}
	return len(updates), nil
}

func (e *Engine) importRefTable(ctx context.Context, d endpoint.Descriptor, buf types.Buffer) (int, error) {
	if e.cfg.Name == "" {
		return 0, ErrNameRequired
	}
	schema, err := e.session.Schema(ctx, e.cfg.Name)
	if err != nil {
		return 0, err
	}
	entries, err := transcode.EncodeRefTable(buf, schema, e.dates)
	if err != nil {
		return 0, err
	}
	path := d.Expand(map[string]string{"id": transport.Quote(e.cfg.Name, transport.ReservedSafe)})

	var bodies [][]byte
	if e.cfg.RowByRow {
		for _, entry := range entries {
			b, err := json.Marshal(entry.Object())
			if err != nil {
				return 0, err
			}
			bodies = append(bodies, b)
		}
	} else {
		b, err := json.Marshal(transcode.Aggregate(entries))
		if err != nil {
			return 0, err
		}
		bodies = append(bodies, b)
	}
	for i, body := range bodies {
		if _, err := e.client.Do(ctx, transport.Request{Method: d.Method, Path: path, Body: body}); err != nil {
			if e.cfg.RowByRow {
				return i, fmt.Errorf("bulk load row %s: %w", entries[i].Key, err)
			}
			return 0, err
		}
	}
	return len(entries), nil
}

// Delete removes the rows of buf, identified by their key, from r. Only the
// single reference table supports it.
func (e *Engine) Delete(ctx context.Context, r endpoint.Resource, buf types.Buffer) (int, error) {
	log := logging.GetLogger("engine")
	done := logging.LogOperationStart(log, "delete "+r.String())
	defer done()

	if _, err := endpoint.Lookup(r, endpoint.Delete); err != nil {
		return 0, err
	}
	if e.cfg.Name == "" {
		return 0, ErrNameRequired
	}
	if len(buf) == 0 {
		return 0, ErrNoData
	}
	schema, err := e.session.Schema(ctx, e.cfg.Name)
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(buf))
	for i, rec := range buf {
		k := transcode.RecordKey(rec, schema)
		if k == "" {
			return 0, &reconcile.Error{Table: e.cfg.Name, Err: fmt.Errorf("record %d has no key", i+1)}
		}
		keys = append(keys, k)
	}
	keys = reconcile.UniqueKeys(keys)

	rc, err := reconcile.New(e.client)
	if err != nil {
		return 0, err
	}
	cells, err := rc.Delete(ctx, e.cfg.Name, keys)
	if err != nil {
		return 0, err
	}
	log.Info().Str("table", e.cfg.Name).Int("records", len(keys)).Int("cells", cells).Msg("Delete finished")
	return len(keys), nil
}
