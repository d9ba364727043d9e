// Package transport issues single REST calls against the platform API with
// the auth, version, content negotiation and pagination headers it expects.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qsync/qsync/internal/logging"
	"golang.org/x/time/rate"
)

const (
	// BasePath is prefixed to every resource path.
	BasePath = "/api/"
	// DefaultVersion is sent in the Version header unless overridden.
	DefaultVersion = "11.0"
	// LegacyVersion is used for schema and catalog lookups.
	LegacyVersion = "9.1"

	contentTypeJSON     = "application/json;charset=UTF-8"
	contentTypeJSONBare = "application/json"
	acceptJSON          = "application/json"
	acceptText          = "text/plain"
)

// Config configures a Client.
type Config struct {
	// Host is the platform address; the base URL becomes https://Host/api/.
	Host string
	// BaseURL overrides the URL built from Host (tests, proxies).
	BaseURL string
	// Token is sent in the SEC header.
	Token string
	// Version is the API version header (default 11.0).
	Version string
	// Insecure disables TLS certificate verification.
	Insecure bool
	// Timeout bounds each request (default 2m).
	Timeout time.Duration
	// RateLimit caps requests per second; 0 means unlimited.
	RateLimit float64
	// HTTPClient replaces the default client.
	HTTPClient *http.Client
}

// Client performs one HTTP call per method invocation. It never retries.
type Client struct {
	base    string
	token   string
	version string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. Host or BaseURL must be set.
func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Host == "" {
			return nil, errors.New("transport: host is required")
		}
		base = "https://" + strings.TrimSuffix(cfg.Host, "/") + BasePath
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	hc := cfg.HTTPClient
	if hc == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Insecure {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed appliances
		}
		hc = &http.Client{Timeout: cfg.Timeout, Transport: tr}
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		base:    base,
		token:   cfg.Token,
		version: cfg.Version,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string { return c.base }

// Request is a single call. Path is relative to the API base and may carry a
// query string that is already escaped.
type Request struct {
	Method string
	Path   string
	Body   []byte
	// Range is an items range such as "0-49"; see ParseRange.
	Range string
	// PlainText asks for a text/plain reply (asset bulk update).
	PlainText bool
	// Version overrides the client's API version for this call.
	Version string
}

// Response is a successful reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body into target.
func (r *Response) JSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// Do executes req and maps any non-2xx status to *Error. An empty body on a
// successful GET yields ErrEmptyResult.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	log := logging.GetLogger("transport")
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := c.base + strings.TrimPrefix(req.Path, "/")
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq, req)

	log.Debug().Str("method", req.Method).Str("url", url).Str("range", req.Range).Int("bytes", len(req.Body)).Msg("Sending request")
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	log.Debug().
		Int("status", resp.StatusCode).
		Str("reason", http.StatusText(resp.StatusCode)).
		Dur("duration", time.Since(start)).
		Msg("Server answer")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Body:       truncate(string(data), 512),
		}
	}
	if req.Method == http.MethodGet && len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyResult
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) setHeaders(httpReq *http.Request, req Request) {
	h := httpReq.Header
	if req.PlainText {
		h.Set("Accept", acceptText)
	} else {
		h.Set("Accept", acceptJSON)
	}
	version := c.version
	if req.Version != "" {
		version = req.Version
	}
	h.Set("Version", version)
	if req.Method == http.MethodDelete {
		h.Set("Content-Type", contentTypeJSONBare)
	} else {
		h.Set("Content-Type", contentTypeJSON)
	}
	if req.Range != "" {
		h.Set("Range", "items="+req.Range)
	}
	h.Set("SEC", c.token)
}

// Get issues a GET.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

// Post issues a POST with a raw body.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put issues a PUT with a raw body.
func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body})
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
}

// ParseRange turns a record count ("25") or an explicit range ("10-19") into
// the items range sent in the Range header.
func ParseRange(records string) (string, error) {
	records = strings.TrimSpace(records)
	if records == "" {
		return "", nil
	}
	if start, end, ok := strings.Cut(records, "-"); ok {
		a, err1 := strconv.Atoi(strings.TrimSpace(start))
		b, err2 := strconv.Atoi(strings.TrimSpace(end))
		if err1 != nil || err2 != nil || a < 0 || b < a {
			return "", fmt.Errorf("invalid records range %q", records)
		}
		return fmt.Sprintf("%d-%d", a, b), nil
	}
	n, err := strconv.Atoi(records)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid records count %q", records)
	}
	return fmt.Sprintf("0-%d", n-1), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
