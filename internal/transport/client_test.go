package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + BasePath, Token: "tok"})
	require.NoError(t, err)
	return c
}

func TestNewClient_BuildsBaseFromHost(t *testing.T) {
	c, err := NewClient(Config{Host: "siem.example.com", Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "https://siem.example.com/api/", c.BaseURL())

	_, err = NewClient(Config{})
	assert.Error(t, err)
}

func TestDo_SendsHeaders(t *testing.T) {
	var got http.Header
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		path = r.URL.RequestURI()
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "asset_model/assets?filter=id%3D1", Range: "0-9"})
	require.NoError(t, err)

	assert.Equal(t, "/api/asset_model/assets?filter=id%3D1", path)
	assert.Equal(t, "tok", got.Get("SEC"))
	assert.Equal(t, DefaultVersion, got.Get("Version"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json;charset=UTF-8", got.Get("Content-Type"))
	assert.Equal(t, "items=0-9", got.Get("Range"))
}

func TestDo_PlainTextAndDeleteContentType(t *testing.T) {
	var accept, ctype, version string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		accept, ctype, version = r.Header.Get("Accept"), r.Header.Get("Content-Type"), r.Header.Get("Version")
		_, _ = w.Write([]byte("ok"))
	})
	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "asset_model/assets/1", Body: []byte(`{}`), PlainText: true})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", accept)

	_, err = c.Do(context.Background(), Request{Method: http.MethodDelete, Path: "x", Version: LegacyVersion})
	require.NoError(t, err)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, LegacyVersion, version)
}

func TestDo_PostsBody(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	})
	_, err := c.Put(context.Background(), "config/network_hierarchy/staged_networks", []byte(`[{"id":1}]`))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, body)
}

func TestDo_NonSuccessIsTransportError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"bad"}`))
	})
	_, err := c.Get(context.Background(), "config/network_hierarchy/networks")
	require.Error(t, err)
	var te *Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnprocessableEntity, te.StatusCode)
	assert.Equal(t, "Unprocessable Entity", te.Reason)
	assert.Contains(t, err.Error(), "422")
}

func TestDo_EmptyGetBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Get(context.Background(), "reference_data/tables")
	assert.ErrorIs(t, err, ErrEmptyResult)

	// empty replies to writes are fine
	_, err = c.Post(context.Background(), "reference_data/tables/bulk_load/x", []byte(`{}`))
	assert.NoError(t, err)
}

func TestDo_NoRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Get(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RespectsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRange(t *testing.T) {
	cases := map[string]string{
		"":      "",
		"25":    "0-24",
		"1":     "0-0",
		"10-19": "10-19",
	}
	for in, want := range cases {
		got, err := ParseRange(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"0", "abc", "9-3", "-4"} {
		_, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "a%20b/c*(d)", Quote("a b/c*(d)", ReservedSafe))
	assert.Equal(t, "a%2Fb", Quote("a/b", ""))
	assert.Equal(t, "user%40corp.com", Quote("user@corp.com", ReservedSafe))
	assert.Equal(t, "%D0%B6", Quote("ж", ReservedSafe))
	assert.Equal(t, "x-y_z.~", Quote("x-y_z.~", ""))
}
