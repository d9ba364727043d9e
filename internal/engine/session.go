package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qsync/qsync/internal/transcode"
	"github.com/qsync/qsync/internal/transport"
)

const (
	catalogPath = "asset_model/properties?fields=id%2C%20name"
	schemaPath  = "reference_data/tables?filter=name%3D%22"
)

// Session holds what one invocation learns from the server before
// transcoding: the asset properties catalog and the reference table schema.
// Each is fetched at most once.
type Session struct {
	client  Doer
	catalog transcode.Catalog
	loaded  bool
	schemas map[string]transcode.Schema
}

// NewSession returns an empty session.
func NewSession(client Doer) *Session {
	return &Session{client: client, schemas: map[string]transcode.Schema{}}
}

// Catalog returns the asset properties catalog.
func (s *Session) Catalog(ctx context.Context) (transcode.Catalog, error) {
	if s.loaded {
		return s.catalog, nil
	}
	resp, err := s.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: catalogPath, Version: transport.LegacyVersion})
	if err != nil {
		return nil, fmt.Errorf("read asset properties: %w", err)
	}
	c, err := transcode.DecodeCatalog(resp.Body)
	if err != nil {
		return nil, err
	}
	s.catalog, s.loaded = c, true
	return c, nil
}

// Schema returns the schema of the named reference table.
func (s *Session) Schema(ctx context.Context, name string) (transcode.Schema, error) {
	if sc, ok := s.schemas[name]; ok {
		return sc, nil
	}
	path := schemaPath + transport.Quote(name, "/") + "%22"
	resp, err := s.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: path, Version: transport.LegacyVersion})
	if err != nil {
		return transcode.Schema{}, fmt.Errorf("read schema of %s: %w", name, err)
	}
	sc, err := transcode.DecodeSchema(name, resp.Body)
	if err != nil {
		return transcode.Schema{}, err
	}
	s.schemas[name] = sc
	return sc, nil
}
