package core

import (
	"context"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/engine"
	"github.com/qsync/qsync/internal/transport"
	"github.com/qsync/qsync/internal/types"
)

// Re-export selected internal types as a stable public API surface.
type (
	Config       = engine.Config
	Result       = engine.Result
	Record       = types.Record
	Buffer       = types.Buffer
	Resource     = endpoint.Resource
	Client       = transport.Client
	ClientConfig = transport.Config
)

const (
	Networks   = endpoint.Networks
	Assets     = endpoint.Assets
	RefTables  = endpoint.RefTables
	RefSets    = endpoint.RefSets
	RefMaps    = endpoint.RefMaps
	RefMapSets = endpoint.RefMapSets
	RefTable   = endpoint.RefTable
	Events     = endpoint.Events
)

// NewClient connects to the platform API.
func NewClient(cfg ClientConfig) (*Client, error) { return transport.NewClient(cfg) }

// ParseResource maps a name such as "networks" to a Resource.
func ParseResource(s string) (Resource, error) { return endpoint.ParseResource(s) }

// Export is the stable entrypoint for reading a resource.
func Export(ctx context.Context, client *Client, r Resource, cfg Config) (Buffer, error) {
	e, err := engine.New(client, cfg)
	if err != nil {
		return nil, err
	}
	return e.Export(ctx, r)
}

// ExportWithStats is Export with request counts and timing.
func ExportWithStats(ctx context.Context, client *Client, r Resource, cfg Config) (Result, error) {
	e, err := engine.New(client, cfg)
	if err != nil {
		return Result{}, err
	}
	return e.ExportWithStats(ctx, r)
}

// Import writes buf to r and returns the number of records written.
func Import(ctx context.Context, client *Client, r Resource, cfg Config, buf Buffer) (int, error) {
	e, err := engine.New(client, cfg)
	if err != nil {
		return 0, err
	}
	return e.Import(ctx, r, buf)
}

// Delete removes the keyed rows of buf from the reference table cfg.Name.
func Delete(ctx context.Context, client *Client, cfg Config, buf Buffer) (int, error) {
	e, err := engine.New(client, cfg)
	if err != nil {
		return 0, err
	}
	return e.Delete(ctx, endpoint.RefTable, buf)
}

// Fields lists the fields an export of r can produce.
func Fields(ctx context.Context, client *Client, r Resource, cfg Config) ([]string, error) {
	e, err := engine.New(client, cfg)
	if err != nil {
		return nil, err
	}
	return e.Fields(ctx, r)
}
