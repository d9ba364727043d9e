// Package reconcile deletes reference table rows by key. The server only
// deletes one (key, field, value) triple per call, so the current table is
// read first to learn which triples exist.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/logging"
	"github.com/qsync/qsync/internal/transcode"
	"github.com/qsync/qsync/internal/transport"
)

// ErrKeyNotFound marks a requested key that the table does not hold.
var ErrKeyNotFound = errors.New("key not found in reference table")

// Error reports the delete that stopped the run.
type Error struct {
	Table string
	Key   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("delete %s/%s: %v", e.Table, e.Key, e.Err)
	}
	return fmt.Sprintf("delete %s/%s/%s: %v", e.Table, e.Key, e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Doer is the part of the transport the reconciler needs.
type Doer interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// Reconciler turns row keys into per-cell DELETE calls.
type Reconciler struct {
	client Doer
	export endpoint.Descriptor
	del    endpoint.Descriptor
}

// New returns a reconciler for reference tables.
func New(client Doer) (*Reconciler, error) {
	exp, err := endpoint.Lookup(endpoint.RefTable, endpoint.Export)
	if err != nil {
		return nil, err
	}
	del, err := endpoint.Lookup(endpoint.RefTable, endpoint.Delete)
	if err != nil {
		return nil, err
	}
	return &Reconciler{client: client, export: exp, del: del}, nil
}

// Current reads the rows currently stored in table.
func (r *Reconciler) Current(ctx context.Context, table string) ([]transcode.Row, error) {
	path := r.export.Expand(map[string]string{"id": transport.Quote(table, transport.ReservedSafe)})
	resp, err := r.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, fmt.Errorf("read reference table %s: %w", table, err)
	}
	return transcode.DecodeRows(resp.Body)
}

// Delete removes every stored cell of each key, one call per cell, in table
// order. Repeated keys are deleted once. All keys are checked before the
// first call; the first failing call stops the run. It returns the number of calls that succeeded.
func (r *Reconciler) Delete(ctx context.Context, table string, keys []string) (int, error) {
	log := logging.GetLogger("reconcile")
	rows, err := r.Current(ctx, table)
	if err != nil {
		return 0, err
	}
	byKey := make(map[string]transcode.Row, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	keys = UniqueKeys(keys)
	for _, k := range keys {
		if _, ok := byKey[k]; !ok {
			return 0, &Error{Table: table, Key: k, Err: ErrKeyNotFound}
		}
	}

	done := 0
	for _, k := range keys {
		for _, c := range byKey[k].Cells {
			path := r.del.Expand(map[string]string{
				"id":    transport.Quote(table, transport.ReservedSafe),
				"key":   transport.Quote(k, transport.ReservedSafe),
				"field": transport.Quote(c.Field, transport.ReservedSafe),
				"value": transport.Quote(c.Value, transport.ReservedSafe),
			})
			if _, err := r.client.Do(ctx, transport.Request{Method: r.del.Method, Path: path}); err != nil {
				return done, &Error{Table: table, Key: k, Field: c.Field, Err: err}
			}
			done++
			log.Debug().Str("key", k).Str("field", c.Field).Msg("Deleted reference table cell")
		}
	}
	return done, nil
}

// UniqueKeys drops repeated keys, keeping first-seen order.
func UniqueKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
