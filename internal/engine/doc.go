// Package engine runs one export, import, delete or field listing against the
// platform: it resolves the endpoint, issues the REST calls and converts
// between native resources and flat records. This package is internal;
// external consumers should use the stable facade in pkg/core.
package engine
