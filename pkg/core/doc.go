// Package core provides a small, stable facade over qsync's internal engine
// for external integrations. It re-exports a narrow API surface so other
// tools can depend on a stable import path without reaching into internal
// packages.
//
// Example:
//
//	client, err := core.NewClient(core.ClientConfig{Host: "siem.example.com", Token: token})
//	if err != nil { /* handle */ }
//	nets, err := core.Export(ctx, client, core.Networks, core.Config{})
//	if err != nil { /* handle */ }
//	_ = core.MarshalRecords(os.Stdout, nets)
package core
