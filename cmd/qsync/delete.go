package qsync

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/endpoint"
)

func init() {
	cmd := operationCommand(endpoint.Delete, "Delete reference table rows by key", runDelete)
	cmd.Long = "Delete removes whole rows from a reference table. Only the key of each " +
		"input record is used; every field currently stored under that key is deleted."
	cmd.Example = `  qsync delete reftable --name users --config prod --data "key=alice"
  qsync delete reftable --name users --config prod --csv stale.csv`
	rootCmd.AddCommand(cmd)
}

func runDelete(cmd *cobra.Command, inv invocation) error {
	buf, err := loadSource(inv)
	if err != nil {
		return err
	}
	env, err := connect(cmd, inv)
	if err != nil {
		return err
	}
	start := time.Now()
	n, err := env.engine.Delete(cmd.Context(), inv.resource, buf)
	env.record(buf, n, 0, time.Since(start), err)
	if err != nil {
		return err
	}
	success(cmd.ErrOrStderr(), "%d records deleted from %s", n, resourceLabel(inv))
	return nil
}
