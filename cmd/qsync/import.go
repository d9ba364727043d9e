package qsync

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/report"
	"github.com/qsync/qsync/internal/types"
)

func init() {
	cmd := operationCommand(endpoint.Import, "Import records from CSV, JSON or inline data", runImport)
	cmd.Example = `  qsync import networks --config prod --csv networks.csv
  qsync import assets --config prod --data "id=1001,Unified Name=web01"
  qsync import reftable --name users --config prod --json users.json -r`
	rootCmd.AddCommand(cmd)
}

// loadSource reads the buffer named by --csv, --json or --data.
func loadSource(inv invocation) (types.Buffer, error) {
	switch {
	case inv.csv != "":
		return report.LoadCSV(inv.csv, delimiter(inv))
	case inv.json != "":
		return report.LoadJSON(inv.json)
	default:
		return report.ParseInline(inv.data)
	}
}

func runImport(cmd *cobra.Command, inv invocation) error {
	buf, err := loadSource(inv)
	if err != nil {
		return err
	}
	env, err := connect(cmd, inv)
	if err != nil {
		return err
	}
	start := time.Now()
	n, err := env.engine.Import(cmd.Context(), inv.resource, buf)
	env.record(buf, n, 0, time.Since(start), err)
	if err != nil {
		return err
	}
	success(cmd.ErrOrStderr(), "%d records of %s updated", n, resourceLabel(inv))
	return nil
}
