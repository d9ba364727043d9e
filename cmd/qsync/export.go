package qsync

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/report"
)

var errNoData = errors.New("no data for export")

func init() {
	cmd := operationCommand(endpoint.Export, "Export a resource to CSV, JSON or the screen", runExport)
	cmd.Example = `  qsync export networks --config prod --csv networks.csv
  qsync export assets --config prod --fields "id,IP,Unified Name" --records 100 --screen
  qsync export reftable --name users --config prod --json users.json
  qsync export events --config prod --aql "SELECT sourceip FROM events LAST 10 MINUTES" --csv -t events.tsv`
	rootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, inv invocation) error {
	env, err := connect(cmd, inv)
	if err != nil {
		return err
	}
	res, err := env.engine.ExportWithStats(cmd.Context(), inv.resource)
	env.record(res.Records, len(res.Records), res.Requests, res.Duration, err)
	if err != nil {
		return err
	}

	toScreen := inv.screen || (inv.csv == "" && inv.json == "")
	if len(res.Records) == 0 && !toScreen {
		return errNoData
	}
	if inv.csv != "" {
		if err := report.SaveCSV(inv.csv, res.Records, delimiter(inv)); err != nil {
			return err
		}
		success(cmd.ErrOrStderr(), "%d records of %s saved to %s", len(res.Records), resourceLabel(inv), inv.csv)
	}
	if inv.json != "" {
		if err := report.SaveJSON(inv.json, res.Records); err != nil {
			return err
		}
		success(cmd.ErrOrStderr(), "%d records of %s saved to %s", len(res.Records), resourceLabel(inv), inv.json)
	}
	if toScreen {
		opts := report.PrintOptions{}
		if flagVerbose {
			opts = report.PrintOptions{Duration: res.Duration, Requests: res.Requests}
		}
		return report.PrintTable(cmd.OutOrStdout(), res.Records, opts)
	}
	return nil
}
