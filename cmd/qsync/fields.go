package qsync

import (
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/report"
)

func init() {
	cmd := operationCommand(endpoint.Fields, "List the fields a resource can export", func(cmd *cobra.Command, inv invocation) error {
		env, err := connect(cmd, inv)
		if err != nil {
			return err
		}
		fields, err := env.engine.Fields(cmd.Context(), inv.resource)
		if err != nil {
			return err
		}
		report.PrintFields(cmd.OutOrStdout(), fields)
		return nil
	})
	rootCmd.AddCommand(cmd)
}
