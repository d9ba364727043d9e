package qsync

import (
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/audit"
	"github.com/qsync/qsync/internal/report"
)

var (
	flagHistoryLimit  int
	flagHistoryDelete int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent export, import and delete runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h := audit.NewHistory(flagHistoryFile)
			if flagHistoryDelete >= 0 {
				if err := h.DeleteRecord(flagHistoryDelete); err != nil {
					return err
				}
				success(cmd.ErrOrStderr(), "Deleted history entry %d", flagHistoryDelete)
				return nil
			}
			records, err := h.LoadHistory()
			if err != nil {
				return err
			}
			if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
				records = records[:flagHistoryLimit]
			}
			return report.PrintHistory(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "show at most this many runs (0 = all)")
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the entry with this index")
	rootCmd.AddCommand(cmd)
}
