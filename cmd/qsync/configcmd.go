package qsync

import (
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/config"
)

var (
	cfgOutput string
	cfgName   string
	cfgForce  bool
	cfgGlobal bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .qsync.yml with a connection and a sample query",
		Long:  "Generate a .qsync.yml. The connection uses --host when given; fill in the token before use.",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".qsync.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgGlobal, "global", false, "write the per-user config file instead")
	initCmd.Flags().StringVar(&cfgName, "name", "default", "connection name")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgOutput
	if cfgGlobal {
		path = config.GlobalPath()
	}
	if err := config.WriteTemplate(path, cfgName, flagHost, cfgForce); err != nil {
		return err
	}
	success(cmd.ErrOrStderr(), "Wrote %s", path)
	return nil
}
