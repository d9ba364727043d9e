package qsync

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/logging"
)

var (
	flagConfig        string
	flagHost          string
	flagToken         string
	flagConfigFile    string
	flagDebug         bool
	flagVerbose       bool
	flagInsecure      bool
	flagRateLimit     float64
	flagSearchTimeout time.Duration
	flagLogFile       string
	flagHistoryFile   string
	flagNoHistory     bool
	flagNoUpdateCheck bool
	flagSelfUpdate    bool

	version = "0.1.0"

	closeLog = func() error { return nil }
)

// rootCmd is the base Cobra command for the qsync CLI.
var rootCmd = &cobra.Command{
	Use:   "qsync",
	Short: "Move SIEM configuration and search results over the REST API",
	Long: "qsync exports, imports and deletes networks, assets, reference data and " +
		"search results on a SIEM platform, converting them to and from CSV, JSON and tables.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		closeLog = logging.Setup(logging.Options{Debug: flagDebug, Console: flagVerbose, File: flagLogFile})
		log.Info().Str("command", cmd.CommandPath()).Strs("args", redactArgs(os.Args[1:])).Msg("Script run")
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		if flagSelfUpdate {
			return selfUpdate(cmd)
		}
		return cmd.Help()
	},
}

// Execute runs the qsync CLI. It should be called by the main package. Any
// error is printed to stderr and the process exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		_ = closeLog()
		os.Exit(1)
	}
	_ = closeLog()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "connection name from the config file")
	pf.StringVar(&flagHost, "host", "", "address of the SIEM console")
	pf.StringVar(&flagToken, "token", "", "SEC token (\"-\" prompts for it)")
	pf.StringVar(&flagConfigFile, "config-file", "", "config file (default ./.qsync.yml, then $XDG_CONFIG_HOME/qsync/config.yml)")
	pf.BoolVarP(&flagDebug, "debug", "d", false, "debug logging")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "also print the log to stderr")
	pf.BoolVar(&flagInsecure, "insecure", false, "skip TLS certificate verification")
	pf.Float64Var(&flagRateLimit, "rate-limit", 0, "maximum requests per second (0 = unlimited)")
	pf.DurationVar(&flagSearchTimeout, "search-timeout", 0, "give up waiting for a search after this long (default 30m)")
	pf.StringVar(&flagLogFile, "log-file", "", "log file (default $XDG_STATE_HOME/qsync/qsync.log)")
	pf.StringVar(&flagHistoryFile, "history-file", "", "run history file (default $XDG_STATE_HOME/qsync/history.jsonl)")
	pf.BoolVar(&flagNoHistory, "no-history", false, "do not record this run in the history")
	pf.BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable the new release check")
	rootCmd.Flags().BoolVar(&flagSelfUpdate, "self-update", false, "update qsync to the latest release")
}

// redactArgs hides the value of --token in logged command lines.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	hide := false
	for i, a := range args {
		switch {
		case hide:
			out[i] = "***"
			hide = false
		case a == "--token":
			out[i] = a
			hide = true
		case strings.HasPrefix(a, "--token="):
			out[i] = "--token=***"
		default:
			out[i] = a
		}
	}
	return out
}
