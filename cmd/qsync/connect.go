package qsync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/qsync/qsync/internal/audit"
	"github.com/qsync/qsync/internal/config"
	"github.com/qsync/qsync/internal/endpoint"
	"github.com/qsync/qsync/internal/engine"
	"github.com/qsync/qsync/internal/poller"
	"github.com/qsync/qsync/internal/report"
	"github.com/qsync/qsync/internal/transport"
	"github.com/qsync/qsync/internal/types"
	"github.com/qsync/qsync/internal/update"
)

// runEnv is everything an operation needs once flags are validated.
type runEnv struct {
	inv    invocation
	file   config.FileConfig
	conn   config.Connection
	engine *engine.Engine
}

// connect loads the configuration, resolves the connection and builds the
// engine for inv.
func connect(cmd *cobra.Command, inv invocation) (*runEnv, error) {
	wd, _ := os.Getwd()
	fc, err := config.Load(flagConfigFile, wd)
	if err != nil {
		return nil, err
	}

	var conn config.Connection
	if inv.config != "" {
		if conn, err = fc.ResolveConnection(inv.config); err != nil {
			return nil, err
		}
	} else {
		conn = config.Connection{Host: inv.host, Token: inv.token}
	}
	if conn.Token == "-" {
		if conn.Token, err = readToken(cmd); err != nil {
			return nil, &config.Error{Msg: "cannot read token", Err: err}
		}
		if conn.Token == "" {
			return nil, config.Errorf("empty token")
		}
	}

	rateLimit := flagRateLimit
	if rateLimit == 0 {
		rateLimit = fc.Defaults.RateLimit
	}
	client, err := transport.NewClient(transport.Config{
		Host:      conn.Host,
		Token:     conn.Token,
		Version:   conn.Version,
		Insecure:  flagInsecure || conn.Insecure,
		Timeout:   fc.Defaults.Timeout,
		RateLimit: rateLimit,
	})
	if err != nil {
		return nil, &config.Error{Msg: "invalid connection", Err: err}
	}

	rng, err := transport.ParseRange(inv.records)
	if err != nil {
		return nil, &config.Error{Msg: "invalid --records", Err: err}
	}
	dateFormat := inv.dateFormat
	if dateFormat == "" {
		dateFormat = fc.Defaults.DateFormat
	}
	searchTimeout := flagSearchTimeout
	if searchTimeout == 0 {
		searchTimeout = fc.Defaults.SearchTimeout
	}

	cfg := engine.Config{
		Filter:        inv.filter,
		Fields:        engine.SplitFields(inv.fields),
		Range:         rng,
		Name:          inv.name,
		Query:         inv.aql,
		Resolve:       fc.ResolveNamedQuery,
		DateFormat:    dateFormat,
		RowByRow:      inv.rowByRow,
		SearchTimeout: searchTimeout,
	}
	if isTerminal(cmd.ErrOrStderr()) {
		out := cmd.ErrOrStderr()
		cfg.SearchProgress = func(j poller.Job) {
			fmt.Fprintf(out, "\rSearch %s: %s %d%%", j.SearchID, j.Status, j.Progress)
			if j.Status.Terminal() {
				fmt.Fprintln(out)
			}
		}
	}
	eng, err := engine.New(client, cfg)
	if err != nil {
		return nil, &config.Error{Msg: "invalid options", Err: err}
	}

	checkForUpdate(cmd)
	return &runEnv{inv: inv, file: fc, conn: conn, engine: eng}, nil
}

// readToken prompts for the SEC token without echo when stdin is a
// terminal, otherwise reads one line.
func readToken(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "SEC token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return strings.TrimSpace(string(b)), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// record appends the run to the history. Failures are logged only.
func (env *runEnv) record(buf types.Buffer, written, requests int, elapsed time.Duration, runErr error) {
	if flagNoHistory {
		return
	}
	rec := audit.NewRecord(env.inv.op.String(), env.inv.resource.String(), env.inv.name, env.conn.Host,
		buf, written, requests, elapsed, runErr)
	if err := audit.NewHistory(flagHistoryFile).Log(rec); err != nil {
		log.Warn().Err(err).Msg("Cannot record run history")
	}
}

func checkForUpdate(cmd *cobra.Command) {
	if flagNoUpdateCheck {
		return
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
	defer cancel()
	if latest, newer, _ := (&update.Checker{}).Check(ctx, version); newer {
		notice(cmd.ErrOrStderr(), "(new version available: v%s)  run 'qsync --self-update' to upgrade", latest)
	}
}

// delimiter returns the CSV separator chosen by -t.
func delimiter(inv invocation) rune {
	if inv.tab {
		return report.Tab
	}
	return report.Comma
}

// resourceLabel names the target of inv for messages.
func resourceLabel(inv invocation) string {
	if inv.resource == endpoint.RefTable {
		return "reference table " + inv.name
	}
	return inv.resource.String()
}
