package qsync

import (
	"github.com/spf13/cobra"

	"github.com/qsync/qsync/internal/config"
	"github.com/qsync/qsync/internal/endpoint"
)

// Operation flags. Every operation command registers all of them so that
// misuse is reported by validate with one consistent message.
var (
	flagFilter     string
	flagFields     string
	flagRecords    string
	flagCSV        string
	flagJSON       string
	flagData       string
	flagScreen     bool
	flagTab        bool
	flagName       string
	flagAQL        string
	flagDateFormat string
	flagRowByRow   bool
)

func addOperationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flagFilter, "filter", "", "server-side filter expression (export only)")
	f.StringVar(&flagFields, "fields", "", "comma-separated fields to export")
	f.StringVar(&flagRecords, "records", "", "number of records (N) or range (a-b) to export")
	f.StringVar(&flagCSV, "csv", "", "CSV file to write or read")
	f.StringVar(&flagJSON, "json", "", "JSON file to write or read")
	f.StringVar(&flagData, "data", "", `inline record "field1=value1,field2=value2"`)
	f.BoolVar(&flagScreen, "screen", false, "print records as a table")
	f.BoolVarP(&flagTab, "tab", "t", false, "use TAB as the CSV separator")
	f.StringVar(&flagName, "name", "", "reference table to work with")
	f.StringVar(&flagAQL, "aql", "", "AQL statement, saved search (id:N) or named query")
	f.StringVar(&flagDateFormat, "dateformat", "", "strftime format of reference table dates (default %Y-%m-%d %H:%M:%S)")
	f.BoolVarP(&flagRowByRow, "rowbyrow", "r", false, "load reference table rows one call at a time")
}

// newInvocation collects the current flag values for op. args[0] names the
// resource.
func newInvocation(op endpoint.Operation, args []string) (invocation, error) {
	r, err := endpoint.ParseResource(args[0])
	if err != nil {
		return invocation{}, &config.Error{Msg: "invalid resource", Err: err}
	}
	return invocation{
		op:         op,
		resource:   r,
		config:     flagConfig,
		host:       flagHost,
		token:      flagToken,
		filter:     flagFilter,
		fields:     flagFields,
		records:    flagRecords,
		csv:        flagCSV,
		json:       flagJSON,
		data:       flagData,
		screen:     flagScreen,
		tab:        flagTab,
		name:       flagName,
		aql:        flagAQL,
		dateFormat: flagDateFormat,
		rowByRow:   flagRowByRow,
	}, nil
}

func resourceNames() []string {
	var out []string
	for _, r := range endpoint.Resources() {
		out = append(out, r.String())
	}
	return out
}

// operationCommand builds the cobra command shared by export, import,
// delete and fields.
func operationCommand(op endpoint.Operation, short string, run func(*cobra.Command, invocation) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:       op.String() + " <resource>",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: resourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := newInvocation(op, args)
			if err != nil {
				return err
			}
			if err := inv.validate(); err != nil {
				return err
			}
			return run(cmd, inv)
		},
	}
	addOperationFlags(cmd)
	return cmd
}
