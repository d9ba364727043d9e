package qsync

import (
	"github.com/qsync/qsync/internal/config"
	"github.com/qsync/qsync/internal/endpoint"
)

// invocation is one operation on one resource together with every flag
// that shapes it.
type invocation struct {
	op       endpoint.Operation
	resource endpoint.Resource

	config string
	host   string
	token  string

	filter  string
	fields  string
	records string

	csv    string
	json   string
	data   string
	screen bool
	tab    bool

	name       string
	aql        string
	dateFormat string
	rowByRow   bool
}

func (inv invocation) hasSource() bool { return inv.csv != "" || inv.json != "" || inv.data != "" }

// validate rejects flag combinations that make no sense for the operation.
// The first violated rule is reported.
func (inv invocation) validate() error {
	op, r := inv.op, inv.resource
	writes := op == endpoint.Import || op == endpoint.Delete

	switch {
	case inv.config == "" && inv.host == "" && inv.token == "":
		return config.Errorf("connection data is missing: use --config, or --host with --token")
	case inv.config != "" && (inv.host != "" || inv.token != ""):
		return config.Errorf("--config conflicts with --host and --token")
	case writes && (inv.fields != "" || inv.filter != "" || inv.records != ""):
		return config.Errorf("--fields, --filter and --records can be used only for export")
	case writes && inv.csv != "" && inv.json != "":
		return config.Errorf("only one source of data is allowed")
	case op != endpoint.Export && inv.screen:
		return config.Errorf("--screen can be used only for export")
	case inv.config == "" && (inv.host == "" || inv.token == ""):
		return config.Errorf("host or token option is missing")
	case r == endpoint.Networks && (inv.filter != "" || inv.records != ""):
		return config.Errorf("--filter and --records are not supported for networks")
	case op == endpoint.Fields && (inv.records != "" || inv.filter != "" || inv.fields != ""):
		return config.Errorf("--filter, --records and --fields are not supported for the fields operation")
	case !writes && inv.data != "":
		return config.Errorf("--data can be used only for import and delete")
	case inv.data != "" && (inv.csv != "" || inv.json != ""):
		return config.Errorf("--data cannot be used together with --csv or --json")
	case r == endpoint.Networks && inv.data != "":
		return config.Errorf("--data cannot be used for networks")
	case inv.tab && inv.csv == "":
		return config.Errorf("-t can be used only along with --csv")
	case inv.name != "" && !r.IsReference():
		return config.Errorf("--name can be used only for reference tables")
	case inv.name == "" && r.IsReference():
		return config.Errorf("--name is required for reference tables")
	case inv.rowByRow && !(r.IsReference() && op == endpoint.Import):
		return config.Errorf("-r can be used only to import reference tables")
	case op == endpoint.Delete && !r.IsReference():
		return config.Errorf("only reference table rows can be deleted")
	case inv.aql != "" && r != endpoint.Events:
		return config.Errorf("--aql can be specified only for events")
	case op == endpoint.Export && r == endpoint.Events && inv.aql == "":
		return config.Errorf("--aql is required to export events")
	case writes && !inv.hasSource():
		return config.Errorf("no input: use --csv, --json or --data")
	}
	return nil
}
