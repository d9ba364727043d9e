package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/qsync/qsync/internal/audit"
	"github.com/qsync/qsync/internal/types"
)

// PrintOptions controls the footer printed under a table.
type PrintOptions struct {
	Duration time.Duration
	Requests int
}

// PrintTable renders buf as a table with one column per field.
func PrintTable(w io.Writer, buf types.Buffer, opts PrintOptions) error {
	if len(buf) == 0 {
		fmt.Fprintln(w, "No records found")
	} else {
		header := Header(buf)
		table := tablewriter.NewWriter(w)
		table.Header(anySlice(header)...)
		for _, rec := range buf {
			row := make([]string, len(header))
			for i, k := range header {
				row[i] = rec.Text(k)
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	if opts.Duration > 0 || opts.Requests > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Records: %d\n", len(buf))
		if opts.Requests > 0 {
			fmt.Fprintf(w, "Requests: %d\n", opts.Requests)
		}
		if opts.Duration > 0 {
			fmt.Fprintf(w, "Duration: %.2fs\n", opts.Duration.Seconds())
		}
	}
	return nil
}

// PrintFields lists the exportable fields of a resource.
func PrintFields(w io.Writer, fields []string) {
	fmt.Fprintln(w, "Fields available for export:")
	for _, f := range fields {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

// PrintHistory renders run history records, newest first.
func PrintHistory(w io.Writer, records []audit.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("#", "Time", "Operation", "Resource", "Host", "Records", "Duration", "Status")
	for i, r := range records {
		resource := r.Resource
		if r.Name != "" {
			resource += ":" + r.Name
		}
		status := "ok"
		if r.Error != "" {
			status = "failed"
		}
		row := []string{
			strconv.Itoa(i),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Operation,
			resource,
			r.Host,
			strconv.Itoa(r.Records),
			r.Duration,
			status,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func anySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
