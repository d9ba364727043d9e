// Package report moves record buffers in and out of the process: CSV and
// JSON files, inline "field=value" data and tables on the screen.
package report
