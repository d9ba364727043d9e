// Package qsync provides the command-line interface for qsync. It wires the
// export, import, delete and fields operations to the sync engine, validates
// flag combinations and maps failures to exit status 1.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/qsync/qsync/cmd/qsync"
//	func main() { qsync.Execute() }
package qsync
