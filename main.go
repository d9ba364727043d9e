package main

import "github.com/qsync/qsync/cmd/qsync"

func main() { qsync.Execute() }
