// Package main is the entry point for the dockenv CLI.
//
// Build-time variables are injected via ldflags, e.g.
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/dockenv
package main

import (
	"github.com/pathtofile/dockenv/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
