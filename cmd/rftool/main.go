package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cyberinferno/rftool/cmd/rftool/commands"
	"github.com/cyberinferno/rftool/server"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, server.ErrResourceInit) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
