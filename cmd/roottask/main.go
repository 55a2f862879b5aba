// Command roottask drives the host-build C10 bootstrap sequence.
package main

import (
	"fmt"
	"os"

	"github.com/cohesix/ninedoor/cmd/roottask/commands"
)

// Build-time metadata, injected via -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
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
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
