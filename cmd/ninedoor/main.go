// Command ninedoor serves a capability-brokered 9P2000-style namespace.
package main

import (
	"fmt"
	"os"

	"github.com/cohesix/ninedoor/cmd/ninedoor/commands"
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
