// Package context implements the "cohctl context" command group: listing,
// inspecting, switching, and deleting the saved server contexts the attach
// command records in the credential store.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd returns the "context" command group for registration on the root.
func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage saved server contexts",
		Long: `Manage the server contexts cohctl attaches through.

A context pairs a ninedoor server address with the capability ticket last
attached against it. The current context is what tail/ls/cat/echo/spawn
use to re-attach.`,
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(currentCmd)
	cmd.AddCommand(useCmd)
	cmd.AddCommand(deleteCmd)

	return cmd
}
