// Package commands implements cohctl: a minimal operator console that talks
// Secure9P binary wire frames to a running ninedoor server and renders the
// spec's OK/ERR/END console acknowledgement grammar, standing in for the
// cohsh shell only to the extent needed to drive and test the server
// end-to-end (§5/§6).
package commands

import (
	"os"

	"github.com/spf13/cobra"

	contextcmd "github.com/cohesix/ninedoor/cmd/cohctl/commands/context"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	serverAddr string
	dialTO     = 5
)

var rootCmd = &cobra.Command{
	Use:   "cohctl",
	Short: "Operator console for the NineDoor capability-brokered namespace server",
	Long: `cohctl attaches to a ninedoor server over the Secure9P wire codec and
issues one namespace operation per invocation, printing the OK/ERR/END
console acknowledgement lines the spec's CLI surface defines (§6).

Use "cohctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "ninedoor server address (default: stored context)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(tailCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(spawnCmd)
	rootCmd.AddCommand(quitCmd)
	rootCmd.AddCommand(contextcmd.Cmd())

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
