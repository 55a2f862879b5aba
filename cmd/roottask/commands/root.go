// Package commands implements the roottask CLI: a thin host-side driver for
// the C10 bootstrap sequencer, mirroring cmd/ninedoor/commands/root.go's
// subcommand-per-file cobra tree.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "roottask",
	Short: "Cohesix root-task bootstrap driver",
	Long: `roottask runs the single-shot root-task bootstrap sequence
(CSpaceCanonicalise -> BootInfoValidate -> MemoryLayoutBuild -> CSpaceRecord
-> IPCInstall -> UntypedPlan -> RetypeCommit -> UserlandHandoff) against a
host-simulated capability platform, validating a bootinfo record before
handing control to the ninedoor server it carves capabilities for.

Use "roottask [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to rootCmd and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/ninedoor/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
