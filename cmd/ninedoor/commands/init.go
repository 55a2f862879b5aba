package commands

import (
	"fmt"

	"github.com/cohesix/ninedoor/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample NineDoor configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/ninedoor/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  ninedoor init

  # Initialize with custom path
  ninedoor init --config /etc/ninedoor/config.yaml

  # Force overwrite existing config
  ninedoor init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		configPath = configFile
		err = config.InitConfigToPath(configFile, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: ninedoor start")
	fmt.Printf("  3. Or specify custom config: ninedoor start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random queen ticket secret has been generated for development use.")
	fmt.Println("  For production, generate secrets out of band and distribute them to")
	fmt.Println("  operators via cohctl attach rather than committing config.yaml.")

	return nil
}
