package context

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/cli/prompt"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Long: `Delete a saved server context.

This removes the stored server address and capability ticket for the
context.

Examples:
  # Delete context named "lab"
  cohctl context delete lab

  # Delete without confirmation
  cohctl context delete lab --force`,
	Args: cobra.ExactArgs(1),
	RunE: runContextDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "skip confirmation prompt")
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	contextName := args[0]

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	if _, err := store.GetContext(contextName); err != nil {
		if errors.Is(err, credentials.ErrContextNotFound) {
			return fmt.Errorf("context '%s' not found", contextName)
		}
		return err
	}

	ok, err := prompt.ConfirmWithForce(
		fmt.Sprintf("Delete context %q and its stored ticket?", contextName), deleteForce)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}
	if !ok {
		return nil
	}

	if err := store.DeleteContext(contextName); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}

	fmt.Printf("Deleted context %q\n", contextName)
	return nil
}
