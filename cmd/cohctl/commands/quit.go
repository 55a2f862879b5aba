package commands

import (
	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
)

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Clunk the attached fid and clear the current ticket",
	Long: `quit releases the current context's ticket (it does not stop the
server); re-attach to resume working against it.`,
	RunE: runQuit,
}

func runQuit(cmd *cobra.Command, args []string) error {
	verb := "QUIT"

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}

	if sess, _, err := openConsoleSession(store); err == nil {
		sess.Close()
	}

	if err := store.ClearCurrentContext(); err != nil {
		ackErr(verb, err)
		return nil
	}

	ackOK(verb, "")
	return nil
}
