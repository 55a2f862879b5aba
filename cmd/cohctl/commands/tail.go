package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
)

var tailChunk uint32 = 4096

var tailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Drain an append-only ring to its current tail",
	Long: `tail walks to path, opens it for read, and repeatedly reads until the
ring is drained, printing each line as a body line followed by END —
the finite, non-restartable read spec §9 describes ("Tail/stream reads
are realised by repeated Read calls from the client").`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().Uint32Var(&tailChunk, "chunk", 4096, "bytes requested per Read call")
}

func runTail(cmd *cobra.Command, args []string) error {
	path := args[0]
	verb := "TAIL"

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	sess, _, err := openConsoleSession(store)
	if err != nil {
		ackErr(verb, err)
		return nil
	}
	defer sess.Close()

	ackOK(verb, fmt.Sprintf("path=%s", path))

	data, err := sess.client.ReadAll(sess.rootFid, splitPath(path), tailChunk)
	if err != nil {
		ackErr("READ", err)
		return nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		fmt.Println(line)
	}
	ackEnd()
	return nil
}
