package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
)

var catChunk uint32 = 4096

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Read a file's full contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func init() {
	catCmd.Flags().Uint32Var(&catChunk, "chunk", 4096, "bytes requested per Read call")
}

func runCat(cmd *cobra.Command, args []string) error {
	path := args[0]
	verb := "CAT"

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

	data, err := sess.client.ReadAll(sess.rootFid, splitPath(path), catChunk)
	if err != nil {
		ackErr("READ", err)
		return nil
	}
	fmt.Print(string(data))
	ackEnd()
	return nil
}
