package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/ninedoor/client"
)

// appendOffset is the append-only write sentinel (spec §4.5/§6): "the
// caller addresses it with offset=u64::MAX (append)".
const appendOffset = math.MaxUint64

var echoCmd = &cobra.Command{
	Use:   "echo <path> <body>",
	Short: "Write a line to a path",
	Long: `echo walks to path, opens it for append, and writes body using the
append-only offset sentinel. For non-append-only files the server
rejects a mismatched offset with Invalid; echo does not attempt a
random-offset write.`,
	Args: cobra.ExactArgs(2),
	RunE: runEcho,
}

func runEcho(cmd *cobra.Command, args []string) error {
	path, body := args[0], args[1]
	verb := "ECHO"

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

	target := sess.client.NextFid()
	if _, err := sess.client.Walk(sess.rootFid, target, splitPath(path)); err != nil {
		ackErr(verb, fmt.Errorf("walk: %w", err))
		return nil
	}
	defer func() { _ = sess.client.Clunk(target) }()

	if _, _, err := sess.client.Open(target, client.OpenAppend); err != nil {
		ackErr(verb, fmt.Errorf("open: %w", err))
		return nil
	}

	data := []byte(body + "\n")
	if _, err := sess.client.Write(target, appendOffset, data); err != nil {
		ackErr(verb, fmt.Errorf("write: %w", err))
		return nil
	}

	ackOK(verb, fmt.Sprintf("path=%s", path))
	return nil
}
