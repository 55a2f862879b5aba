package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/ninedoor/wire"
)

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "Resolve a path and print its qid",
	Long: `ls walks to path and prints the resolved qid (type/version/path) as
its body line. The provider tree exposes no directory-enumeration
operation (spec §4.5 namespaces are closed tagged variants over a
resolved path, not listable directories), so ls is a stat, not a
listing.`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func runLs(cmd *cobra.Command, args []string) error {
	path := args[0]
	verb := "LS"

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

	newfid := sess.client.NextFid()
	qids, err := sess.client.Walk(sess.rootFid, newfid, splitPath(path))
	if err != nil {
		ackErr("WALK", err)
		return nil
	}
	defer func() { _ = sess.client.Clunk(newfid) }()

	q := wire.Qid{}
	if len(qids) > 0 {
		q = qids[len(qids)-1]
	}
	fmt.Printf("type=%d version=%d path=%d\n", q.Type, q.Version, q.Path)
	ackEnd()
	return nil
}
