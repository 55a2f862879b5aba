package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/ninedoor/client"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn <kind> [k=v ...]",
	Short: "Write a spawn command to /queen/ctl",
	Long: `spawn encodes kind and any k=v pairs into the /queen/ctl JSON command
schema and writes it (spec §4.5/§4.7's control.rs-derived spawn/kill/budget
variants). The only supported kind today is "heartbeat", taking a
required ticks=N pair and optional budget ttl_s=N/ops=N pairs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpawn,
}

func runSpawn(cmd *cobra.Command, args []string) error {
	kind := args[0]
	verb := "SPAWN"

	kv := map[string]string{}
	for _, pair := range args[1:] {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			ackErr(verb, fmt.Errorf("invalid k=v pair %q", pair))
			return nil
		}
		kv[k] = v
	}

	body, err := buildSpawnCommand(kind, kv)
	if err != nil {
		ackErr(verb, err)
		return nil
	}

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

	ctlFid := sess.client.NextFid()
	if _, err := sess.client.Walk(sess.rootFid, ctlFid, []string{"queen", "ctl"}); err != nil {
		ackErr(verb, fmt.Errorf("walk: %w", err))
		return nil
	}
	defer func() { _ = sess.client.Clunk(ctlFid) }()

	if _, _, err := sess.client.Open(ctlFid, client.OpenWrite); err != nil {
		ackErr(verb, fmt.Errorf("open: %w", err))
		return nil
	}
	if _, err := sess.client.Write(ctlFid, 0, body); err != nil {
		ackErr(verb, fmt.Errorf("write: %w", err))
		return nil
	}

	ackOK(verb, fmt.Sprintf("kind=%s", kind))
	return nil
}

type spawnBudgetFields struct {
	TTLSeconds *uint64 `json:"ttl_s,omitempty"`
	Ops        *uint64 `json:"ops,omitempty"`
}

type spawnCtlCommand struct {
	Spawn  string             `json:"spawn"`
	Ticks  uint64             `json:"ticks"`
	Budget *spawnBudgetFields `json:"budget,omitempty"`
}

func buildSpawnCommand(kind string, kv map[string]string) ([]byte, error) {
	if kind != "heartbeat" {
		return nil, fmt.Errorf("unsupported spawn kind %q", kind)
	}
	ticksStr, ok := kv["ticks"]
	if !ok {
		return nil, fmt.Errorf("spawn heartbeat requires ticks=N")
	}
	ticks, err := strconv.ParseUint(ticksStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ticks: %w", err)
	}

	cmd := spawnCtlCommand{Spawn: kind, Ticks: ticks}
	var budget spawnBudgetFields
	haveBudget := false
	if v, ok := kv["ttl_s"]; ok {
		ttl, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ttl_s: %w", err)
		}
		budget.TTLSeconds = &ttl
		haveBudget = true
	}
	if v, ok := kv["ops"]; ok {
		ops, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ops: %w", err)
		}
		budget.Ops = &ops
		haveBudget = true
	}
	if haveBudget {
		cmd.Budget = &budget
	}

	return json.Marshal(cmd)
}
