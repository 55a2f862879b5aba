package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/ninedoor/client"
)

// ackOK prints the spec §6 success acknowledgement line: "OK <VERB>[ <detail>]".
func ackOK(verb, detail string) {
	if detail == "" {
		fmt.Printf("OK %s\n", verb)
		return
	}
	fmt.Printf("OK %s %s\n", verb, detail)
}

// ackErr prints the spec §6 failure acknowledgement line: "ERR <VERB>[ <detail>]".
func ackErr(verb string, err error) {
	if err == nil {
		fmt.Printf("ERR %s\n", verb)
		return
	}
	fmt.Printf("ERR %s %s\n", verb, err.Error())
}

// ackEnd terminates a streamed body (tail/cat/ls).
func ackEnd() {
	fmt.Println("END")
}

// splitPath turns an absolute namespace path into walk components; "/" and
// "" both resolve to the root (zero components).
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// consoleSession bundles a dialled, version-negotiated, attached client
// together with the root fid every console verb walks from.
type consoleSession struct {
	client  *client.Client
	rootFid uint32
}

// openConsoleSession loads the current cohctl context, dials its server,
// negotiates Version, and re-attaches using the context's stored ticket —
// each cohctl invocation is its own process, so there is no long-lived
// connection to resume (spec §9 "no concurrency primitives exposed to
// clients" generalises naturally to one wire session per CLI invocation).
func openConsoleSession(store *credentials.Store) (*consoleSession, *credentials.Context, error) {
	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, nil, fmt.Errorf("no active context: %w (run 'cohctl attach' first)", err)
	}
	if !ctx.HasTicket() {
		return nil, nil, credentials.ErrNotAttached
	}

	addr := serverAddr
	if addr == "" {
		addr = ctx.ServerAddr
	}
	if addr == "" {
		return nil, nil, fmt.Errorf("no server address configured; pass --server or run 'cohctl attach'")
	}

	c, err := client.Dial(addr, time.Duration(dialTO)*time.Second)
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.Version("cohctl/1"); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("version negotiation: %w", err)
	}

	rootFid := c.NextFid()
	if _, err := c.Attach(rootFid, ctx.Role, ctx.Ticket); err != nil {
		_ = c.Close()
		return nil, nil, fmt.Errorf("attach: %w", err)
	}

	return &consoleSession{client: c, rootFid: rootFid}, ctx, nil
}

func (s *consoleSession) Close() {
	_ = s.client.Clunk(s.rootFid)
	_ = s.client.Close()
}
