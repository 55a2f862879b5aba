package commands

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/cli/prompt"
	"github.com/cohesix/ninedoor/internal/ninedoor/client"
	"github.com/cohesix/ninedoor/internal/ninedoor/ticket"
)

var (
	attachSecretHex string
	attachSubject   string
)

var attachCmd = &cobra.Command{
	Use:   "attach <role> [ticket]",
	Short: "Attach to the server with a role and capability ticket",
	Long: `attach dials the configured server, negotiates Version, and attaches
with the given role. If ticket is supplied it is used as-is (a base64
capability ticket issued out of band). Otherwise a ticket is minted
client-side with full "/" read/write scope from the role secret — taken
from --secret (hex, matching one of the server's configured tickets
entries) or prompted for interactively when the flag is absent.

On success the ticket and server address are saved as the current
context, so subsequent cohctl commands (tail/ls/cat/echo/spawn) can
re-attach without repeating it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAttach,
}

func init() {
	attachCmd.Flags().StringVar(&attachSecretHex, "secret", "", "hex-encoded role secret used to self-issue a ticket")
	attachCmd.Flags().StringVar(&attachSubject, "subject", "", "ticket subject (required for worker_* roles)")
}

func runAttach(cmd *cobra.Command, args []string) error {
	role := args[0]
	verb := "ATTACH"

	var token string
	switch {
	case len(args) == 2:
		token = args[1]
	default:
		secretHex := attachSecretHex
		if secretHex == "" {
			// Interactive fallback: ask for the role secret rather than
			// requiring it on the command line where it lands in shell
			// history.
			entered, err := prompt.SecretHex(fmt.Sprintf("Role secret for %s", role))
			if err != nil {
				ackErr(verb, err)
				return nil
			}
			secretHex = entered
		}
		minted, err := mintTicket(role, attachSubject, secretHex)
		if err != nil {
			ackErr(verb, err)
			return nil
		}
		token = minted
	}

	if serverAddr == "" {
		err := fmt.Errorf("--server is required on first attach")
		ackErr(verb, err)
		return nil
	}

	c, err := client.Dial(serverAddr, time.Duration(dialTO)*time.Second)
	if err != nil {
		ackErr(verb, err)
		return nil
	}
	defer c.Close()

	if _, err := c.Version("cohctl/1"); err != nil {
		ackErr(verb, fmt.Errorf("version: %w", err))
		return nil
	}

	fid := c.NextFid()
	if _, err := c.Attach(fid, role, token); err != nil {
		ackErr(verb, err)
		return nil
	}
	_ = c.Clunk(fid)

	store, err := credentials.NewStore()
	if err != nil {
		return err
	}
	if err := store.SetContext("default", &credentials.Context{ServerAddr: serverAddr}); err != nil {
		return err
	}
	if err := store.UseContext("default"); err != nil {
		return err
	}
	if err := store.UpdateTicket(role, attachSubject, token, time.Now(), time.Now().Add(24*time.Hour)); err != nil {
		return err
	}

	ackOK(verb, fmt.Sprintf("role=%s", role))
	return nil
}

// mintTicket issues a locally-signed full-access ticket, grounded on
// ticket_test.go's Claims literal style.
func mintTicket(role, subject, secretHex string) (string, error) {
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("decode --secret: %w", err)
	}
	r := ticket.Role(role)
	claims := ticket.Claims{
		Role:      r,
		Subject:   subject,
		MountSpec: "/",
		Scopes: []ticket.Scope{
			{PathPrefix: "/", Verb: ticket.VerbRead},
			{PathPrefix: "/", Verb: ticket.VerbWrite},
		},
		Budget: ticket.DefaultBudgetFor(r),
	}
	raw, err := ticket.Issue(claims, secret)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
