package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/cli/output"
	"github.com/cohesix/ninedoor/internal/cli/timeutil"
)

var listOutput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved contexts",
	Long: `List all saved server contexts.

Shows the context name, server address, and attached role for each saved
context. The current context is marked with an asterisk (*).

Examples:
  # List contexts as table
  cohctl context list

  # List as JSON
  cohctl context list -o json`,
	RunE: runContextList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// ContextInfo represents one saved context for output rendering.
type ContextInfo struct {
	Name       string `json:"name" yaml:"name"`
	Current    bool   `json:"current" yaml:"current"`
	ServerAddr string `json:"server_addr" yaml:"server_addr"`
	Role       string `json:"role,omitempty" yaml:"role,omitempty"`
	Subject    string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Attached   bool   `json:"attached" yaml:"attached"`
	ExpiresAt  string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// ContextList is a list of contexts for table rendering.
type ContextList []ContextInfo

// Headers implements output.TableRenderer.
func (cl ContextList) Headers() []string {
	return []string{"", "NAME", "SERVER", "ROLE", "ATTACHED", "EXPIRES"}
}

// Rows implements output.TableRenderer.
func (cl ContextList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		current := ""
		if c.Current {
			current = "*"
		}
		attached := "no"
		if c.Attached {
			attached = "yes"
		}
		rows = append(rows, []string{current, c.Name, c.ServerAddr, c.Role, attached, c.ExpiresAt})
	}
	return rows
}

func runContextList(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	format, err := output.ParseFormat(listOutput)
	if err != nil {
		return err
	}

	contextNames := store.ListContexts()
	currentContext := store.GetCurrentContextName()

	contexts := make(ContextList, 0, len(contextNames))
	for _, name := range contextNames {
		ctx, err := store.GetContext(name)
		if err != nil {
			continue
		}

		info := ContextInfo{
			Name:       name,
			Current:    name == currentContext,
			ServerAddr: ctx.ServerAddr,
			Role:       ctx.Role,
			Subject:    ctx.Subject,
			Attached:   ctx.HasTicket() && !ctx.IsExpired(),
		}
		if !ctx.ExpiresAt.IsZero() {
			info.ExpiresAt = timeutil.FormatTime(ctx.ExpiresAt)
		}
		contexts = append(contexts, info)
	}

	if len(contexts) == 0 && format == output.FormatTable {
		fmt.Println("No contexts saved. Use 'cohctl attach --server <addr>' to create one.")
		return nil
	}

	return output.NewPrinter(os.Stdout, format, false).Print(contexts)
}
