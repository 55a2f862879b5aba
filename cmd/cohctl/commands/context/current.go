package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cohesix/ninedoor/internal/cli/credentials"
	"github.com/cohesix/ninedoor/internal/cli/output"
	"github.com/cohesix/ninedoor/internal/cli/timeutil"
)

var currentOutput string

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context",
	Long: `Display information about the current active context.

Examples:
  # Show current context
  cohctl context current

  # Show as JSON
  cohctl context current --output json`,
	RunE: runContextCurrent,
}

func init() {
	currentCmd.Flags().StringVarP(&currentOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize credential store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("no current context set\n\n" +
			"Attach to a server first:\n" +
			"  cohctl attach queen --server 127.0.0.1:5640 --secret <hex>")
	}

	ctx, err := store.GetContext(contextName)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	info := ContextInfo{
		Name:       contextName,
		Current:    true,
		ServerAddr: ctx.ServerAddr,
		Role:       ctx.Role,
		Subject:    ctx.Subject,
		Attached:   ctx.HasTicket() && !ctx.IsExpired(),
	}
	if !ctx.ExpiresAt.IsZero() {
		info.ExpiresAt = timeutil.FormatTime(ctx.ExpiresAt)
	}

	format, err := output.ParseFormat(currentOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		pairs := [][2]string{
			{"Context", contextName},
			{"Server", ctx.ServerAddr},
			{"Role", ctx.Role},
		}
		if ctx.Subject != "" {
			pairs = append(pairs, [2]string{"Subject", ctx.Subject})
		}
		if info.Attached {
			pairs = append(pairs,
				[2]string{"Attached", "yes"},
				[2]string{"Issued", timeutil.FormatTime(ctx.IssuedAt)},
				[2]string{"Expires", timeutil.FormatUntil(ctx.ExpiresAt)})
		} else {
			pairs = append(pairs, [2]string{"Attached", "no"})
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}
