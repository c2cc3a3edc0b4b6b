package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/docs"
)

func newDocsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in documentation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				topics := docs.Topics()
				return writeOut(cmd, app, map[string]any{"topics": topics},
					"Topics:\n  "+strings.Join(topics, "\n  ")+"\n\nRun: rk docs <topic>")
			}
			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic %q (run `rk docs` to list topics)", args[0]))
			}
			return writeOut(cmd, app, map[string]any{"topic": strings.ToLower(args[0]), "markdown": body}, strings.TrimRight(body, "\n"))
		},
	}
}
