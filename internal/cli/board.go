package cli

import (
	"io"

	"github.com/spf13/cobra"

	"kanban-cli/internal/tui"
)

func newBoardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board for the linked project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			// Log lines would tear the alt screen.
			if !app.Verbose {
				s.log.SetOutput(io.Discard)
			}
			ctx := cmd.Context()
			p, err := s.project(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := tui.Run(ctx, s.pipe, p.ID); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
