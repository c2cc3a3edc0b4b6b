package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kanban-cli/internal/model"
	"kanban-cli/internal/publish"
)

func newProjectsExportCmd(app *App) *cobra.Command {
	var to string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "export [project]",
		Short: "Write a project board as markdown pages (index.md + tasks/<id>.md)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			var p model.Project
			if len(args) == 1 {
				ps, err := s.pipe.LoadProjects(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				if p, err = findProject(ps, args[0]); err != nil {
					return writeErr(cmd, err)
				}
			} else if p, err = s.project(ctx); err != nil {
				return writeErr(cmd, err)
			}

			snap, err := s.pipe.Refresh(ctx, p.ID)
			if err != nil {
				return writeErr(cmd, err)
			}
			subtasks := map[int64][]model.Subtask{}
			for _, c := range snap.Columns {
				for _, t := range c.Tasks {
					subs, err := s.client.ListSubtasks(ctx, t.ID)
					if err != nil {
						return writeErr(cmd, err)
					}
					subtasks[t.ID] = subs
				}
			}

			res, err := publish.WriteBoard(snap.Tree(), subtasks, to, publish.WriteOptions{Overwrite: overwrite})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res, fmt.Sprintf("Exported '%s' to %s (%d files)", p.Name, to, len(res.Written)))
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory (required)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
