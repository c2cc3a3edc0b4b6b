package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"kanban-cli/internal/config"
)

func newLinkCmd(app *App) *cobra.Command {
	var column string

	cmd := &cobra.Command{
		Use:   "link <project>",
		Short: "Link the current directory to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			ps, err := s.pipe.LoadProjects(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := findProject(ps, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			l := config.Link{ProjectID: p.ID}
			colName := ""
			if column != "" {
				snap, err := s.pipe.Load(ctx, p.ID)
				if err != nil {
					return writeErr(cmd, err)
				}
				c, err := findColumn(snap, column)
				if err != nil {
					return writeErr(cmd, err)
				}
				l.ColumnID, colName = c.ID, c.Name
			}

			cfg, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg.SetLink(app.Dir, l)
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}

			text := fmt.Sprintf("Linked '%s' to project '%s' (ID: %d)", app.Dir, p.Name, p.ID)
			if colName != "" {
				text += fmt.Sprintf("\nDefault column: %s", colName)
			}
			return writeOut(cmd, app, map[string]any{
				"dir":        app.Dir,
				"project_id": p.ID,
				"column_id":  l.ColumnID,
			}, text)
		},
	}

	cmd.Flags().StringVarP(&column, "column", "c", "", "Default column for new tasks (name or id)")
	return cmd
}

func newUnlinkCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink",
		Short: "Remove the current directory's project link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			if !cfg.Unlink(app.Dir) {
				return writeErr(cmd, notLinkedError{dir: app.Dir})
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"dir": app.Dir}, fmt.Sprintf("Unlinked '%s'", app.Dir))
		},
	}
}
