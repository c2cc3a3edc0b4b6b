package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/model"
)

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Project commands",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsRenameCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsMoveCmd(app))
	cmd.AddCommand(newProjectsExportCmd(app))
	return cmd
}

func projectsText(ps []model.Project) string {
	if len(ps) == 0 {
		return "No projects found."
	}
	var b strings.Builder
	b.WriteString("Projects:")
	for _, p := range ps {
		fmt.Fprintf(&b, "\n  [%d] %s", p.ID, p.Name)
	}
	return b.String()
}

func newProjectsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ps, err := s.pipe.LoadProjects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, ps, projectsText(ps))
		},
	}
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project (with the default columns)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.pipe.CreateProject(cmd.Context(), args[0]).Wait(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			p := out.Project
			return writeOut(cmd, app, p, fmt.Sprintf("Created project '%s' (ID: %d)", p.Name, p.ID))
		},
	}
}

func newProjectsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <project> <name>",
		Short: "Rename a project",
		Args:  cobra.ExactArgs(2),
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
			out, err := s.pipe.RenameProject(ctx, p.ID, args[1]).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if out.NoOp {
				return writeOut(cmd, app, p, fmt.Sprintf("Project '%s' already has that name", p.Name))
			}
			return writeOut(cmd, app, out.Project, fmt.Sprintf("Renamed project %d to '%s'", p.ID, out.Project.Name))
		},
	}
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <project>",
		Short: "Delete a project with its columns and tasks",
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
			if _, err := s.pipe.DeleteProject(ctx, p.ID).Wait(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": p.ID}, fmt.Sprintf("Deleted project '%s' (ID: %d)", p.Name, p.ID))
		},
	}
}

func newProjectsMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <project> <position>",
		Short: "Move a project to a 1-based position in the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil || pos < 1 {
				return writeErr(cmd, fmt.Errorf("invalid position %q", args[1]))
			}
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
			out, err := s.pipe.MoveProject(ctx, p.ID, toIndex(pos, len(ps)-1)).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			after, _ := s.pipe.Cache().Projects()
			if out.AttemptedProjects != nil {
				after = out.AttemptedProjects
			}
			return writeOut(cmd, app, after, projectsText(after))
		},
	}
}
