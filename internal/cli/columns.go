package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/model"
	"kanban-cli/internal/snapshot"
)

func newColumnsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Column commands (linked project or --project)",
	}
	cmd.AddCommand(newColumnsListCmd(app))
	cmd.AddCommand(newColumnsCreateCmd(app))
	cmd.AddCommand(newColumnsRenameCmd(app))
	cmd.AddCommand(newColumnsDeleteCmd(app))
	cmd.AddCommand(newColumnsMoveCmd(app))
	return cmd
}

func columnsText(p model.Project, snap *snapshot.Snapshot, defaultColumn int64) string {
	if len(snap.Columns) == 0 {
		return fmt.Sprintf("No columns in project '%s'.", p.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Columns in '%s':", p.Name)
	for _, c := range snap.Columns {
		fmt.Fprintf(&b, "\n  [%d] %s (%d tasks)", c.ID, c.Name, len(c.Tasks))
		if c.ID == defaultColumn {
			b.WriteString(" (default)")
		}
	}
	return b.String()
}

func columnList(snap *snapshot.Snapshot) []model.Column {
	out := make([]model.Column, 0, len(snap.Columns))
	for _, c := range snap.Columns {
		out = append(out, c.Column)
	}
	return out
}

func newColumnsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, snap, err := s.board(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, columnList(snap), columnsText(p, snap, s.defaultColumnID(p.ID)))
		},
	}
}

func newColumnsCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, err := s.project(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.pipe.CreateColumn(ctx, p.ID, args[0]).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			c := out.Column
			return writeOut(cmd, app, c, fmt.Sprintf("Created column '%s' (ID: %d) in '%s'", c.Name, c.ID, p.Name))
		},
	}
}

func newColumnsRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <column> <name>",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, snap, err := s.board(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := findColumn(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.pipe.RenameColumn(ctx, p.ID, c.ID, args[1]).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if out.NoOp {
				return writeOut(cmd, app, c.Column, fmt.Sprintf("Column '%s' already has that name", c.Name))
			}
			return writeOut(cmd, app, out.Column, fmt.Sprintf("Renamed column '%s' to '%s'", c.Name, out.Column.Name))
		},
	}
}

func newColumnsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <column>",
		Short: "Delete a column and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			p, snap, err := s.board(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := findColumn(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := s.pipe.DeleteColumn(ctx, p.ID, c.ID).Wait(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": c.ID, "tasks_deleted": len(c.Tasks)},
				fmt.Sprintf("Deleted column '%s' and %d task(s)", c.Name, len(c.Tasks)))
		},
	}
}

func newColumnsMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <column> <position>",
		Short: "Move a column to a 1-based position on the board",
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
			p, snap, err := s.board(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := findColumn(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.pipe.MoveColumn(ctx, p.ID, c.ID, toIndex(pos, len(snap.Columns)-1)).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			after := snap
			if out.Attempted != nil {
				after = out.Attempted
			}
			return writeOut(cmd, app, columnList(after), columnsText(p, after, s.defaultColumnID(p.ID)))
		},
	}
}
