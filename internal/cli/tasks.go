package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kanban-cli/internal/model"
	"kanban-cli/internal/pipeline"
	"kanban-cli/internal/snapshot"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Task commands (linked project or --project)",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksMoveCmd(app))
	cmd.AddCommand(newTasksDoneCmd(app))
	cmd.AddCommand(newTasksDescribeCmd(app))
	cmd.AddCommand(newTasksRemoveCmd(app))
	return cmd
}

func taskLine(t model.Task) string {
	s := fmt.Sprintf("[%d] %s", t.ID, t.Title)
	if t.Priority != nil {
		s += " !" + string(*t.Priority)
	}
	return s
}

func boardText(p model.Project, snap *snapshot.Snapshot) string {
	if snap.TaskCount() == 0 {
		return fmt.Sprintf("No tasks in project '%s'.", p.Name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks in '%s':", p.Name)
	for _, c := range snap.Columns {
		if len(c.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n  %s:", c.Name)
		for _, t := range c.Tasks {
			b.WriteString("\n    " + taskLine(t))
		}
	}
	return b.String()
}

func columnName(snap *snapshot.Snapshot, id int64) string {
	if c, ok := snap.Column(id); ok {
		return c.Name
	}
	return fmt.Sprint(id)
}

func newTasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by column",
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
			return writeOut(cmd, app, snap.Tree(), boardText(p, snap))
		},
	}
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task>",
		Short: "Show a task with its subtasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			_, snap, err := s.board(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			subs, err := s.client.ListSubtasks(ctx, t.ID)
			if err != nil {
				return writeErr(cmd, err)
			}

			var b strings.Builder
			b.WriteString(taskLine(t))
			fmt.Fprintf(&b, "\n  column: %s", columnName(snap, t.ColumnID))
			if t.SourceTag != nil {
				fmt.Fprintf(&b, "\n  source: %s", *t.SourceTag)
			}
			if t.Description != nil && *t.Description != "" {
				b.WriteString("\n\n" + *t.Description)
			}
			if len(subs) > 0 {
				b.WriteString("\n\nSubtasks:")
				for _, st := range subs {
					mark := " "
					if st.Done {
						mark = "x"
					}
					fmt.Fprintf(&b, "\n  [%s] %s", mark, st.Title)
				}
			}
			return writeOut(cmd, app, map[string]any{"task": t, "subtasks": subs}, b.String())
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var column, description, priority, source string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task at the end of a column",
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

			var col model.ColumnWithTasks
			switch def := s.defaultColumnID(p.ID); {
			case column != "":
				col, err = findColumn(snap, column)
				if err != nil {
					return writeErr(cmd, err)
				}
			case def != 0 && snap.ColumnIndex(def) >= 0:
				col, _ = snap.Column(def)
			case len(snap.Columns) > 0:
				col = snap.Columns[0]
			default:
				return writeErr(cmd, fmt.Errorf("project '%s' has no columns", p.Name))
			}

			in := model.NewTask{ProjectID: p.ID, ColumnID: col.ID, Title: args[0]}
			if description != "" {
				in.Description = model.StrPtr(description)
			}
			if priority != "" {
				pr := model.Priority(strings.ToLower(priority))
				in.Priority = &pr
			}
			if source != "" {
				tag := model.SourceTag(strings.ToLower(source))
				in.SourceTag = &tag
			}

			out, err := s.pipe.CreateTask(ctx, in).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			t := out.Task
			return writeOut(cmd, app, t, fmt.Sprintf("Created task '%s' (ID: %d) in '%s' / %s", t.Title, t.ID, p.Name, col.Name))
		},
	}

	cmd.Flags().StringVarP(&column, "column", "c", "", "Column name or id (default: linked column, else the first)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVar(&priority, "priority", "", "urgent|high|medium|low")
	cmd.Flags().StringVarP(&source, "source", "t", string(model.SourceCLI), "Source tag (cli|manual|ai)")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var title, description, priority string

	cmd := &cobra.Command{
		Use:   "update <task>",
		Short: "Edit a task's title, description or priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = model.StrPtr(title)
			}
			if cmd.Flags().Changed("description") {
				patch.Description = model.StrPtr(description)
			}
			if cmd.Flags().Changed("priority") {
				pr := model.Priority(strings.ToLower(priority))
				patch.Priority = &pr
			}
			if patch.Empty() {
				return writeErr(cmd, fmt.Errorf("nothing to update; pass --title, --description or --priority"))
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
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := s.pipe.UpdateTask(ctx, p.ID, t.ID, patch).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if out.NoOp {
				return writeOut(cmd, app, t, fmt.Sprintf("Task '%s' unchanged", t.Title))
			}
			return writeOut(cmd, app, out.Task, fmt.Sprintf("Updated task '%s'", out.Task.Title))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (replaces the old one)")
	cmd.Flags().StringVar(&priority, "priority", "", "urgent|high|medium|low")
	return cmd
}

// moveTask moves t to the 1-based position in dest (0 = end) and reports the result.
func moveTask(cmd *cobra.Command, app *App, s *session, p model.Project, t model.Task, dest model.ColumnWithTasks, position int, verb string) error {
	ctx := cmd.Context()
	n := len(dest.Tasks)
	if dest.ID == t.ColumnID {
		n--
	}
	out, err := s.pipe.MoveTask(ctx, p.ID, pipeline.MoveTaskInput{
		TaskID:     t.ID,
		ToColumnID: dest.ID,
		ToIndex:    toIndex(position, n),
	}).Wait(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	data := map[string]any{"id": t.ID, "column_id": dest.ID, "noop": out.NoOp}
	if out.NoOp {
		return writeOut(cmd, app, data, fmt.Sprintf("Task '%s' is already there", t.Title))
	}
	if out.Attempted != nil {
		if moved, _, idx, ok := out.Attempted.Task(t.ID); ok {
			data["sort_order"] = moved.SortOrder
			data["position"] = idx + 1
		}
	}
	return writeOut(cmd, app, data, fmt.Sprintf("%s task '%s' to '%s'", verb, t.Title, dest.Name))
}

func newTasksMoveCmd(app *App) *cobra.Command {
	var position int

	cmd := &cobra.Command{
		Use:   "move <task> <column>",
		Short: "Move a task to a column (end of the column unless --position)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if position < 0 {
				return writeErr(cmd, fmt.Errorf("invalid position %d", position))
			}
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, snap, err := s.board(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			dest, err := findColumn(snap, args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			return moveTask(cmd, app, s, p, t, dest, position, "Moved")
		},
	}

	cmd.Flags().IntVar(&position, "position", 0, "1-based position in the column (0 = end)")
	return cmd
}

func newTasksDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <task>",
		Short: "Mark a task done (move it to the end of the last column)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, snap, err := s.board(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(snap.Columns) == 0 {
				return writeErr(cmd, fmt.Errorf("project '%s' has no columns", p.Name))
			}
			last := snap.Columns[len(snap.Columns)-1]
			return moveTask(cmd, app, s, p, t, last, 0, "Marked done: moved")
		},
	}
}

func newTasksDescribeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <task> <text>",
		Short: "Append a paragraph to a task's description",
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
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			desc := args[1]
			if t.Description != nil && strings.TrimSpace(*t.Description) != "" {
				desc = *t.Description + "\n\n" + args[1]
			}
			out, err := s.pipe.UpdateTask(ctx, p.ID, t.ID, model.TaskPatch{Description: &desc}).Wait(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out.Task, fmt.Sprintf("Updated description for task '%s'", t.Title))
		},
	}
}

func newTasksRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <task>",
		Aliases: []string{"rm"},
		Short:   "Delete a task by id or title",
		Args:    cobra.ExactArgs(1),
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
			t, err := findTask(snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if _, err := s.pipe.DeleteTask(ctx, p.ID, t.ID).Wait(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"id": t.ID}, fmt.Sprintf("Deleted task '%s' (ID: %d)", t.Title, t.ID))
		},
	}
}
