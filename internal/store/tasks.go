package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"kanban-cli/internal/model"
)

const taskColumns = `id, project_id, column_id, title, description, priority, sort_order, source_tag, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		t                  model.Task
		desc, prio, source sql.NullString
		created            string
	)
	if err := r.Scan(&t.ID, &t.ProjectID, &t.ColumnID, &t.Title, &desc, &prio, &t.SortOrder, &source, &created); err != nil {
		return model.Task{}, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if prio.Valid {
		p := model.Priority(prio.String)
		t.Priority = &p
	}
	if source.Valid {
		st := model.SourceTag(source.String)
		t.SourceTag = &st
	}
	if ts := parseTime(created); !ts.IsZero() {
		t.CreatedAt = &ts
	}
	return t, nil
}

// ListTasks returns a project's tasks ordered by column position, then task position.
func (s *SQLite) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.project_id, t.column_id, t.title, t.description, t.priority, t.sort_order, t.source_tag, t.created_at
		FROM tasks t JOIN columns c ON c.id = t.column_id
		WHERE t.project_id = ?
		ORDER BY c.sort_order, c.id, t.sort_order, t.id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) GetTask(ctx context.Context, id int64) (model.Task, error) {
	return getTask(ctx, s.db, id)
}

func getTask(ctx context.Context, q queryer, id int64) (model.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, NotFoundError{Kind: "task", ID: id}
	}
	return t, err
}

// CreateTask inserts a task. Without an explicit sort_order it goes to the end of its
// column.
func (s *SQLite) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Task{}, InvalidError{Reason: "title must not be empty"}
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return model.Task{}, InvalidError{Reason: "invalid priority " + string(*in.Priority)}
	}
	if in.SourceTag != nil && !in.SourceTag.Valid() {
		return model.Task{}, InvalidError{Reason: "invalid source_tag " + string(*in.SourceTag)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	col, err := getColumn(ctx, tx, in.ColumnID)
	if err != nil {
		return model.Task{}, err
	}
	if col.ProjectID != in.ProjectID {
		return model.Task{}, InvalidError{Reason: "column does not belong to project"}
	}
	var order int64
	if in.SortOrder != nil {
		order = *in.SortOrder
	} else if order, err = nextSortOrder(ctx, tx, "tasks", "column_id = ?", in.ColumnID); err != nil {
		return model.Task{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (project_id, column_id, title, description, priority, sort_order, source_tag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ProjectID, in.ColumnID, in.Title, nullString(in.Description), nullPriority(in.Priority), order, nullSource(in.SourceTag), now(),
	)
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	t, err := getTask(ctx, tx, id)
	if err != nil {
		return model.Task{}, err
	}
	return t, tx.Commit()
}

// UpdateTask applies a partial update. A column change must stay inside the task's project.
func (s *SQLite) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Task{}, InvalidError{Reason: "title must not be empty"}
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return model.Task{}, InvalidError{Reason: "invalid priority " + string(*patch.Priority)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getTask(ctx, tx, id)
	if err != nil {
		return model.Task{}, err
	}
	if patch.ColumnID != nil && *patch.ColumnID != cur.ColumnID {
		col, err := getColumn(ctx, tx, *patch.ColumnID)
		if err != nil {
			return model.Task{}, err
		}
		if col.ProjectID != cur.ProjectID {
			return model.Task{}, InvalidError{Reason: "column does not belong to the task's project"}
		}
	}
	next := patch.Apply(cur)
	next.Title = strings.TrimSpace(next.Title)
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, column_id = ?, sort_order = ? WHERE id = ?`,
		next.Title, nullString(next.Description), nullPriority(next.Priority), next.ColumnID, next.SortOrder, id,
	); err != nil {
		return model.Task{}, err
	}
	return next, tx.Commit()
}

// DeleteTask removes a task and returns its project.
func (s *SQLite) DeleteTask(ctx context.Context, id int64) (int64, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return t.ProjectID, nil
}

// BulkUpdateTasks applies every placement in one transaction and returns the projects
// touched. A placement may not move a task into another project.
func (s *SQLite) BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	seen := map[int64]bool{}
	var projects []int64
	for _, it := range items {
		t, err := getTask(ctx, tx, it.ID)
		if err != nil {
			return nil, err
		}
		if it.ColumnID != t.ColumnID {
			col, err := getColumn(ctx, tx, it.ColumnID)
			if err != nil {
				return nil, err
			}
			if col.ProjectID != t.ProjectID {
				return nil, InvalidError{Reason: "column does not belong to the task's project"}
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET column_id = ?, sort_order = ? WHERE id = ?`, it.ColumnID, it.SortOrder, it.ID); err != nil {
			return nil, err
		}
		if !seen[t.ProjectID] {
			seen[t.ProjectID] = true
			projects = append(projects, t.ProjectID)
		}
	}
	return projects, tx.Commit()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullPriority(p *model.Priority) any {
	if p == nil {
		return nil
	}
	return string(*p)
}

func nullSource(s *model.SourceTag) any {
	if s == nil {
		return nil
	}
	return string(*s)
}
