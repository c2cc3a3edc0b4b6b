package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"kanban-cli/internal/model"
)

func (s *SQLite) ListSubtasks(ctx context.Context, taskID int64) ([]model.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, title, done, sort_order FROM subtasks WHERE task_id = ? ORDER BY sort_order, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subtask{}
	for rows.Next() {
		var st model.Subtask
		if err := rows.Scan(&st.ID, &st.TaskID, &st.Title, &st.Done, &st.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func getSubtask(ctx context.Context, q queryer, id int64) (model.Subtask, error) {
	var st model.Subtask
	err := q.QueryRowContext(ctx, `SELECT id, task_id, title, done, sort_order FROM subtasks WHERE id = ?`, id).
		Scan(&st.ID, &st.TaskID, &st.Title, &st.Done, &st.SortOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subtask{}, NotFoundError{Kind: "subtask", ID: id}
	}
	return st, err
}

func (s *SQLite) CreateSubtask(ctx context.Context, taskID int64, title string) (model.Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Subtask{}, InvalidError{Reason: "title must not be empty"}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Subtask{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getTask(ctx, tx, taskID); err != nil {
		return model.Subtask{}, err
	}
	order, err := nextSortOrder(ctx, tx, "subtasks", "task_id = ?", taskID)
	if err != nil {
		return model.Subtask{}, err
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO subtasks (task_id, title, sort_order) VALUES (?, ?, ?)`, taskID, title, order)
	if err != nil {
		return model.Subtask{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Subtask{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Subtask{}, err
	}
	return model.Subtask{ID: id, TaskID: taskID, Title: title, SortOrder: order}, nil
}

func (s *SQLite) UpdateSubtask(ctx context.Context, id int64, patch model.SubtaskPatch) (model.Subtask, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Subtask{}, err
	}
	defer func() { _ = tx.Rollback() }()

	st, err := getSubtask(ctx, tx, id)
	if err != nil {
		return model.Subtask{}, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Subtask{}, InvalidError{Reason: "title must not be empty"}
		}
		st.Title = title
	}
	if patch.Done != nil {
		st.Done = *patch.Done
	}
	if _, err := tx.ExecContext(ctx, `UPDATE subtasks SET title = ?, done = ? WHERE id = ?`, st.Title, st.Done, id); err != nil {
		return model.Subtask{}, err
	}
	return st, tx.Commit()
}

func (s *SQLite) DeleteSubtask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: "subtask", ID: id}
	}
	return nil
}

func (s *SQLite) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateTag(ctx context.Context, name, color string) (model.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tag{}, InvalidError{Reason: "name must not be empty"}
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = "#6b7280"
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name, color) VALUES (?, ?)`, name, color)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return model.Tag{}, InvalidError{Reason: "tag already exists: " + name}
		}
		return model.Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Tag{}, err
	}
	return model.Tag{ID: id, Name: name, Color: color}, nil
}

func (s *SQLite) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: "tag", ID: id}
	}
	return nil
}
