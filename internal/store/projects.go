package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"kanban-cli/internal/model"
)

func (s *SQLite) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, sort_order, created_at FROM projects ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		var (
			p       model.Project
			created string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.SortOrder, &created); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) GetProject(ctx context.Context, id int64) (model.Project, error) {
	return getProject(ctx, s.db, id)
}

func getProject(ctx context.Context, q queryer, id int64) (model.Project, error) {
	var (
		p       model.Project
		created string
	)
	err := q.QueryRowContext(ctx, `SELECT id, name, sort_order, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SortOrder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, NotFoundError{Kind: "project", ID: id}
	}
	if err != nil {
		return model.Project{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// GetProjectTree reads a project with its columns and their tasks, all in sort order.
func (s *SQLite) GetProjectTree(ctx context.Context, id int64) (model.ProjectTree, error) {
	p, err := s.GetProject(ctx, id)
	if err != nil {
		return model.ProjectTree{}, err
	}
	cols, err := s.ListColumns(ctx, id)
	if err != nil {
		return model.ProjectTree{}, err
	}
	tasks, err := s.ListTasks(ctx, id)
	if err != nil {
		return model.ProjectTree{}, err
	}

	tree := model.ProjectTree{Project: p, Columns: make([]model.ColumnWithTasks, 0, len(cols))}
	idx := make(map[int64]int, len(cols))
	for i, c := range cols {
		idx[c.ID] = i
		tree.Columns = append(tree.Columns, model.ColumnWithTasks{Column: c, Tasks: []model.Task{}})
	}
	for _, t := range tasks {
		if i, ok := idx[t.ColumnID]; ok {
			tree.Columns[i].Tasks = append(tree.Columns[i].Tasks, t)
		}
	}
	return tree, nil
}

// CreateProject appends a project and gives it the default columns.
func (s *SQLite) CreateProject(ctx context.Context, name string) (model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Project{}, InvalidError{Reason: "name must not be empty"}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Project{}, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := nextSortOrder(ctx, tx, "projects", "")
	if err != nil {
		return model.Project{}, err
	}
	created := now()
	res, err := tx.ExecContext(ctx, `INSERT INTO projects (name, sort_order, created_at) VALUES (?, ?, ?)`, name, order, created)
	if err != nil {
		return model.Project{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, err
	}
	for i, col := range DefaultColumns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO columns (project_id, name, sort_order, created_at) VALUES (?, ?, ?, ?)`,
			id, col, int64(i+1)*SortGap, created,
		); err != nil {
			return model.Project{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Project{}, err
	}
	return model.Project{ID: id, Name: name, SortOrder: order, CreatedAt: parseTime(created)}, nil
}

func (s *SQLite) RenameProject(ctx context.Context, id int64, name string) (model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Project{}, InvalidError{Reason: "name must not be empty"}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return model.Project{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Project{}, NotFoundError{Kind: "project", ID: id}
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project; columns, tasks and subtasks cascade.
func (s *SQLite) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: "project", ID: id}
	}
	return nil
}

// ReorderProjects applies every pair in one transaction.
func (s *SQLite) ReorderProjects(ctx context.Context, items []model.ReorderItem) error {
	return s.reorder(ctx, `UPDATE projects SET sort_order = ? WHERE id = ?`, items)
}

func (s *SQLite) reorder(ctx context.Context, stmt string, items []model.ReorderItem, extra ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, it := range items {
		args := append([]any{it.SortOrder, it.ID}, extra...)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
