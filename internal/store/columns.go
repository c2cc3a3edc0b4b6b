package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"kanban-cli/internal/model"
)

func (s *SQLite) ListColumns(ctx context.Context, projectID int64) ([]model.Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, name, sort_order, created_at FROM columns WHERE project_id = ? ORDER BY sort_order, id`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Column{}
	for rows.Next() {
		var (
			c       model.Column
			created string
		)
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.SortOrder, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) GetColumn(ctx context.Context, id int64) (model.Column, error) {
	return getColumn(ctx, s.db, id)
}

func getColumn(ctx context.Context, q queryer, id int64) (model.Column, error) {
	var (
		c       model.Column
		created string
	)
	err := q.QueryRowContext(ctx, `SELECT id, project_id, name, sort_order, created_at FROM columns WHERE id = ?`, id).
		Scan(&c.ID, &c.ProjectID, &c.Name, &c.SortOrder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Column{}, NotFoundError{Kind: "column", ID: id}
	}
	if err != nil {
		return model.Column{}, err
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}

// CreateColumn appends a column with max(sort_order)+1000.
func (s *SQLite) CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Column{}, InvalidError{Reason: "name must not be empty"}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Column{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := getProject(ctx, tx, projectID); err != nil {
		return model.Column{}, err
	}
	order, err := nextSortOrder(ctx, tx, "columns", "project_id = ?", projectID)
	if err != nil {
		return model.Column{}, err
	}
	created := now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO columns (project_id, name, sort_order, created_at) VALUES (?, ?, ?, ?)`,
		projectID, name, order, created,
	)
	if err != nil {
		return model.Column{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Column{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Column{}, err
	}
	return model.Column{ID: id, ProjectID: projectID, Name: name, SortOrder: order, CreatedAt: parseTime(created)}, nil
}

func (s *SQLite) RenameColumn(ctx context.Context, id int64, name string) (model.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Column{}, InvalidError{Reason: "name must not be empty"}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE columns SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return model.Column{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Column{}, NotFoundError{Kind: "column", ID: id}
	}
	return s.GetColumn(ctx, id)
}

// DeleteColumn removes a column and (by cascade) its tasks. It returns the owning project.
func (s *SQLite) DeleteColumn(ctx context.Context, id int64) (int64, error) {
	c, err := s.GetColumn(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, id); err != nil {
		return 0, err
	}
	return c.ProjectID, nil
}

// ReorderColumns applies every pair in one transaction. Ids outside the project are ignored.
func (s *SQLite) ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error {
	return s.reorder(ctx, `UPDATE columns SET sort_order = ? WHERE id = ? AND project_id = ?`, items, projectID)
}
