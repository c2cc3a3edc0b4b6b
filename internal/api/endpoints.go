package api

import (
	"context"
	"fmt"
	"net/http"

	"kanban-cli/internal/model"
)

type nameRequest struct {
	Name string `json:"name"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject returns the project with all its columns and tasks.
func (c *Client) GetProject(ctx context.Context, id int64) (model.ProjectTree, error) {
	var out model.ProjectTree
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, name string) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPost, "/api/projects", nameRequest{Name: name}, &out)
	return out, err
}

func (c *Client) RenameProject(ctx context.Context, id int64, name string) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%d", id), nameRequest{Name: name}, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), nil, nil)
}

func (c *Client) ReorderProjects(ctx context.Context, items []model.ReorderItem) error {
	return c.do(ctx, http.MethodPut, "/api/projects/reorder", items, nil)
}

func (c *Client) ListColumns(ctx context.Context, projectID int64) ([]model.Column, error) {
	var out []model.Column
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/columns", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error) {
	var out model.Column
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/columns", projectID), nameRequest{Name: name}, &out)
	return out, err
}

func (c *Client) RenameColumn(ctx context.Context, id int64, name string) (model.Column, error) {
	var out model.Column
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/columns/%d", id), nameRequest{Name: name}, &out)
	return out, err
}

func (c *Client) DeleteColumn(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/columns/%d", id), nil, nil)
}

func (c *Client) ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/projects/%d/columns/reorder", projectID), items, nil)
}

func (c *Client) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/tasks", projectID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/tasks", in.ProjectID), in, &out)
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), patch, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

// BulkUpdateTasks applies column/position placements for several tasks in one transaction.
func (c *Client) BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/bulk-update", items, nil)
}

func (c *Client) ListSubtasks(ctx context.Context, taskID int64) ([]model.Subtask, error) {
	var out []model.Subtask
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/subtasks", taskID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSubtask(ctx context.Context, taskID int64, title string) (model.Subtask, error) {
	var out model.Subtask
	body := struct {
		Title string `json:"title"`
	}{Title: title}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/subtasks", taskID), body, &out)
	return out, err
}

func (c *Client) UpdateSubtask(ctx context.Context, id int64, patch model.SubtaskPatch) (model.Subtask, error) {
	var out model.Subtask
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/subtasks/%d", id), patch, &out)
	return out, err
}

func (c *Client) DeleteSubtask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/subtasks/%d", id), nil, nil)
}

func (c *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var out []model.Tag
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTag(ctx context.Context, name, color string) (model.Tag, error) {
	var out model.Tag
	err := c.do(ctx, http.MethodPost, "/api/tags", model.Tag{Name: name, Color: color}, &out)
	return out, err
}

func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tags/%d", id), nil, nil)
}
