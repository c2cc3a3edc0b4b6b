package store

import (
	"context"

	"kanban-cli/internal/model"
)

// Backend is the persistence surface served over HTTP. SQLite implements it; Cache wraps
// one with Redis-backed project reads.
type Backend interface {
	Ping(ctx context.Context) error

	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProjectTree(ctx context.Context, id int64) (model.ProjectTree, error)
	CreateProject(ctx context.Context, name string) (model.Project, error)
	RenameProject(ctx context.Context, id int64, name string) (model.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ReorderProjects(ctx context.Context, items []model.ReorderItem) error

	ListColumns(ctx context.Context, projectID int64) ([]model.Column, error)
	CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error)
	RenameColumn(ctx context.Context, id int64, name string) (model.Column, error)
	DeleteColumn(ctx context.Context, id int64) (int64, error)
	ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error

	ListTasks(ctx context.Context, projectID int64) ([]model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	CreateTask(ctx context.Context, in model.NewTask) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) (int64, error)
	BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) ([]int64, error)

	ListSubtasks(ctx context.Context, taskID int64) ([]model.Subtask, error)
	CreateSubtask(ctx context.Context, taskID int64, title string) (model.Subtask, error)
	UpdateSubtask(ctx context.Context, id int64, patch model.SubtaskPatch) (model.Subtask, error)
	DeleteSubtask(ctx context.Context, id int64) error

	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, name, color string) (model.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}

var _ Backend = (*SQLite)(nil)
