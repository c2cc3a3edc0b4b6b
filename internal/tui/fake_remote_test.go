package tui

import (
	"context"
	"errors"
	"sync"

	"kanban-cli/internal/model"
)

// memRemote serves one fixed project tree and acknowledges every mutation. When fail is
// set, mutations return it instead.
type memRemote struct {
	mu    sync.Mutex
	tree  model.ProjectTree
	calls []string
	fail  error
	next  int64
}

func (r *memRemote) ack(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail
}

func (r *memRemote) called() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *memRemote) newID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return 500 + r.next
}

func (r *memRemote) ListProjects(ctx context.Context) ([]model.Project, error) {
	return []model.Project{r.tree.Project}, nil
}

func (r *memRemote) GetProject(ctx context.Context, id int64) (model.ProjectTree, error) {
	if id != r.tree.ID {
		return model.ProjectTree{}, errors.New("not found")
	}
	return r.tree, nil
}

func (r *memRemote) CreateProject(ctx context.Context, name string) (model.Project, error) {
	return model.Project{}, r.ack("CreateProject")
}

func (r *memRemote) RenameProject(ctx context.Context, id int64, name string) (model.Project, error) {
	return model.Project{ID: id, Name: name}, r.ack("RenameProject")
}

func (r *memRemote) DeleteProject(ctx context.Context, id int64) error {
	return r.ack("DeleteProject")
}

func (r *memRemote) ReorderProjects(ctx context.Context, items []model.ReorderItem) error {
	return r.ack("ReorderProjects")
}

func (r *memRemote) CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error) {
	if err := r.ack("CreateColumn"); err != nil {
		return model.Column{}, err
	}
	return model.Column{ID: r.newID(), ProjectID: projectID, Name: name, SortOrder: 99000}, nil
}

func (r *memRemote) RenameColumn(ctx context.Context, id int64, name string) (model.Column, error) {
	return model.Column{ID: id, Name: name}, r.ack("RenameColumn")
}

func (r *memRemote) DeleteColumn(ctx context.Context, id int64) error {
	return r.ack("DeleteColumn")
}

func (r *memRemote) ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error {
	return r.ack("ReorderColumns")
}

func (r *memRemote) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	if err := r.ack("CreateTask"); err != nil {
		return model.Task{}, err
	}
	t := model.Task{ID: r.newID(), ProjectID: in.ProjectID, ColumnID: in.ColumnID, Title: in.Title, SourceTag: in.SourceTag}
	if in.SortOrder != nil {
		t.SortOrder = *in.SortOrder
	}
	return t, nil
}

func (r *memRemote) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	if err := r.ack("UpdateTask"); err != nil {
		return model.Task{}, err
	}
	return patch.Apply(model.Task{ID: id, ProjectID: r.tree.ID}), nil
}

func (r *memRemote) DeleteTask(ctx context.Context, id int64) error {
	return r.ack("DeleteTask")
}

func (r *memRemote) BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) error {
	return r.ack("BulkUpdateTasks")
}

// sampleTree is project 1 with columns 10 (tasks 1,2,3) and 20 (task 4).
func sampleTree() model.ProjectTree {
	task := func(id, col, key int64, title string) model.Task {
		return model.Task{ID: id, ProjectID: 1, ColumnID: col, Title: title, SortOrder: key}
	}
	return model.ProjectTree{
		Project: model.Project{ID: 1, Name: "Demo", SortOrder: 1000},
		Columns: []model.ColumnWithTasks{
			{
				Column: model.Column{ID: 10, ProjectID: 1, Name: "Todo", SortOrder: 1000},
				Tasks:  []model.Task{task(1, 10, 1000, "first"), task(2, 10, 2000, "second"), task(3, 10, 3000, "third")},
			},
			{
				Column: model.Column{ID: 20, ProjectID: 1, Name: "Done", SortOrder: 2000},
				Tasks:  []model.Task{task(4, 20, 1000, "fourth")},
			},
		},
	}
}
