package pipeline

import (
	"context"
	"fmt"
	"sync"

	"kanban-cli/internal/model"
)

// fakeRemote records calls. When gate is non-nil every mutating call blocks until it is
// closed; fail makes every mutating call return that error.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	gate chan struct{}
	fail error

	tree     model.ProjectTree
	projects []model.Project
	nextID   int64

	placements [][]model.TaskPlacement
	patches    []model.TaskPatch
	reorders   [][]model.ReorderItem
}

func (f *fakeRemote) record(call string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate, fail := f.gate, f.fail
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return fail
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) id() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return 100 + f.nextID
}

func (f *fakeRemote) ListProjects(ctx context.Context) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "ListProjects")
	out := make([]model.Project, len(f.projects))
	copy(out, f.projects)
	return out, nil
}

func (f *fakeRemote) GetProject(ctx context.Context, id int64) (model.ProjectTree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "GetProject")
	if f.tree.ID != id {
		return model.ProjectTree{}, fmt.Errorf("project %d not found", id)
	}
	return f.tree, nil
}

func (f *fakeRemote) CreateProject(ctx context.Context, name string) (model.Project, error) {
	if err := f.record("CreateProject"); err != nil {
		return model.Project{}, err
	}
	return model.Project{ID: f.id(), Name: name, SortOrder: 9000}, nil
}

func (f *fakeRemote) RenameProject(ctx context.Context, id int64, name string) (model.Project, error) {
	if err := f.record("RenameProject"); err != nil {
		return model.Project{}, err
	}
	return model.Project{ID: id, Name: name}, nil
}

func (f *fakeRemote) DeleteProject(ctx context.Context, id int64) error {
	return f.record("DeleteProject")
}

func (f *fakeRemote) ReorderProjects(ctx context.Context, items []model.ReorderItem) error {
	f.mu.Lock()
	f.reorders = append(f.reorders, items)
	f.mu.Unlock()
	return f.record("ReorderProjects")
}

func (f *fakeRemote) CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error) {
	if err := f.record("CreateColumn"); err != nil {
		return model.Column{}, err
	}
	return model.Column{ID: f.id(), ProjectID: projectID, Name: name, SortOrder: 3000}, nil
}

func (f *fakeRemote) RenameColumn(ctx context.Context, id int64, name string) (model.Column, error) {
	if err := f.record("RenameColumn"); err != nil {
		return model.Column{}, err
	}
	return model.Column{ID: id, Name: name}, nil
}

func (f *fakeRemote) DeleteColumn(ctx context.Context, id int64) error {
	return f.record("DeleteColumn")
}

func (f *fakeRemote) ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error {
	f.mu.Lock()
	f.reorders = append(f.reorders, items)
	f.mu.Unlock()
	return f.record("ReorderColumns")
}

func (f *fakeRemote) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	if err := f.record("CreateTask"); err != nil {
		return model.Task{}, err
	}
	t := model.Task{ID: f.id(), ProjectID: in.ProjectID, ColumnID: in.ColumnID, Title: in.Title}
	if in.SortOrder != nil {
		t.SortOrder = *in.SortOrder
	}
	return t, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	f.mu.Lock()
	f.patches = append(f.patches, patch)
	f.mu.Unlock()
	if err := f.record("UpdateTask"); err != nil {
		return model.Task{}, err
	}
	return patch.Apply(model.Task{ID: id}), nil
}

func (f *fakeRemote) DeleteTask(ctx context.Context, id int64) error {
	return f.record("DeleteTask")
}

func (f *fakeRemote) BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) error {
	f.mu.Lock()
	f.placements = append(f.placements, items)
	f.mu.Unlock()
	return f.record("BulkUpdateTasks")
}
