package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"kanban-cli/internal/model"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "kanban.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateProject_DefaultColumnsAndAppend(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	p1, err := db.CreateProject(ctx, "One")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p2, err := db.CreateProject(ctx, "Two")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p1.SortOrder != 1000 || p2.SortOrder != 2000 {
		t.Fatalf("expected appended sort orders, got %d and %d", p1.SortOrder, p2.SortOrder)
	}

	cols, err := db.ListColumns(ctx, p1.ID)
	if err != nil {
		t.Fatalf("list columns: %v", err)
	}
	if len(cols) != len(DefaultColumns) || cols[0].Name != "Backlog" || cols[4].SortOrder != 5000 {
		t.Fatalf("unexpected default columns: %+v", cols)
	}

	if _, err := db.CreateProject(ctx, "  "); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestCreateTask_AppendsInColumn(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)

	high := model.PriorityHigh
	src := model.SourceCLI
	t1, err := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "first", Priority: &high, SourceTag: &src})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	t2, err := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "second", Description: model.StrPtr("notes")})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if t1.SortOrder != 1000 || t2.SortOrder != 2000 {
		t.Fatalf("expected 1000/2000, got %d/%d", t1.SortOrder, t2.SortOrder)
	}
	if t1.Priority == nil || *t1.Priority != model.PriorityHigh || t1.SourceTag == nil || *t1.SourceTag != model.SourceCLI {
		t.Fatalf("optional fields not stored: %+v", t1)
	}
	if t2.Description == nil || *t2.Description != "notes" || t2.CreatedAt == nil {
		t.Fatalf("unexpected task: %+v", t2)
	}

	bad := model.Priority("someday")
	if _, err := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "x", Priority: &bad}); err == nil {
		t.Fatalf("expected invalid priority to be rejected")
	}
}

func TestDeleteColumn_CascadesTasks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)
	task, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[1].ID, Title: "doomed"})

	projectID, err := db.DeleteColumn(ctx, cols[1].ID)
	if err != nil {
		t.Fatalf("delete column: %v", err)
	}
	if projectID != p.ID {
		t.Fatalf("expected owning project %d, got %d", p.ID, projectID)
	}
	if _, err := db.GetTask(ctx, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected task to be deleted with its column, got %v", err)
	}
}

func TestGetProjectTree_Ordered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)
	a, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "a"})
	b, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "b"})

	if err := db.ReorderColumns(ctx, p.ID, []model.ReorderItem{{ID: cols[0].ID, SortOrder: 9000}}); err != nil {
		t.Fatalf("reorder columns: %v", err)
	}
	if _, err := db.BulkUpdateTasks(ctx, []model.TaskPlacement{
		{ID: b.ID, ColumnID: cols[0].ID, SortOrder: 1000},
		{ID: a.ID, ColumnID: cols[0].ID, SortOrder: 2000},
	}); err != nil {
		t.Fatalf("bulk update: %v", err)
	}

	tree, err := db.GetProjectTree(ctx, p.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	last := tree.Columns[len(tree.Columns)-1]
	if last.ID != cols[0].ID {
		t.Fatalf("expected reordered column last, got %+v", tree.Columns)
	}
	if len(last.Tasks) != 2 || last.Tasks[0].ID != b.ID || last.Tasks[1].ID != a.ID {
		t.Fatalf("unexpected task order: %+v", last.Tasks)
	}
	if len(tree.Columns[0].Tasks) != 0 || tree.Columns[0].Tasks == nil {
		t.Fatalf("expected empty (non-nil) task list for other columns")
	}
}

func TestBulkUpdateTasks_RejectsForeignColumnAtomically(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p1, _ := db.CreateProject(ctx, "One")
	p2, _ := db.CreateProject(ctx, "Two")
	c1, _ := db.ListColumns(ctx, p1.ID)
	c2, _ := db.ListColumns(ctx, p2.ID)
	a, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p1.ID, ColumnID: c1[0].ID, Title: "a"})
	b, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p1.ID, ColumnID: c1[0].ID, Title: "b"})

	_, err := db.BulkUpdateTasks(ctx, []model.TaskPlacement{
		{ID: a.ID, ColumnID: c1[0].ID, SortOrder: 5000},
		{ID: b.ID, ColumnID: c2[0].ID, SortOrder: 1000},
	})
	var inv InvalidError
	if !errors.As(err, &inv) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	got, _ := db.GetTask(ctx, a.ID)
	if got.SortOrder != a.SortOrder {
		t.Fatalf("partial bulk update was persisted: %+v", got)
	}
}

func TestUpdateTask_Partial(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)
	task, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "a", Description: model.StrPtr("keep")})

	low := model.PriorityLow
	got, err := db.UpdateTask(ctx, task.ID, model.TaskPatch{Priority: &low, ColumnID: model.Int64Ptr(cols[2].ID)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "a" || got.Description == nil || *got.Description != "keep" || got.ColumnID != cols[2].ID {
		t.Fatalf("unexpected update result: %+v", got)
	}
	reread, _ := db.GetTask(ctx, task.ID)
	if reread.Priority == nil || *reread.Priority != model.PriorityLow {
		t.Fatalf("priority not persisted: %+v", reread)
	}
}

func TestSubtasksAndTags(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)
	task, _ := db.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "a"})

	st, err := db.CreateSubtask(ctx, task.ID, "step")
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	done := true
	st, err = db.UpdateSubtask(ctx, st.ID, model.SubtaskPatch{Done: &done})
	if err != nil || !st.Done || st.Title != "step" {
		t.Fatalf("update subtask: %+v %v", st, err)
	}

	if _, err := db.CreateTag(ctx, "bug", "#ff0000"); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := db.CreateTag(ctx, "bug", "#00ff00"); err == nil {
		t.Fatalf("expected duplicate tag to be rejected")
	}
	tags, _ := db.ListTags(ctx)
	if len(tags) != 1 {
		t.Fatalf("expected one tag, got %+v", tags)
	}

	if err := db.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	subs, _ := db.ListSubtasks(ctx, task.ID)
	if len(subs) != 0 {
		t.Fatalf("expected subtasks to cascade, got %+v", subs)
	}
}
