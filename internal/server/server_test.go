package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/api"
	"kanban-cli/internal/model"
	"kanban-cli/internal/pipeline"
	"kanban-cli/internal/server"
	"kanban-cli/internal/snapshot"
	"kanban-cli/internal/store"
)

type env struct {
	srv    *httptest.Server
	client *api.Client
	logger *log.Logger
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "data", "kanban.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := log.New()
	logger.SetOutput(io.Discard)

	backend := store.NewCache(db, rdb, time.Minute, logger)
	e := server.New(backend, logger, prometheus.NewRegistry())
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL, "")
	client.Log = logger
	return env{srv: srv, client: client, logger: logger}
}

func statusOf(err error) int {
	var ae *api.APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

func TestHealthAndMetrics(t *testing.T) {
	env := newEnv(t)
	if err := env.client.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}

	resp, err := http.Get(env.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `kanban_http_request_duration_seconds_count{method="GET",route="/health",status="200"} 1`) {
		t.Fatalf("health request not observed:\n%s", body)
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	p, err := env.client.CreateProject(ctx, "  Launch ")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	tree, err := env.client.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if tree.Name != "Launch" || len(tree.Columns) != len(store.DefaultColumns) {
		t.Fatalf("unexpected tree: %+v", tree)
	}

	if _, err := env.client.RenameProject(ctx, p.ID, "Launch v2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	tree, _ = env.client.GetProject(ctx, p.ID)
	if tree.Name != "Launch v2" {
		t.Fatalf("stale tree after rename: %q", tree.Name)
	}

	if err := env.client.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.client.GetProject(ctx, p.ID); !api.IsNotFound(err) {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	if _, err := env.client.CreateProject(ctx, "   "); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %v", err)
	}
	if _, err := env.client.GetTask(ctx, 999); !api.IsNotFound(err) {
		t.Fatalf("expected 404, got %v", err)
	}

	resp, err := http.Get(env.srv.URL + "/api/tasks/abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPut, env.srv.URL+"/api/tasks/bulk-update", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestBulkUpdateRejectsForeignColumn(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	a, _ := env.client.CreateProject(ctx, "A")
	b, _ := env.client.CreateProject(ctx, "B")
	treeA, _ := env.client.GetProject(ctx, a.ID)
	treeB, _ := env.client.GetProject(ctx, b.ID)

	task, err := env.client.CreateTask(ctx, model.NewTask{ProjectID: a.ID, ColumnID: treeA.Columns[0].ID, Title: "Ship"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	err = env.client.BulkUpdateTasks(ctx, []model.TaskPlacement{
		{ID: task.ID, ColumnID: treeB.Columns[0].ID, SortOrder: 1000},
	})
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	got, _ := env.client.GetTask(ctx, task.ID)
	if got.ColumnID != treeA.Columns[0].ID {
		t.Fatalf("task moved despite rejection: %+v", got)
	}
}

func TestSubtasksAndTags(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	p, _ := env.client.CreateProject(ctx, "P")
	tree, _ := env.client.GetProject(ctx, p.ID)
	task, _ := env.client.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: tree.Columns[0].ID, Title: "Parent"})

	sub, err := env.client.CreateSubtask(ctx, task.ID, "Child")
	if err != nil {
		t.Fatalf("create subtask: %v", err)
	}
	done := true
	if _, err := env.client.UpdateSubtask(ctx, sub.ID, model.SubtaskPatch{Done: &done}); err != nil {
		t.Fatalf("update subtask: %v", err)
	}
	subs, err := env.client.ListSubtasks(ctx, task.ID)
	if err != nil || len(subs) != 1 || !subs[0].Done {
		t.Fatalf("unexpected subtasks: %+v (%v)", subs, err)
	}

	if _, err := env.client.CreateTag(ctx, "bug", ""); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if _, err := env.client.CreateTag(ctx, "bug", ""); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("expected duplicate tag to be rejected, got %v", err)
	}
}

// The pipeline against the real service: speculative create and move end up persisted.
func TestPipelineMoveAgainstServer(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	p, _ := env.client.CreateProject(ctx, "Board")
	pipe := pipeline.New(snapshot.NewCache(), env.client, pipeline.Options{Logger: env.logger})
	snap, err := pipe.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	backlog, todo := snap.Columns[0].ID, snap.Columns[1].ID

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		out, err := pipe.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: backlog, Title: title}).Wait(ctx)
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		ids = append(ids, out.Task.ID)
	}

	if _, err := pipe.MoveTask(ctx, p.ID, pipeline.MoveTaskInput{TaskID: ids[0], ToColumnID: todo, ToIndex: 0}).Wait(ctx); err != nil {
		t.Fatalf("move across: %v", err)
	}
	if _, err := pipe.MoveTask(ctx, p.ID, pipeline.MoveTaskInput{TaskID: ids[2], ToColumnID: backlog, ToIndex: 0}).Wait(ctx); err != nil {
		t.Fatalf("move within: %v", err)
	}

	tree, err := env.client.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	titles := func(i int) []string {
		var out []string
		for _, task := range tree.Columns[i].Tasks {
			out = append(out, task.Title)
		}
		return out
	}
	if got := strings.Join(titles(0), ","); got != "three,two" {
		t.Fatalf("backlog order = %s", got)
	}
	if got := strings.Join(titles(1), ","); got != "one" {
		t.Fatalf("todo order = %s", got)
	}

	// The local snapshot agrees with the server once refreshed.
	snap, err = pipe.Refresh(ctx, p.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c, _ := snap.Column(todo); len(c.Tasks) != 1 || c.Tasks[0].ID != ids[0] {
		t.Fatalf("snapshot todo = %+v", c.Tasks)
	}
}
