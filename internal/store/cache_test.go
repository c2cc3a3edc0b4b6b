package store

import (
	"context"
	"io"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *SQLite, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := log.New()
	logger.SetOutput(io.Discard)
	db := openTestDB(t)
	return NewCache(db, client, time.Minute, logger), db, mr
}

func TestCache_TreeMissThenHit(t *testing.T) {
	c, db, mr := newTestCache(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")

	tree, err := c.GetProjectTree(ctx, p.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !mr.Exists(treeCacheKey(p.ID)) {
		t.Fatalf("expected tree to be cached")
	}
	if ttl := mr.TTL(treeCacheKey(p.ID)); ttl != time.Minute {
		t.Fatalf("unexpected ttl: %v", ttl)
	}

	// Write behind the cache's back: a hit must still serve the cached copy.
	if _, err := db.RenameProject(ctx, p.ID, "Renamed"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	cached, err := c.GetProjectTree(ctx, p.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if cached.Name != tree.Name {
		t.Fatalf("expected cached tree, got %q", cached.Name)
	}
}

func TestCache_WritesEvict(t *testing.T) {
	c, db, mr := newTestCache(t)
	ctx := context.Background()
	p, _ := db.CreateProject(ctx, "Board")
	cols, _ := db.ListColumns(ctx, p.ID)

	if _, err := c.GetProjectTree(ctx, p.ID); err != nil {
		t.Fatalf("tree: %v", err)
	}
	task, err := c.CreateTask(ctx, model.NewTask{ProjectID: p.ID, ColumnID: cols[0].ID, Title: "a"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if mr.Exists(treeCacheKey(p.ID)) {
		t.Fatalf("expected create to evict the tree")
	}

	if _, err := c.GetProjectTree(ctx, p.ID); err != nil {
		t.Fatalf("tree: %v", err)
	}
	if _, err := c.BulkUpdateTasks(ctx, []model.TaskPlacement{{ID: task.ID, ColumnID: cols[1].ID, SortOrder: 1000}}); err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	if mr.Exists(treeCacheKey(p.ID)) {
		t.Fatalf("expected bulk update to evict the tree")
	}

	tree, _ := c.GetProjectTree(ctx, p.ID)
	if len(tree.Columns[1].Tasks) != 1 {
		t.Fatalf("expected fresh tree after eviction, got %+v", tree.Columns)
	}
}

func TestCache_ProjectListEvictedOnCreate(t *testing.T) {
	c, _, mr := newTestCache(t)
	ctx := context.Background()

	if _, err := c.ListProjects(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !mr.Exists(projectsCacheKey) {
		t.Fatalf("expected list to be cached")
	}
	if _, err := c.CreateProject(ctx, "New"); err != nil {
		t.Fatalf("create: %v", err)
	}
	ps, _ := c.ListProjects(ctx)
	if len(ps) != 1 {
		t.Fatalf("expected new project in list, got %+v", ps)
	}
}

func TestCache_WithoutRedisFallsBack(t *testing.T) {
	db := openTestDB(t)
	c := NewCache(db, nil, time.Minute, nil)
	ctx := context.Background()
	p, _ := c.CreateProject(ctx, "Board")
	if _, err := c.GetProjectTree(ctx, p.ID); err != nil {
		t.Fatalf("tree: %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
