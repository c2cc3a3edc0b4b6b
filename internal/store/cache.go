package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/model"
)

const (
	projectsCacheKey = "kanban:projects"
	treeCachePrefix  = "kanban:project:"
)

// Cache wraps a Backend with Redis-backed caching of the project list and project trees.
// Every write evicts the entries it can affect; Redis failures fall back to the backend.
type Cache struct {
	Backend
	redis *redis.Client
	ttl   time.Duration
	log   *log.Entry
}

func NewCache(base Backend, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("store.NewCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{Backend: base, redis: client, ttl: ttl, log: logger.WithField("component", "tree-cache")}
}

func treeCacheKey(id int64) string {
	return fmt.Sprintf("%s%d", treeCachePrefix, id)
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.Backend.Ping(ctx); err != nil {
		return err
	}
	if c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}

func (c *Cache) ListProjects(ctx context.Context) ([]model.Project, error) {
	var ps []model.Project
	if c.load(ctx, projectsCacheKey, &ps) {
		return ps, nil
	}
	ps, err := c.Backend.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectsCacheKey, ps)
	return ps, nil
}

func (c *Cache) GetProjectTree(ctx context.Context, id int64) (model.ProjectTree, error) {
	var tree model.ProjectTree
	if c.load(ctx, treeCacheKey(id), &tree) {
		return tree, nil
	}
	tree, err := c.Backend.GetProjectTree(ctx, id)
	if err != nil {
		return model.ProjectTree{}, err
	}
	c.store(ctx, treeCacheKey(id), tree)
	return tree, nil
}

func (c *Cache) CreateProject(ctx context.Context, name string) (model.Project, error) {
	p, err := c.Backend.CreateProject(ctx, name)
	if err == nil {
		c.evict(ctx, projectsCacheKey)
	}
	return p, err
}

func (c *Cache) RenameProject(ctx context.Context, id int64, name string) (model.Project, error) {
	p, err := c.Backend.RenameProject(ctx, id, name)
	if err == nil {
		c.evict(ctx, projectsCacheKey, treeCacheKey(id))
	}
	return p, err
}

func (c *Cache) DeleteProject(ctx context.Context, id int64) error {
	err := c.Backend.DeleteProject(ctx, id)
	if err == nil {
		c.evict(ctx, projectsCacheKey, treeCacheKey(id))
	}
	return err
}

func (c *Cache) ReorderProjects(ctx context.Context, items []model.ReorderItem) error {
	keys := []string{projectsCacheKey}
	for _, it := range items {
		keys = append(keys, treeCacheKey(it.ID))
	}
	err := c.Backend.ReorderProjects(ctx, items)
	if err == nil {
		c.evict(ctx, keys...)
	}
	return err
}

func (c *Cache) CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error) {
	col, err := c.Backend.CreateColumn(ctx, projectID, name)
	if err == nil {
		c.evict(ctx, treeCacheKey(projectID))
	}
	return col, err
}

func (c *Cache) RenameColumn(ctx context.Context, id int64, name string) (model.Column, error) {
	col, err := c.Backend.RenameColumn(ctx, id, name)
	if err == nil {
		c.evict(ctx, treeCacheKey(col.ProjectID))
	}
	return col, err
}

func (c *Cache) DeleteColumn(ctx context.Context, id int64) (int64, error) {
	projectID, err := c.Backend.DeleteColumn(ctx, id)
	if err == nil {
		c.evict(ctx, treeCacheKey(projectID))
	}
	return projectID, err
}

func (c *Cache) ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error {
	err := c.Backend.ReorderColumns(ctx, projectID, items)
	if err == nil {
		c.evict(ctx, treeCacheKey(projectID))
	}
	return err
}

func (c *Cache) CreateTask(ctx context.Context, in model.NewTask) (model.Task, error) {
	t, err := c.Backend.CreateTask(ctx, in)
	if err == nil {
		c.evict(ctx, treeCacheKey(t.ProjectID))
	}
	return t, err
}

func (c *Cache) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	t, err := c.Backend.UpdateTask(ctx, id, patch)
	if err == nil {
		c.evict(ctx, treeCacheKey(t.ProjectID))
	}
	return t, err
}

func (c *Cache) DeleteTask(ctx context.Context, id int64) (int64, error) {
	projectID, err := c.Backend.DeleteTask(ctx, id)
	if err == nil {
		c.evict(ctx, treeCacheKey(projectID))
	}
	return projectID, err
}

func (c *Cache) BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) ([]int64, error) {
	projects, err := c.Backend.BulkUpdateTasks(ctx, items)
	if err == nil {
		keys := make([]string, 0, len(projects))
		for _, id := range projects {
			keys = append(keys, treeCacheKey(id))
		}
		c.evict(ctx, keys...)
	}
	return projects, err
}

func (c *Cache) load(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Warn("redis get failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("redis set failed")
	}
}

func (c *Cache) evict(ctx context.Context, keys ...string) {
	if c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Warn("redis evict failed")
	}
}
