package snapshot

import (
	"sync"

	"kanban-cli/internal/model"
)

// ProjectsKey is the Change.ProjectID reported for writes to the top-level project list.
const ProjectsKey int64 = 0

type ChangeKind string

const (
	ChangeReplace    ChangeKind = "replace"
	ChangeInvalidate ChangeKind = "invalidate"
	ChangeDrop       ChangeKind = "drop"
)

// Change is published to subscribers after every write.
type Change struct {
	ProjectID int64
	Version   uint64
	Kind      ChangeKind
}

type entry struct {
	snap    *Snapshot
	version uint64
	stale   bool
}

type projectsEntry struct {
	list    []model.Project
	present bool
	version uint64
	stale   bool
}

// Cache holds at most one snapshot per project plus the top-level project list.
//
// Writes are last-write-wins. Values passed in and handed out are shared, not copied;
// callers derive new values through the Snapshot builders instead of mutating.
type Cache struct {
	mu       sync.Mutex
	entries  map[int64]*entry
	projects projectsEntry
	seq      uint64

	subs    map[int]chan Change
	nextSub int
}

func NewCache() *Cache {
	return &Cache{
		entries: map[int64]*entry{},
		subs:    map[int]chan Change{},
	}
}

// Read returns the current snapshot of a project, or false when it was never fetched
// (or has been dropped).
func (c *Cache) Read(projectID int64) (*Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[projectID]
	if !ok || e.snap == nil {
		return nil, false
	}
	return e.snap, true
}

// Replace overwrites the snapshot of a project and clears its stale mark.
func (c *Cache) Replace(projectID int64, s *Snapshot) uint64 {
	c.mu.Lock()
	if s == nil {
		c.mu.Unlock()
		c.Drop(projectID)
		return 0
	}
	v := c.nextVersionLocked()
	c.entries[projectID] = &entry{snap: s, version: v}
	c.mu.Unlock()

	c.publish(Change{ProjectID: projectID, Version: v, Kind: ChangeReplace})
	return v
}

// Patch derives a new snapshot from the current one with fn and stores it. fn runs under
// the cache lock and must not call back into the cache. When the project is absent fn is
// not called and ok is false.
func (c *Cache) Patch(projectID int64, fn func(*Snapshot) *Snapshot) (prev, next *Snapshot, ok bool) {
	c.mu.Lock()
	e, found := c.entries[projectID]
	if !found || e.snap == nil {
		c.mu.Unlock()
		return nil, nil, false
	}
	prev = e.snap
	next = fn(prev)
	if next == nil {
		c.mu.Unlock()
		return prev, prev, true
	}
	v := c.nextVersionLocked()
	c.entries[projectID] = &entry{snap: next, version: v, stale: e.stale}
	c.mu.Unlock()

	c.publish(Change{ProjectID: projectID, Version: v, Kind: ChangeReplace})
	return prev, next, true
}

// Invalidate marks a project for revalidation. The snapshot stays readable until the next
// Replace supersedes it.
func (c *Cache) Invalidate(projectID int64) {
	c.mu.Lock()
	e, ok := c.entries[projectID]
	if !ok {
		c.mu.Unlock()
		return
	}
	e.stale = true
	v := e.version
	c.mu.Unlock()

	c.publish(Change{ProjectID: projectID, Version: v, Kind: ChangeInvalidate})
}

func (c *Cache) Stale(projectID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[projectID]
	return ok && e.stale
}

// Version returns the version of the last write to a project (0 when absent).
func (c *Cache) Version(projectID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[projectID]; ok {
		return e.version
	}
	return 0
}

// Drop discards a project's snapshot (view torn down, project deleted).
func (c *Cache) Drop(projectID int64) {
	c.mu.Lock()
	if _, ok := c.entries[projectID]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.entries, projectID)
	v := c.nextVersionLocked()
	c.mu.Unlock()

	c.publish(Change{ProjectID: projectID, Version: v, Kind: ChangeDrop})
}

// Projects returns the cached project list in display order.
func (c *Cache) Projects() ([]model.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.projects.present {
		return nil, false
	}
	return c.projects.list, true
}

func (c *Cache) ReplaceProjects(ps []model.Project) uint64 {
	list := make([]model.Project, len(ps))
	copy(list, ps)
	SortProjects(list)

	c.mu.Lock()
	v := c.nextVersionLocked()
	c.projects = projectsEntry{list: list, present: true, version: v}
	c.mu.Unlock()

	c.publish(Change{ProjectID: ProjectsKey, Version: v, Kind: ChangeReplace})
	return v
}

// PatchProjects is Patch for the project list. fn must return a new slice; nil leaves
// the list untouched.
func (c *Cache) PatchProjects(fn func([]model.Project) []model.Project) (prev, next []model.Project, ok bool) {
	c.mu.Lock()
	if !c.projects.present {
		c.mu.Unlock()
		return nil, nil, false
	}
	prev = c.projects.list
	next = fn(prev)
	if next == nil {
		c.mu.Unlock()
		return prev, prev, true
	}
	v := c.nextVersionLocked()
	c.projects = projectsEntry{list: next, present: true, version: v, stale: c.projects.stale}
	c.mu.Unlock()

	c.publish(Change{ProjectID: ProjectsKey, Version: v, Kind: ChangeReplace})
	return prev, next, true
}

func (c *Cache) InvalidateProjects() {
	c.mu.Lock()
	if !c.projects.present {
		c.mu.Unlock()
		return
	}
	c.projects.stale = true
	v := c.projects.version
	c.mu.Unlock()

	c.publish(Change{ProjectID: ProjectsKey, Version: v, Kind: ChangeInvalidate})
}

func (c *Cache) ProjectsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projects.present && c.projects.stale
}

// Subscribe returns a channel receiving every Change and a cancel func. Slow subscribers
// miss changes instead of blocking writers.
func (c *Cache) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 64)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

func (c *Cache) nextVersionLocked() uint64 {
	c.seq++
	return c.seq
}

func (c *Cache) publish(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		select {
		case sub <- ch:
		default:
		}
	}
}
