package snapshot

import (
	"sort"

	"kanban-cli/internal/model"
	"kanban-cli/internal/sortkey"
)

// Snapshot is the complete in-memory tree of one project.
//
// Snapshots held by a Cache are treated as immutable: every builder below returns a new
// Snapshot with fresh slices on the path from the changed leaf to the root and shares
// untouched columns/tasks with its input.
type Snapshot model.ProjectTree

// FromTree builds a snapshot from a fetched tree. Columns and tasks are copied and sorted
// by sort_order, and every task's column_id is aligned with the column holding it.
func FromTree(t model.ProjectTree) *Snapshot {
	s := &Snapshot{Project: t.Project, Columns: make([]model.ColumnWithTasks, 0, len(t.Columns))}
	for _, c := range t.Columns {
		tasks := make([]model.Task, len(c.Tasks))
		copy(tasks, c.Tasks)
		for i := range tasks {
			tasks[i].ColumnID = c.ID
			tasks[i].ProjectID = c.ProjectID
		}
		sortTasks(tasks)
		s.Columns = append(s.Columns, model.ColumnWithTasks{Column: c.Column, Tasks: tasks})
	}
	sortColumns(s.Columns)
	return s
}

// Tree returns the snapshot as a wire tree. The result shares memory with s.
func (s *Snapshot) Tree() model.ProjectTree {
	if s == nil {
		return model.ProjectTree{}
	}
	return model.ProjectTree(*s)
}

func (s *Snapshot) ColumnIndex(columnID int64) int {
	for i := range s.Columns {
		if s.Columns[i].ID == columnID {
			return i
		}
	}
	return -1
}

func (s *Snapshot) Column(columnID int64) (model.ColumnWithTasks, bool) {
	i := s.ColumnIndex(columnID)
	if i < 0 {
		return model.ColumnWithTasks{}, false
	}
	return s.Columns[i], true
}

// Task locates a task by id.
func (s *Snapshot) Task(taskID int64) (task model.Task, colIdx, taskIdx int, ok bool) {
	for ci := range s.Columns {
		for ti := range s.Columns[ci].Tasks {
			if s.Columns[ci].Tasks[ti].ID == taskID {
				return s.Columns[ci].Tasks[ti], ci, ti, true
			}
		}
	}
	return model.Task{}, -1, -1, false
}

func (s *Snapshot) TaskCount() int {
	n := 0
	for _, c := range s.Columns {
		n += len(c.Tasks)
	}
	return n
}

// ColumnSiblings returns the columns as a sibling list in display order.
func (s *Snapshot) ColumnSiblings() []sortkey.Sibling {
	out := make([]sortkey.Sibling, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, sortkey.Sibling{ID: c.ID, SortOrder: c.SortOrder})
	}
	return out
}

// TaskSiblings returns the tasks of a column as a sibling list in display order.
func (s *Snapshot) TaskSiblings(columnID int64) []sortkey.Sibling {
	c, ok := s.Column(columnID)
	if !ok {
		return nil
	}
	out := make([]sortkey.Sibling, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, sortkey.Sibling{ID: t.ID, SortOrder: t.SortOrder})
	}
	return out
}

// shallow copies the project header and the column slice header; columns themselves are
// shared until replaced.
func (s *Snapshot) shallow() *Snapshot {
	cols := make([]model.ColumnWithTasks, len(s.Columns))
	copy(cols, s.Columns)
	return &Snapshot{Project: s.Project, Columns: cols}
}

func (s *Snapshot) WithProject(p model.Project) *Snapshot {
	out := s.shallow()
	out.Project = p
	return out
}

// WithColumnKeys reorders columns to the order of keys and assigns their sort_order.
// Columns not named in keys keep their key and are placed after the named ones.
func (s *Snapshot) WithColumnKeys(keys []sortkey.Key) *Snapshot {
	byID := make(map[int64]int64, len(keys))
	for _, k := range keys {
		byID[k.ID] = k.SortOrder
	}
	out := s.shallow()
	for i := range out.Columns {
		if k, ok := byID[out.Columns[i].ID]; ok && out.Columns[i].SortOrder != k {
			c := out.Columns[i]
			c.SortOrder = k
			out.Columns[i] = c
		}
	}
	sortColumns(out.Columns)
	return out
}

// AppendColumn adds a column (with no tasks) at the end.
func (s *Snapshot) AppendColumn(c model.Column) *Snapshot {
	out := s.shallow()
	out.Columns = append(out.Columns, model.ColumnWithTasks{Column: c, Tasks: []model.Task{}})
	sortColumns(out.Columns)
	return out
}

// ReplaceColumn swaps the column header identified by oldID for c, keeping its tasks and
// re-pointing them at c.ID.
func (s *Snapshot) ReplaceColumn(oldID int64, c model.Column) *Snapshot {
	i := s.ColumnIndex(oldID)
	if i < 0 {
		return s
	}
	out := s.shallow()
	tasks := out.Columns[i].Tasks
	if c.ID != oldID {
		moved := make([]model.Task, len(tasks))
		copy(moved, tasks)
		for ti := range moved {
			moved[ti].ColumnID = c.ID
		}
		tasks = moved
	}
	out.Columns[i] = model.ColumnWithTasks{Column: c, Tasks: tasks}
	sortColumns(out.Columns)
	return out
}

func (s *Snapshot) RenameColumn(columnID int64, name string) *Snapshot {
	i := s.ColumnIndex(columnID)
	if i < 0 {
		return s
	}
	c := s.Columns[i].Column
	c.Name = name
	return s.ReplaceColumn(columnID, c)
}

// RemoveColumn drops a column together with its tasks.
func (s *Snapshot) RemoveColumn(columnID int64) *Snapshot {
	i := s.ColumnIndex(columnID)
	if i < 0 {
		return s
	}
	cols := make([]model.ColumnWithTasks, 0, len(s.Columns)-1)
	cols = append(cols, s.Columns[:i]...)
	cols = append(cols, s.Columns[i+1:]...)
	return &Snapshot{Project: s.Project, Columns: cols}
}

// setTasks replaces the task slice of column index ci in out.
func setTasks(out *Snapshot, ci int, tasks []model.Task) {
	c := out.Columns[ci]
	c.Tasks = tasks
	out.Columns[ci] = c
}

// AddTask inserts t into its column, positioned by sort_order.
func (s *Snapshot) AddTask(t model.Task) *Snapshot {
	ci := s.ColumnIndex(t.ColumnID)
	if ci < 0 {
		return s
	}
	out := s.shallow()
	tasks := make([]model.Task, 0, len(s.Columns[ci].Tasks)+1)
	tasks = append(tasks, s.Columns[ci].Tasks...)
	tasks = append(tasks, t)
	sortTasks(tasks)
	setTasks(out, ci, tasks)
	return out
}

// UpdateTask replaces the task with the given id by fn(task). The task must stay in its
// column; use MoveTask to relocate it.
func (s *Snapshot) UpdateTask(taskID int64, fn func(model.Task) model.Task) *Snapshot {
	_, ci, ti, ok := s.Task(taskID)
	if !ok {
		return s
	}
	out := s.shallow()
	tasks := make([]model.Task, len(s.Columns[ci].Tasks))
	copy(tasks, s.Columns[ci].Tasks)
	next := fn(tasks[ti])
	next.ColumnID = s.Columns[ci].ID
	tasks[ti] = next
	sortTasks(tasks)
	setTasks(out, ci, tasks)
	return out
}

func (s *Snapshot) RemoveTask(taskID int64) *Snapshot {
	_, ci, ti, ok := s.Task(taskID)
	if !ok {
		return s
	}
	out := s.shallow()
	src := s.Columns[ci].Tasks
	tasks := make([]model.Task, 0, len(src)-1)
	tasks = append(tasks, src[:ti]...)
	tasks = append(tasks, src[ti+1:]...)
	setTasks(out, ci, tasks)
	return out
}

// MoveTask relocates a task to toColumnID and applies the planned keys of the source and
// destination lists. column_id and sort_order of the moved task change together.
func (s *Snapshot) MoveTask(taskID, toColumnID int64, source, dest []sortkey.Key) *Snapshot {
	task, fromCI, _, ok := s.Task(taskID)
	if !ok {
		return s
	}
	toCI := s.ColumnIndex(toColumnID)
	if toCI < 0 {
		return s
	}
	out := s.shallow()

	if fromCI != toCI {
		rest := make([]model.Task, 0, len(s.Columns[fromCI].Tasks))
		for _, t := range s.Columns[fromCI].Tasks {
			if t.ID != taskID {
				rest = append(rest, t)
			}
		}
		setTasks(out, fromCI, applyTaskKeys(rest, source))

		task.ColumnID = toColumnID
		dst := make([]model.Task, 0, len(s.Columns[toCI].Tasks)+1)
		dst = append(dst, s.Columns[toCI].Tasks...)
		dst = append(dst, task)
		setTasks(out, toCI, applyTaskKeys(dst, dest))
		return out
	}

	tasks := make([]model.Task, len(s.Columns[fromCI].Tasks))
	copy(tasks, s.Columns[fromCI].Tasks)
	setTasks(out, fromCI, applyTaskKeys(tasks, dest))
	return out
}

// ReplaceTask swaps the task identified by oldID for t (used when a provisional task is
// confirmed by the server).
func (s *Snapshot) ReplaceTask(oldID int64, t model.Task) *Snapshot {
	_, ci, _, ok := s.Task(oldID)
	if !ok {
		return s
	}
	if s.Columns[ci].ID != t.ColumnID {
		return s.RemoveTask(oldID).AddTask(t)
	}
	return s.UpdateTask(oldID, func(model.Task) model.Task { return t })
}

// applyTaskKeys assigns keys to the tasks it names (in place on a fresh slice) and sorts.
func applyTaskKeys(tasks []model.Task, keys []sortkey.Key) []model.Task {
	byID := make(map[int64]int64, len(keys))
	for _, k := range keys {
		byID[k.ID] = k.SortOrder
	}
	for i := range tasks {
		if k, ok := byID[tasks[i].ID]; ok {
			tasks[i].SortOrder = k
		}
	}
	sortTasks(tasks)
	return tasks
}

func sortColumns(cols []model.ColumnWithTasks) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].SortOrder != cols[j].SortOrder {
			return cols[i].SortOrder < cols[j].SortOrder
		}
		return cols[i].ID < cols[j].ID
	})
}

func sortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].SortOrder != tasks[j].SortOrder {
			return tasks[i].SortOrder < tasks[j].SortOrder
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// SortProjects sorts a project list by sort_order, then id.
func SortProjects(ps []model.Project) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].SortOrder != ps[j].SortOrder {
			return ps[i].SortOrder < ps[j].SortOrder
		}
		return ps[i].ID < ps[j].ID
	})
}

// ProjectSiblings returns a project list as a sibling list in display order.
func ProjectSiblings(ps []model.Project) []sortkey.Sibling {
	out := make([]sortkey.Sibling, 0, len(ps))
	for _, p := range ps {
		out = append(out, sortkey.Sibling{ID: p.ID, SortOrder: p.SortOrder})
	}
	return out
}

// WithProjectKeys returns a new, re-sorted project list with keys applied.
func WithProjectKeys(ps []model.Project, keys []sortkey.Key) []model.Project {
	byID := make(map[int64]int64, len(keys))
	for _, k := range keys {
		byID[k.ID] = k.SortOrder
	}
	out := make([]model.Project, len(ps))
	copy(out, ps)
	for i := range out {
		if k, ok := byID[out[i].ID]; ok {
			out[i].SortOrder = k
		}
	}
	SortProjects(out)
	return out
}
