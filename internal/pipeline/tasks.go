package pipeline

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/model"
	"kanban-cli/internal/snapshot"
	"kanban-cli/internal/sortkey"
)

// CreateTask appends a task to the end of its column. While the request is in flight the
// cached snapshot holds a provisional copy with a negative id; on success it is swapped for
// the server record.
func (p *Pipeline) CreateTask(ctx context.Context, in model.NewTask) *Pending {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return p.reject(OpCreateTask, in.ProjectID, errEmpty("title"))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return p.reject(OpCreateTask, in.ProjectID, ValidationError{Field: "priority", Reason: "must be one of urgent, high, medium, low"})
	}
	if in.SourceTag != nil && !in.SourceTag.Valid() {
		return p.reject(OpCreateTask, in.ProjectID, ValidationError{Field: "source_tag", Reason: "must be one of cli, manual, ai"})
	}

	provisionalID := p.nextProvisionalID()
	return p.runTree(ctx, treeMutation{
		op:        OpCreateTask,
		projectID: in.ProjectID,
		fields:    log.Fields{"column_id": in.ColumnID},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			req := in
			var attempted *snapshot.Snapshot
			if base != nil {
				col, ok := base.Column(in.ColumnID)
				if !ok {
					return nil, nil, errNotFound("column", in.ColumnID)
				}
				if req.SortOrder == nil {
					req.SortOrder = model.Int64Ptr(nextKey(len(col.Tasks), lastTaskKey(col)))
				}
				now := time.Now().UTC()
				attempted = base.AddTask(model.Task{
					ID:          provisionalID,
					ProjectID:   in.ProjectID,
					ColumnID:    in.ColumnID,
					Title:       req.Title,
					Description: req.Description,
					Priority:    req.Priority,
					SortOrder:   *req.SortOrder,
					SourceTag:   req.SourceTag,
					CreatedAt:   &now,
				})
			}
			call := func(ctx context.Context) (remoteResult, error) {
				t, err := p.remote.CreateTask(ctx, req)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{
					task: &t,
					reconcile: func(s *snapshot.Snapshot) *snapshot.Snapshot {
						return s.ReplaceTask(provisionalID, t)
					},
				}, nil
			}
			return attempted, call, nil
		},
	})
}

// UpdateTask edits title, description or priority. Relocation goes through MoveTask.
func (p *Pipeline) UpdateTask(ctx context.Context, projectID, taskID int64, patch model.TaskPatch) *Pending {
	if patch.ColumnID != nil || patch.SortOrder != nil {
		return p.reject(OpUpdateTask, projectID, ValidationError{Field: "patch", Reason: "use a move to change column or position"})
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return p.reject(OpUpdateTask, projectID, errEmpty("title"))
		}
		patch.Title = &title
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return p.reject(OpUpdateTask, projectID, ValidationError{Field: "priority", Reason: "must be one of urgent, high, medium, low"})
	}

	return p.runTree(ctx, treeMutation{
		op:        OpUpdateTask,
		projectID: projectID,
		fields:    log.Fields{"task_id": taskID},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			var attempted *snapshot.Snapshot
			if base != nil {
				cur, _, _, ok := base.Task(taskID)
				if !ok {
					return nil, nil, errNotFound("task", taskID)
				}
				if !taskPatchChanges(cur, patch) {
					return nil, nil, nil
				}
				attempted = base.UpdateTask(taskID, patch.Apply)
			} else if patch.Empty() {
				return nil, nil, nil
			}
			call := func(ctx context.Context) (remoteResult, error) {
				t, err := p.remote.UpdateTask(ctx, taskID, patch)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{task: &t}, nil
			}
			return attempted, call, nil
		},
	})
}

func taskPatchChanges(t model.Task, patch model.TaskPatch) bool {
	if patch.Title != nil && *patch.Title != t.Title {
		return true
	}
	if patch.Description != nil && (t.Description == nil || *t.Description != *patch.Description) {
		return true
	}
	if patch.Priority != nil && (t.Priority == nil || *t.Priority != *patch.Priority) {
		return true
	}
	return false
}

type MoveTaskInput struct {
	TaskID     int64
	ToColumnID int64
	// ToIndex is the task's position in the destination column after the move.
	ToIndex int
}

// MoveTask relocates a task within or across columns of one project. Every task whose
// sort_order changes (in both columns) is sent to the server along with the moved task's
// new column_id.
func (p *Pipeline) MoveTask(ctx context.Context, projectID int64, in MoveTaskInput) *Pending {
	return p.runTree(ctx, treeMutation{
		op:        OpMoveTask,
		projectID: projectID,
		needsBase: true,
		fields:    log.Fields{"task_id": in.TaskID, "to_column_id": in.ToColumnID, "to_index": in.ToIndex},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			placements, attempted, err := p.planTaskMove(base, in)
			if err != nil || placements == nil {
				return nil, nil, err
			}
			call := func(ctx context.Context) (remoteResult, error) {
				if len(placements) == 1 {
					pl := placements[0]
					t, err := p.remote.UpdateTask(ctx, pl.ID, model.TaskPatch{
						ColumnID:  model.Int64Ptr(pl.ColumnID),
						SortOrder: model.Int64Ptr(pl.SortOrder),
					})
					if err != nil {
						return remoteResult{}, err
					}
					return remoteResult{task: &t}, nil
				}
				return remoteResult{}, p.remote.BulkUpdateTasks(ctx, placements)
			}
			return attempted, call, nil
		},
	})
}

// planTaskMove returns the placements to send and the snapshot reflecting them. A nil
// placement list means the move changes nothing.
func (p *Pipeline) planTaskMove(base *snapshot.Snapshot, in MoveTaskInput) ([]model.TaskPlacement, *snapshot.Snapshot, error) {
	task, fromCI, _, ok := base.Task(in.TaskID)
	if !ok {
		return nil, nil, errNotFound("task", in.TaskID)
	}
	if base.ColumnIndex(in.ToColumnID) < 0 {
		return nil, nil, errNotFound("column", in.ToColumnID)
	}
	fromColumnID := base.Columns[fromCI].ID

	var source, dest sortkey.Plan
	if fromColumnID == in.ToColumnID {
		plan, err := p.alloc.Reorder(base.TaskSiblings(fromColumnID), in.TaskID, in.ToIndex)
		if err != nil {
			return nil, nil, err
		}
		if len(plan.Changed) == 0 {
			return nil, nil, nil
		}
		dest = plan
	} else {
		rest := make([]sortkey.Sibling, 0)
		for _, s := range base.TaskSiblings(fromColumnID) {
			if s.ID != in.TaskID {
				rest = append(rest, s)
			}
		}
		source = p.alloc.Compact(rest)
		plan, err := p.alloc.Place(base.TaskSiblings(in.ToColumnID), sortkey.Sibling{ID: task.ID, SortOrder: task.SortOrder}, in.ToIndex)
		if err != nil {
			return nil, nil, err
		}
		dest = plan
	}

	var placements []model.TaskPlacement
	seen := map[int64]bool{}
	add := func(columnID int64, keys []sortkey.Key) {
		for _, k := range keys {
			if seen[k.ID] {
				continue
			}
			seen[k.ID] = true
			placements = append(placements, model.TaskPlacement{ID: k.ID, ColumnID: columnID, SortOrder: k.SortOrder})
		}
	}
	if movedKey, ok := dest.KeyOf(in.TaskID); ok {
		add(in.ToColumnID, []sortkey.Key{{ID: in.TaskID, SortOrder: movedKey}})
	}
	add(in.ToColumnID, dest.Changed)
	if fromColumnID != in.ToColumnID {
		add(fromColumnID, source.Changed)
	}

	return placements, base.MoveTask(in.TaskID, in.ToColumnID, source.Order, dest.Order), nil
}

// DeleteTask removes a task. Remaining siblings keep their keys.
func (p *Pipeline) DeleteTask(ctx context.Context, projectID, taskID int64) *Pending {
	return p.runTree(ctx, treeMutation{
		op:        OpDeleteTask,
		projectID: projectID,
		fields:    log.Fields{"task_id": taskID},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			var attempted *snapshot.Snapshot
			if base != nil {
				if _, _, _, ok := base.Task(taskID); !ok {
					return nil, nil, errNotFound("task", taskID)
				}
				attempted = base.RemoveTask(taskID)
			}
			call := func(ctx context.Context) (remoteResult, error) {
				return remoteResult{}, p.remote.DeleteTask(ctx, taskID)
			}
			return attempted, call, nil
		},
	})
}

func (p *Pipeline) reject(op Op, projectID int64, err error) *Pending {
	p.m.result(op, "rejected")
	p.log.WithFields(log.Fields{"op": op, "project_id": projectID}).WithError(err).Debug("mutation rejected")
	return settled(Outcome{Op: op, ProjectID: projectID}, err)
}

func lastTaskKey(c model.ColumnWithTasks) int64 {
	if len(c.Tasks) == 0 {
		return 0
	}
	return c.Tasks[len(c.Tasks)-1].SortOrder
}

// nextKey is the key for appending after a list of n items whose last key is last.
func nextKey(n int, last int64) int64 {
	if n == 0 {
		return sortkey.Gap
	}
	return last + sortkey.Gap
}
