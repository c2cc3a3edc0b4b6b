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

// CreateColumn appends a column to a project.
func (p *Pipeline) CreateColumn(ctx context.Context, projectID int64, name string) *Pending {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.reject(OpCreateColumn, projectID, errEmpty("name"))
	}

	provisionalID := p.nextProvisionalID()
	return p.runTree(ctx, treeMutation{
		op:        OpCreateColumn,
		projectID: projectID,
		fields:    log.Fields{"name": name},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			var attempted *snapshot.Snapshot
			if base != nil {
				var last int64
				if n := len(base.Columns); n > 0 {
					last = base.Columns[n-1].SortOrder
				}
				attempted = base.AppendColumn(model.Column{
					ID:        provisionalID,
					ProjectID: projectID,
					Name:      name,
					SortOrder: nextKey(len(base.Columns), last),
					CreatedAt: time.Now().UTC(),
				})
			}
			call := func(ctx context.Context) (remoteResult, error) {
				c, err := p.remote.CreateColumn(ctx, projectID, name)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{
					column: &c,
					reconcile: func(s *snapshot.Snapshot) *snapshot.Snapshot {
						return s.ReplaceColumn(provisionalID, c)
					},
				}, nil
			}
			return attempted, call, nil
		},
	})
}

func (p *Pipeline) RenameColumn(ctx context.Context, projectID, columnID int64, name string) *Pending {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.reject(OpRenameColumn, projectID, errEmpty("name"))
	}

	return p.runTree(ctx, treeMutation{
		op:        OpRenameColumn,
		projectID: projectID,
		fields:    log.Fields{"column_id": columnID},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			var attempted *snapshot.Snapshot
			if base != nil {
				col, ok := base.Column(columnID)
				if !ok {
					return nil, nil, errNotFound("column", columnID)
				}
				if col.Name == name {
					return nil, nil, nil
				}
				attempted = base.RenameColumn(columnID, name)
			}
			call := func(ctx context.Context) (remoteResult, error) {
				c, err := p.remote.RenameColumn(ctx, columnID, name)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{column: &c}, nil
			}
			return attempted, call, nil
		},
	})
}

// DeleteColumn removes a column; the server deletes its tasks with it.
func (p *Pipeline) DeleteColumn(ctx context.Context, projectID, columnID int64) *Pending {
	return p.runTree(ctx, treeMutation{
		op:        OpDeleteColumn,
		projectID: projectID,
		fields:    log.Fields{"column_id": columnID},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			var attempted *snapshot.Snapshot
			if base != nil {
				if base.ColumnIndex(columnID) < 0 {
					return nil, nil, errNotFound("column", columnID)
				}
				attempted = base.RemoveColumn(columnID)
			}
			call := func(ctx context.Context) (remoteResult, error) {
				return remoteResult{}, p.remote.DeleteColumn(ctx, columnID)
			}
			return attempted, call, nil
		},
	})
}

// MoveColumn moves one column to toIndex (its position after the move).
func (p *Pipeline) MoveColumn(ctx context.Context, projectID, columnID int64, toIndex int) *Pending {
	return p.runTree(ctx, treeMutation{
		op:        OpMoveColumn,
		projectID: projectID,
		needsBase: true,
		fields:    log.Fields{"column_id": columnID, "to_index": toIndex},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			if base.ColumnIndex(columnID) < 0 {
				return nil, nil, errNotFound("column", columnID)
			}
			plan, err := p.alloc.Reorder(base.ColumnSiblings(), columnID, toIndex)
			if err != nil {
				return nil, nil, err
			}
			return p.columnPlan(base, projectID, plan)
		},
	})
}

// ReorderColumns puts a project's columns in the given order. ids must name every column
// exactly once.
func (p *Pipeline) ReorderColumns(ctx context.Context, projectID int64, ids []int64) *Pending {
	if err := checkUnique("column ids", ids); err != nil {
		return p.reject(OpMoveColumn, projectID, err)
	}
	return p.runTree(ctx, treeMutation{
		op:        OpMoveColumn,
		projectID: projectID,
		needsBase: true,
		fields:    log.Fields{"columns": len(ids)},
		derive: func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error) {
			if err := checkComplete("column", ids, base.ColumnSiblings()); err != nil {
				return nil, nil, err
			}
			return p.columnPlan(base, projectID, planFullOrder(base.ColumnSiblings(), ids))
		},
	})
}

func (p *Pipeline) columnPlan(base *snapshot.Snapshot, projectID int64, plan sortkey.Plan) (*snapshot.Snapshot, remoteCall, error) {
	if len(plan.Changed) == 0 {
		return nil, nil, nil
	}
	items := p.reorderPayload(plan)
	call := func(ctx context.Context) (remoteResult, error) {
		return remoteResult{}, p.remote.ReorderColumns(ctx, projectID, items)
	}
	return base.WithColumnKeys(plan.Order), call, nil
}

// planFullOrder resequences sibs into the order of ids.
func planFullOrder(sibs []sortkey.Sibling, ids []int64) sortkey.Plan {
	current := make(map[int64]int64, len(sibs))
	for _, s := range sibs {
		current[s.ID] = s.SortOrder
	}
	plan := sortkey.Plan{Order: sortkey.Resequence(ids)}
	for _, k := range plan.Order {
		if current[k.ID] != k.SortOrder {
			plan.Changed = append(plan.Changed, k)
		}
	}
	return plan
}

func checkUnique(field string, ids []int64) error {
	if len(ids) == 0 {
		return errEmpty(field)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return ValidationError{Field: field, Reason: "duplicate id"}
		}
		seen[id] = true
	}
	return nil
}

func checkComplete(kind string, ids []int64, sibs []sortkey.Sibling) error {
	known := make(map[int64]bool, len(sibs))
	for _, s := range sibs {
		known[s.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return errNotFound(kind, id)
		}
	}
	if len(ids) != len(sibs) {
		return ValidationError{Field: kind + " ids", Reason: "must list every " + kind}
	}
	return nil
}
