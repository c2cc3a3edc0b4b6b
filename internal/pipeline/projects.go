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

// CreateProject adds a project at the end of the project list.
func (p *Pipeline) CreateProject(ctx context.Context, name string) *Pending {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.reject(OpCreateProject, 0, errEmpty("name"))
	}

	provisionalID := p.nextProvisionalID()
	return p.runList(ctx, listMutation{
		op:     OpCreateProject,
		fields: log.Fields{"name": name},
		derive: func(base []model.Project, present bool) ([]model.Project, remoteCall, error) {
			var attempted []model.Project
			if present {
				var last int64
				if n := len(base); n > 0 {
					last = base[n-1].SortOrder
				}
				attempted = make([]model.Project, 0, len(base)+1)
				attempted = append(attempted, base...)
				attempted = append(attempted, model.Project{
					ID:        provisionalID,
					Name:      name,
					SortOrder: nextKey(len(base), last),
					CreatedAt: time.Now().UTC(),
				})
			}
			call := func(ctx context.Context) (remoteResult, error) {
				created, err := p.remote.CreateProject(ctx, name)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{
					project: &created,
					reconcileProjects: func(ps []model.Project) []model.Project {
						return replaceProject(ps, provisionalID, created)
					},
				}, nil
			}
			return attempted, call, nil
		},
	})
}

// RenameProject renames a project in the list; a cached tree of the project is marked for
// revalidation once the server confirms.
func (p *Pipeline) RenameProject(ctx context.Context, projectID int64, name string) *Pending {
	name = strings.TrimSpace(name)
	if name == "" {
		return p.reject(OpRenameProject, projectID, errEmpty("name"))
	}

	return p.runList(ctx, listMutation{
		op:        OpRenameProject,
		projectID: projectID,
		derive: func(base []model.Project, present bool) ([]model.Project, remoteCall, error) {
			var attempted []model.Project
			if present {
				i := projectIndex(base, projectID)
				if i < 0 {
					return nil, nil, errNotFound("project", projectID)
				}
				if base[i].Name == name {
					return nil, nil, nil
				}
				renamed := base[i]
				renamed.Name = name
				attempted = replaceProject(base, projectID, renamed)
			}
			call := func(ctx context.Context) (remoteResult, error) {
				pr, err := p.remote.RenameProject(ctx, projectID, name)
				if err != nil {
					return remoteResult{}, err
				}
				return remoteResult{
					project: &pr,
					after:   func() { p.cache.Invalidate(projectID) },
				}, nil
			}
			return attempted, call, nil
		},
	})
}

// DeleteProject removes a project from the list and drops its cached tree once the server
// confirms.
func (p *Pipeline) DeleteProject(ctx context.Context, projectID int64) *Pending {
	return p.runList(ctx, listMutation{
		op:        OpDeleteProject,
		projectID: projectID,
		derive: func(base []model.Project, present bool) ([]model.Project, remoteCall, error) {
			var attempted []model.Project
			if present {
				i := projectIndex(base, projectID)
				if i < 0 {
					return nil, nil, errNotFound("project", projectID)
				}
				attempted = make([]model.Project, 0, len(base)-1)
				attempted = append(attempted, base[:i]...)
				attempted = append(attempted, base[i+1:]...)
			}
			call := func(ctx context.Context) (remoteResult, error) {
				if err := p.remote.DeleteProject(ctx, projectID); err != nil {
					return remoteResult{}, err
				}
				return remoteResult{after: func() { p.cache.Drop(projectID) }}, nil
			}
			return attempted, call, nil
		},
	})
}

// MoveProject moves one project to toIndex in the project list.
func (p *Pipeline) MoveProject(ctx context.Context, projectID int64, toIndex int) *Pending {
	return p.runList(ctx, listMutation{
		op:        OpMoveProject,
		projectID: projectID,
		needsBase: true,
		fields:    log.Fields{"to_index": toIndex},
		derive: func(base []model.Project, present bool) ([]model.Project, remoteCall, error) {
			if projectIndex(base, projectID) < 0 {
				return nil, nil, errNotFound("project", projectID)
			}
			plan, err := p.alloc.Reorder(snapshot.ProjectSiblings(base), projectID, toIndex)
			if err != nil {
				return nil, nil, err
			}
			return p.projectPlan(base, plan)
		},
	})
}

// ReorderProjects puts the project list in the given order. ids must name every project.
func (p *Pipeline) ReorderProjects(ctx context.Context, ids []int64) *Pending {
	if err := checkUnique("project ids", ids); err != nil {
		return p.reject(OpMoveProject, 0, err)
	}
	return p.runList(ctx, listMutation{
		op:        OpMoveProject,
		needsBase: true,
		fields:    log.Fields{"projects": len(ids)},
		derive: func(base []model.Project, present bool) ([]model.Project, remoteCall, error) {
			sibs := snapshot.ProjectSiblings(base)
			if err := checkComplete("project", ids, sibs); err != nil {
				return nil, nil, err
			}
			return p.projectPlan(base, planFullOrder(sibs, ids))
		},
	})
}

func (p *Pipeline) projectPlan(base []model.Project, plan sortkey.Plan) ([]model.Project, remoteCall, error) {
	if len(plan.Changed) == 0 {
		return nil, nil, nil
	}
	items := p.reorderPayload(plan)
	call := func(ctx context.Context) (remoteResult, error) {
		return remoteResult{}, p.remote.ReorderProjects(ctx, items)
	}
	return snapshot.WithProjectKeys(base, plan.Order), call, nil
}

func projectIndex(ps []model.Project, id int64) int {
	for i := range ps {
		if ps[i].ID == id {
			return i
		}
	}
	return -1
}

// replaceProject returns a copy of ps with the project oldID swapped for pr.
func replaceProject(ps []model.Project, oldID int64, pr model.Project) []model.Project {
	out := make([]model.Project, len(ps))
	copy(out, ps)
	if i := projectIndex(out, oldID); i >= 0 {
		out[i] = pr
	}
	snapshot.SortProjects(out)
	return out
}
