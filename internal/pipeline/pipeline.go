package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/model"
	"kanban-cli/internal/snapshot"
	"kanban-cli/internal/sortkey"
)

// Remote is the persistence service as seen by the pipeline.
type Remote interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id int64) (model.ProjectTree, error)
	CreateProject(ctx context.Context, name string) (model.Project, error)
	RenameProject(ctx context.Context, id int64, name string) (model.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ReorderProjects(ctx context.Context, items []model.ReorderItem) error

	CreateColumn(ctx context.Context, projectID int64, name string) (model.Column, error)
	RenameColumn(ctx context.Context, id int64, name string) (model.Column, error)
	DeleteColumn(ctx context.Context, id int64) error
	ReorderColumns(ctx context.Context, projectID int64, items []model.ReorderItem) error

	CreateTask(ctx context.Context, in model.NewTask) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	BulkUpdateTasks(ctx context.Context, items []model.TaskPlacement) error
}

type Op string

const (
	OpCreateTask    Op = "create_task"
	OpUpdateTask    Op = "update_task"
	OpMoveTask      Op = "move_task"
	OpDeleteTask    Op = "delete_task"
	OpCreateColumn  Op = "create_column"
	OpRenameColumn  Op = "rename_column"
	OpDeleteColumn  Op = "delete_column"
	OpMoveColumn    Op = "move_column"
	OpCreateProject Op = "create_project"
	OpRenameProject Op = "rename_project"
	OpDeleteProject Op = "delete_project"
	OpMoveProject   Op = "move_project"
)

// Outcome describes a settled mutation. Previous is the snapshot captured right before
// the speculative apply and Attempted the one written in its place; both are nil when the
// project was not cached and speculation was skipped.
type Outcome struct {
	Op        Op
	ProjectID int64

	Previous  *snapshot.Snapshot
	Attempted *snapshot.Snapshot

	PreviousProjects  []model.Project
	AttemptedProjects []model.Project

	Speculative bool
	RolledBack  bool
	NoOp        bool

	// Server records returned by create/update calls.
	Project *model.Project
	Column  *model.Column
	Task    *model.Task
}

// Pending is an in-flight mutation. Its speculative state (if any) is already visible in
// the cache when the pipeline returns it.
type Pending struct {
	done chan struct{}
	out  Outcome
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func settled(out Outcome, err error) *Pending {
	p := newPending()
	p.settle(out, err)
	return p
}

func (p *Pending) settle(out Outcome, err error) {
	p.out = out
	p.err = err
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the mutation settles or ctx ends. A ctx ending here does not cancel
// the mutation itself.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.out, p.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

type Options struct {
	Policy     sortkey.Policy
	Logger     *log.Logger
	Registerer prometheus.Registerer
}

// Pipeline applies board mutations speculatively to a snapshot cache, dispatches them to
// the remote store and reconciles or rolls back when they settle.
type Pipeline struct {
	cache  *snapshot.Cache
	remote Remote
	alloc  sortkey.Allocator
	log    *log.Entry
	m      *metrics

	provisional atomic.Int64
}

func New(cache *snapshot.Cache, remote Remote, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Pipeline{
		cache:  cache,
		remote: remote,
		alloc:  sortkey.Allocator{Policy: opts.Policy},
		log:    logger.WithField("component", "pipeline"),
		m:      newMetrics(opts.Registerer),
	}
}

func (p *Pipeline) Cache() *snapshot.Cache { return p.cache }

func (p *Pipeline) Policy() sortkey.Policy { return p.alloc.Policy }

// nextProvisionalID returns a negative id for records that exist only speculatively.
func (p *Pipeline) nextProvisionalID() int64 {
	return -p.provisional.Add(1)
}

// Refresh fetches a project's tree and replaces the cached snapshot with it.
func (p *Pipeline) Refresh(ctx context.Context, projectID int64) (*snapshot.Snapshot, error) {
	tree, err := p.remote.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project %d: %w", projectID, err)
	}
	s := snapshot.FromTree(tree)
	p.cache.Replace(projectID, s)
	return s, nil
}

// Load returns the cached snapshot, fetching it when absent or marked stale.
func (p *Pipeline) Load(ctx context.Context, projectID int64) (*snapshot.Snapshot, error) {
	if s, ok := p.cache.Read(projectID); ok && !p.cache.Stale(projectID) {
		return s, nil
	}
	return p.Refresh(ctx, projectID)
}

func (p *Pipeline) RefreshProjects(ctx context.Context) ([]model.Project, error) {
	ps, err := p.remote.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	p.cache.ReplaceProjects(ps)
	out, _ := p.cache.Projects()
	return out, nil
}

func (p *Pipeline) LoadProjects(ctx context.Context) ([]model.Project, error) {
	if ps, ok := p.cache.Projects(); ok && !p.cache.ProjectsStale() {
		return ps, nil
	}
	return p.RefreshProjects(ctx)
}

// remoteResult is what a settled remote call hands back to the pipeline.
type remoteResult struct {
	reconcile         func(*snapshot.Snapshot) *snapshot.Snapshot
	reconcileProjects func([]model.Project) []model.Project
	after             func()

	project *model.Project
	column  *model.Column
	task    *model.Task
}

type remoteCall func(ctx context.Context) (remoteResult, error)

// treeMutation targets one project's snapshot.
//
// derive computes the attempted snapshot and the remote call from base. base is nil when
// the project is not cached; needsBase mutations then plan against a freshly fetched tree
// that is not written to the cache. A nil call means the mutation is a no-op.
type treeMutation struct {
	op        Op
	projectID int64
	fields    log.Fields
	needsBase bool
	derive    func(base *snapshot.Snapshot) (*snapshot.Snapshot, remoteCall, error)
}

func (p *Pipeline) runTree(ctx context.Context, m treeMutation) *Pending {
	logger := p.log.WithFields(m.fields).WithFields(log.Fields{"op": m.op, "project_id": m.projectID})

	var (
		call remoteCall
		derr error
		noop bool
	)
	prev, next, present := p.cache.Patch(m.projectID, func(base *snapshot.Snapshot) *snapshot.Snapshot {
		attempted, c, err := m.derive(base)
		if err != nil {
			derr = err
			return nil
		}
		if c == nil {
			noop = true
			return nil
		}
		call = c
		return attempted
	})

	out := Outcome{Op: m.op, ProjectID: m.projectID}
	if derr != nil {
		p.m.result(m.op, "rejected")
		logger.WithError(derr).Debug("mutation rejected")
		return settled(out, derr)
	}
	if noop {
		out.NoOp = true
		p.m.result(m.op, "noop")
		return settled(out, nil)
	}
	if present {
		out.Previous = prev
		out.Attempted = next
		out.Speculative = true
		logger.Debug("speculative apply")
	}

	pend := newPending()
	go func() {
		if !present {
			c, err := p.deriveUncached(ctx, m)
			if err != nil {
				p.m.result(m.op, "rejected")
				pend.settle(out, err)
				return
			}
			if c == nil {
				out.NoOp = true
				p.m.result(m.op, "noop")
				pend.settle(out, nil)
				return
			}
			call = c
		}

		res, err := p.dispatch(ctx, m.op, call)
		if err != nil {
			if present {
				p.cache.Replace(m.projectID, prev)
				out.RolledBack = true
				p.m.rollback(m.op)
			}
			p.m.result(m.op, "failed")
			logger.WithError(err).WithField("rolled_back", out.RolledBack).Warn("remote mutation failed")
			pend.settle(out, err)
			return
		}

		if present {
			if res.reconcile != nil {
				p.cache.Patch(m.projectID, res.reconcile)
			}
			p.cache.Invalidate(m.projectID)
		}
		if res.after != nil {
			res.after()
		}
		out.Project, out.Column, out.Task = res.project, res.column, res.task
		p.m.result(m.op, "ok")
		logger.Debug("mutation confirmed")
		pend.settle(out, nil)
	}()
	return pend
}

func (p *Pipeline) deriveUncached(ctx context.Context, m treeMutation) (remoteCall, error) {
	var base *snapshot.Snapshot
	if m.needsBase {
		tree, err := p.remote.GetProject(ctx, m.projectID)
		if err != nil {
			return nil, fmt.Errorf("%s: fetch project %d: %w", m.op, m.projectID, err)
		}
		base = snapshot.FromTree(tree)
	}
	_, call, err := m.derive(base)
	return call, err
}

// listMutation targets the top-level project list. present tells derive whether base is
// the cached list (and an attempted list is wanted) or a freshly fetched one.
type listMutation struct {
	op        Op
	projectID int64
	fields    log.Fields
	needsBase bool
	derive    func(base []model.Project, present bool) ([]model.Project, remoteCall, error)
}

func (p *Pipeline) runList(ctx context.Context, m listMutation) *Pending {
	logger := p.log.WithFields(m.fields).WithFields(log.Fields{"op": m.op, "project_id": m.projectID})

	var (
		call remoteCall
		derr error
		noop bool
	)
	prev, next, present := p.cache.PatchProjects(func(base []model.Project) []model.Project {
		attempted, c, err := m.derive(base, true)
		if err != nil {
			derr = err
			return nil
		}
		if c == nil {
			noop = true
			return nil
		}
		call = c
		return attempted
	})
	if !present && !m.needsBase {
		_, call, derr = m.derive(nil, false)
		noop = derr == nil && call == nil
	}

	out := Outcome{Op: m.op, ProjectID: m.projectID}
	if derr != nil {
		p.m.result(m.op, "rejected")
		logger.WithError(derr).Debug("mutation rejected")
		return settled(out, derr)
	}
	if noop {
		out.NoOp = true
		p.m.result(m.op, "noop")
		return settled(out, nil)
	}
	if present {
		out.PreviousProjects = prev
		out.AttemptedProjects = next
		out.Speculative = true
		logger.Debug("speculative apply")
	}

	pend := newPending()
	go func() {
		if call == nil {
			ps, err := p.remote.ListProjects(ctx)
			if err != nil {
				p.m.result(m.op, "failed")
				pend.settle(out, fmt.Errorf("%s: list projects: %w", m.op, err))
				return
			}
			snapshot.SortProjects(ps)
			_, c, err := m.derive(ps, false)
			if err != nil {
				p.m.result(m.op, "rejected")
				pend.settle(out, err)
				return
			}
			if c == nil {
				out.NoOp = true
				p.m.result(m.op, "noop")
				pend.settle(out, nil)
				return
			}
			call = c
		}

		res, err := p.dispatch(ctx, m.op, call)
		if err != nil {
			if present {
				p.cache.ReplaceProjects(prev)
				out.RolledBack = true
				p.m.rollback(m.op)
			}
			p.m.result(m.op, "failed")
			logger.WithError(err).WithField("rolled_back", out.RolledBack).Warn("remote mutation failed")
			pend.settle(out, err)
			return
		}
		if present {
			if res.reconcileProjects != nil {
				p.cache.PatchProjects(res.reconcileProjects)
			}
			p.cache.InvalidateProjects()
		}
		if res.after != nil {
			res.after()
		}
		out.Project = res.project
		p.m.result(m.op, "ok")
		logger.Debug("mutation confirmed")
		pend.settle(out, nil)
	}()
	return pend
}

func (p *Pipeline) dispatch(ctx context.Context, op Op, call remoteCall) (remoteResult, error) {
	start := time.Now()
	res, err := call(ctx)
	p.m.observe(op, time.Since(start))
	if err != nil {
		return remoteResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func reorderItems(keys []sortkey.Key) []model.ReorderItem {
	out := make([]model.ReorderItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, model.ReorderItem{ID: k.ID, SortOrder: k.SortOrder})
	}
	return out
}

// reorderPayload picks the keys sent to a reorder endpoint: the whole list when
// resequencing, only the changed keys for gap insertion.
func (p *Pipeline) reorderPayload(plan sortkey.Plan) []model.ReorderItem {
	if p.alloc.Policy == sortkey.PolicyGapInsert {
		return reorderItems(plan.Changed)
	}
	return reorderItems(plan.Order)
}
