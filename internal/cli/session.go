package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	log "github.com/sirupsen/logrus"

	"kanban-cli/internal/api"
	"kanban-cli/internal/config"
	"kanban-cli/internal/logging"
	"kanban-cli/internal/model"
	"kanban-cli/internal/pipeline"
	"kanban-cli/internal/snapshot"
	"kanban-cli/internal/sortkey"
)

// session is what a command talking to the board service needs.
type session struct {
	app    *App
	cfg    *config.Config
	client *api.Client
	pipe   *pipeline.Pipeline
	log    *log.Logger
}

func openSession(cmd *cobra.Command, app *App) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.Configured() {
		return nil, errNotConfigured
	}

	level := "warn"
	if app.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cmd.ErrOrStderr(), false)
	if err != nil {
		return nil, err
	}

	policyName := app.Policy
	if policyName == "" {
		policyName = cfg.Policy
	}
	policy, err := sortkey.ParsePolicy(policyName)
	if err != nil {
		return nil, err
	}

	client := api.New(cfg.APIURL, cfg.APIKey)
	client.Log = logger
	pipe := pipeline.New(snapshot.NewCache(), client, pipeline.Options{Policy: policy, Logger: logger})
	return &session{app: app, cfg: cfg, client: client, pipe: pipe, log: logger}, nil
}

// link returns the directory link in effect, if any.
func (s *session) link() (config.Link, bool) {
	l, _, ok := s.cfg.LinkFor(s.app.Dir)
	return l, ok
}

// project resolves --project, falling back to the directory link.
func (s *session) project(ctx context.Context) (model.Project, error) {
	ps, err := s.pipe.LoadProjects(ctx)
	if err != nil {
		return model.Project{}, err
	}
	if s.app.Project != "" {
		return findProject(ps, s.app.Project)
	}
	l, ok := s.link()
	if !ok {
		return model.Project{}, notLinkedError{dir: s.app.Dir}
	}
	for _, p := range ps {
		if p.ID == l.ProjectID {
			return p, nil
		}
	}
	return model.Project{}, fmt.Errorf("linked project %d no longer exists; run: rk link <project>", l.ProjectID)
}

// board loads the current project's snapshot.
func (s *session) board(ctx context.Context) (model.Project, *snapshot.Snapshot, error) {
	p, err := s.project(ctx)
	if err != nil {
		return model.Project{}, nil, err
	}
	snap, err := s.pipe.Load(ctx, p.ID)
	if err != nil {
		return model.Project{}, nil, err
	}
	return p, snap, nil
}

// defaultColumnID is the linked default column when the link targets projectID.
func (s *session) defaultColumnID(projectID int64) int64 {
	if s.app.Project != "" {
		return 0
	}
	if l, ok := s.link(); ok && l.ProjectID == projectID {
		return l.ColumnID
	}
	return 0
}
