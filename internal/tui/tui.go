// Package tui is the interactive board view.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"kanban-cli/internal/pipeline"
)

// Run shows one project's board until the user quits or ctx ends.
func Run(ctx context.Context, pipe *pipeline.Pipeline, projectID int64) error {
	applyThemePreference()
	applyColorProfilePreference()

	changes, cancel := pipe.Cache().Subscribe()
	defer cancel()

	m := newBoardModel(ctx, pipe, projectID, changes)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
