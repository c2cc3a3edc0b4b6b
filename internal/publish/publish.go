package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kanban-cli/internal/model"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteBoard writes <toDir>/index.md and one tasks/<id>.md page per task. subtasks is
// keyed by task id; missing entries mean none.
func WriteBoard(tree model.ProjectTree, subtasks map[int64][]model.Subtask, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)

	tasksDir := filepath.Join(toDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderBoardMarkdown(tree)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}

	// Stops on the first error; pages already written stay.
	written := []string{indexPath}
	for _, c := range tree.Columns {
		for _, t := range c.Tasks {
			p := filepath.Join(tasksDir, fmt.Sprintf("%d.md", t.ID))
			md := RenderTaskMarkdown(t, c.Name, subtasks[t.ID])
			if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
				return WriteResult{Written: written}, err
			}
			written = append(written, p)
		}
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
