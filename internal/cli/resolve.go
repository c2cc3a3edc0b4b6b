package cli

import (
	"fmt"
	"strconv"
	"strings"

	"kanban-cli/internal/model"
	"kanban-cli/internal/snapshot"
)

func parseRef(ref string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(ref), "#"), 10, 64)
	return id, err == nil && id > 0
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// findProject matches ref as an id first, then as a case-insensitive name.
func findProject(ps []model.Project, ref string) (model.Project, error) {
	if id, ok := parseRef(ref); ok {
		for _, p := range ps {
			if p.ID == id {
				return p, nil
			}
		}
	}
	var matches []model.Project
	for _, p := range ps {
		if sameName(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return model.Project{}, errNotFound("project", ref)
	case 1:
		return matches[0], nil
	}
	lines := make([]string, 0, len(matches))
	for _, p := range matches {
		lines = append(lines, fmt.Sprintf("[%d] %s", p.ID, p.Name))
	}
	return model.Project{}, ambiguousError{kind: "project", ref: ref, matches: lines}
}

func findColumn(snap *snapshot.Snapshot, ref string) (model.ColumnWithTasks, error) {
	if id, ok := parseRef(ref); ok {
		if c, ok := snap.Column(id); ok {
			return c, nil
		}
	}
	var matches []model.ColumnWithTasks
	for _, c := range snap.Columns {
		if sameName(c.Name, ref) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return model.ColumnWithTasks{}, errNotFound("column", ref)
	case 1:
		return matches[0], nil
	}
	lines := make([]string, 0, len(matches))
	for _, c := range matches {
		lines = append(lines, fmt.Sprintf("[%d] %s", c.ID, c.Name))
	}
	return model.ColumnWithTasks{}, ambiguousError{kind: "column", ref: ref, matches: lines}
}

// findTask matches ref as a task id in the board, then as a case-insensitive title.
func findTask(snap *snapshot.Snapshot, ref string) (model.Task, error) {
	if id, ok := parseRef(ref); ok {
		if t, _, _, ok := snap.Task(id); ok {
			return t, nil
		}
	}
	var matches []model.Task
	var lines []string
	for _, c := range snap.Columns {
		for _, t := range c.Tasks {
			if sameName(t.Title, ref) {
				matches = append(matches, t)
				lines = append(lines, fmt.Sprintf("[%d] %s (column: %s)", t.ID, t.Title, c.Name))
			}
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, errNotFound("task", ref)
	case 1:
		return matches[0], nil
	}
	return model.Task{}, ambiguousError{kind: "task", ref: ref, matches: lines}
}

// toIndex converts a 1-based position (0 = end) into an index in a list that holds n
// items once the moved item is taken out.
func toIndex(position, n int) int {
	if position <= 0 || position > n {
		return n
	}
	return position - 1
}
