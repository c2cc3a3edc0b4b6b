// Package publish renders a project board as markdown pages.
package publish

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"kanban-cli/internal/model"
)

// RenderBoardMarkdown is the index page: one section per column, tasks in board order,
// each linking to its own page.
func RenderBoardMarkdown(tree model.ProjectTree) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(tree.Name))
	writeLn("")
	total := 0
	for _, c := range tree.Columns {
		total += len(c.Tasks)
	}
	writeLn(fmt.Sprintf("- Project ID: %d", tree.ID))
	writeLn(fmt.Sprintf("- Columns: %d", len(tree.Columns)))
	writeLn(fmt.Sprintf("- Tasks: %d", total))

	for _, c := range tree.Columns {
		writeLn("")
		writeLn(fmt.Sprintf("## %s (%d)", strings.TrimSpace(c.Name), len(c.Tasks)))
		writeLn("")
		if len(c.Tasks) == 0 {
			writeLn("_No tasks._")
			continue
		}
		for _, t := range c.Tasks {
			line := fmt.Sprintf("- [%s](tasks/%d.md)", escapeLinkText(t.Title), t.ID)
			if t.Priority != nil {
				line += " `" + string(*t.Priority) + "`"
			}
			writeLn(line)
		}
	}
	return buf.String()
}

// RenderTaskMarkdown is one task's page.
func RenderTaskMarkdown(t model.Task, columnName string, subtasks []model.Subtask) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + strings.TrimSpace(t.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", t.ID))
	writeLn("- Column: " + columnName)
	if t.Priority != nil {
		writeLn("- Priority: " + string(*t.Priority))
	}
	if t.SourceTag != nil {
		writeLn("- Source: " + string(*t.SourceTag))
	}
	if t.CreatedAt != nil {
		writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	}

	if t.Description != nil {
		if desc := strings.TrimSpace(*t.Description); desc != "" {
			writeLn("")
			writeLn("## Description")
			writeLn("")
			writeLn(desc)
		}
	}

	if len(subtasks) > 0 {
		writeLn("")
		writeLn("## Subtasks")
		writeLn("")
		for _, s := range subtasks {
			mark := " "
			if s.Done {
				mark = "x"
			}
			writeLn(fmt.Sprintf("- [%s] %s", mark, strings.TrimSpace(s.Title)))
		}
	}
	return buf.String()
}

func escapeLinkText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "[", `\[`)
	return strings.ReplaceAll(s, "]", `\]`)
}
