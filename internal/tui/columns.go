package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"kanban-cli/internal/drop"
	"kanban-cli/internal/model"
	"kanban-cli/internal/snapshot"
)

type boardCard struct {
	task model.Task
	// ghost marks the dragged task at its prospective drop position.
	ghost bool
}

type boardCol struct {
	id    int64
	name  string
	cards []boardCard
	ghost bool
}

// buildBoard lays the snapshot out for display. During a drag the dragged item is shown
// at its drop target instead of where it is now.
func buildBoard(snap *snapshot.Snapshot, d *dragState) []boardCol {
	if snap == nil {
		return nil
	}
	cols := make([]boardCol, 0, len(snap.Columns))
	for _, c := range snap.Columns {
		bc := boardCol{id: c.ID, name: c.Name, cards: make([]boardCard, 0, len(c.Tasks))}
		for _, t := range c.Tasks {
			bc.cards = append(bc.cards, boardCard{task: t})
		}
		cols = append(cols, bc)
	}
	if d == nil {
		return cols
	}

	switch d.kind {
	case drop.KindTask:
		var dragged boardCard
		found := false
		for ci := range cols {
			for i, card := range cols[ci].cards {
				if card.task.ID == d.itemID {
					dragged, found = card, true
					cols[ci].cards = append(cols[ci].cards[:i:i], cols[ci].cards[i+1:]...)
					break
				}
			}
		}
		if !found {
			return cols
		}
		dragged.ghost = true
		for ci := range cols {
			if cols[ci].id != d.target.ContainerID {
				continue
			}
			at := clampIndex(d.target.Index, len(cols[ci].cards))
			cards := make([]boardCard, 0, len(cols[ci].cards)+1)
			cards = append(cards, cols[ci].cards[:at]...)
			cards = append(cards, dragged)
			cols[ci].cards = append(cards, cols[ci].cards[at:]...)
		}

	case drop.KindColumn:
		from := -1
		for i := range cols {
			if cols[i].id == d.itemID {
				from = i
				break
			}
		}
		if from < 0 {
			return cols
		}
		moved := cols[from]
		moved.ghost = true
		rest := append(cols[:from:from], cols[from+1:]...)
		at := clampIndex(d.target.Index, len(rest))
		out := make([]boardCol, 0, len(cols))
		out = append(out, rest[:at]...)
		out = append(out, moved)
		cols = append(out, rest[at:]...)
	}
	return cols
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// renderBoard draws the columns side by side. selCol/selCard mark the focused card
// (selCard -1 focuses the column header).
func renderBoard(cols []boardCol, selCol, selCard, width, height int) string {
	width, height = max(width, 0), max(height, 0)
	n := len(cols)
	if n == 0 {
		return normalizePane(styleMuted().Render("(no columns; press A to add one)"), width, height)
	}

	gap := 2
	colW := max((width-gap*(n-1))/n, 14)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg).Background(colorControlBg)
	headerSelectedStyle := lipgloss.NewStyle().Bold(true).Foreground(colorSelectedFg).Background(colorSelectedBg)
	ghostHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(colorAccentFg).Background(colorAccent)

	itemStyle := lipgloss.NewStyle().Width(colW).Padding(0, 1)
	itemSelectedStyle := itemStyle.Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
	ghostStyle := itemStyle.Foreground(colorAccentFg).Background(colorAccent)
	innerW := max(colW-2, 0)

	renderCard := func(c boardCard, selected bool) string {
		title := strings.TrimSpace(c.task.Title)
		if title == "" {
			title = "(untitled)"
		}
		prefix := "  "
		if c.ghost {
			prefix = "» "
		}
		lines := wrapWords(title, innerW, prefix, "  ")

		var meta []string
		if c.task.Priority != nil {
			meta = append(meta, priorityStyle(string(*c.task.Priority)).Render(string(*c.task.Priority)))
		}
		if c.task.SourceTag != nil && *c.task.SourceTag != model.SourceManual {
			meta = append(meta, styleMuted().Render(string(*c.task.SourceTag)))
		}
		if c.task.Description != nil && strings.TrimSpace(*c.task.Description) != "" {
			meta = append(meta, styleMuted().Render("≡"))
		}
		if c.task.ID < 0 {
			meta = append(meta, styleMuted().Render("saving…"))
		}
		if len(meta) > 0 {
			m := "  " + strings.Join(meta, " ")
			if xansi.StringWidth(m) > innerW {
				m = xansi.Cut(m, 0, innerW)
			}
			lines = append(lines, m)
		}

		inner := normalizePane(strings.Join(lines, "\n"), innerW, 0)
		switch {
		case c.ghost:
			return ghostStyle.Render(inner)
		case selected:
			return itemSelectedStyle.Render(inner)
		default:
			return itemStyle.Render(inner)
		}
	}

	renderCol := func(ci int, c boardCol) string {
		head := truncateText(fmt.Sprintf("%s (%d)", c.name, len(c.cards)), colW)
		hs := headerStyle
		switch {
		case c.ghost:
			hs = ghostHeaderStyle
		case ci == selCol:
			hs = headerSelectedStyle
		}
		lines := []string{hs.Width(colW).Render(head)}
		if len(c.cards) == 0 {
			lines = append(lines, styleMuted().Render("(empty)"))
			return normalizePane(strings.Join(lines, "\n"), colW, height)
		}
		lines = append(lines, "")
		sep := styleMuted().Render(" " + strings.Repeat("─", max(colW-2, 0)) + " ")
		for i, card := range c.cards {
			lines = append(lines, strings.Split(renderCard(card, ci == selCol && i == selCard), "\n")...)
			if i < len(c.cards)-1 {
				lines = append(lines, sep)
			}
		}
		return normalizePane(strings.Join(lines, "\n"), colW, height)
	}

	out := renderCol(0, cols[0])
	spacer := strings.Repeat(" ", gap)
	for i := 1; i < n; i++ {
		out = lipgloss.JoinHorizontal(lipgloss.Top, out, spacer, renderCol(i, cols[i]))
	}
	return normalizePane(out, width, height)
}
