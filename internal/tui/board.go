package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"kanban-cli/internal/drop"
	"kanban-cli/internal/model"
	"kanban-cli/internal/pipeline"
	"kanban-cli/internal/snapshot"
)

type mode int

const (
	modeBrowse mode = iota
	modeDrag
	modeInput
	modeDetail
	modeConfirm
)

type inputAction int

const (
	inputAddTask inputAction = iota
	inputAddColumn
	inputRenameColumn
	inputEditTitle
)

// dragState is a gesture in progress. target is where the item would land if dropped now,
// with Index counted after the item is taken out of its container.
type dragState struct {
	kind   drop.Kind
	itemID int64
	source drop.Location
	target drop.Location
}

type snapshotMsg struct {
	snap *snapshot.Snapshot
	err  error
}

type changeMsg snapshot.Change

type settledMsg struct {
	label string
	out   pipeline.Outcome
	err   error
}

type boardModel struct {
	ctx       context.Context
	pipe      *pipeline.Pipeline
	router    drop.Router
	projectID int64

	snap    *snapshot.Snapshot
	changes <-chan snapshot.Change

	width  int
	height int

	mode    mode
	selCol  int
	selCard int
	drag    *dragState

	input       textinput.Model
	inputAction inputAction
	inputTarget int64

	detailTaskID int64

	confirmPrompt string
	confirmRun    func() *pipeline.Pending
	confirmLabel  string

	status    string
	statusErr bool
}

func newBoardModel(ctx context.Context, pipe *pipeline.Pipeline, projectID int64, changes <-chan snapshot.Change) boardModel {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 200
	m := boardModel{
		ctx:       ctx,
		pipe:      pipe,
		router:    drop.Router{Mover: pipe},
		projectID: projectID,
		changes:   changes,
		input:     ti,
	}
	if s, ok := pipe.Cache().Read(projectID); ok {
		m.snap = s
	}
	return m
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitChange())
}

func (m boardModel) load() tea.Cmd {
	ctx, pipe, pid := m.ctx, m.pipe, m.projectID
	return func() tea.Msg {
		s, err := pipe.Load(ctx, pid)
		return snapshotMsg{snap: s, err: err}
	}
}

func (m boardModel) refresh() tea.Cmd {
	ctx, pipe, pid := m.ctx, m.pipe, m.projectID
	return func() tea.Msg {
		s, err := pipe.Refresh(ctx, pid)
		return snapshotMsg{snap: s, err: err}
	}
}

func (m boardModel) waitChange() tea.Cmd {
	ch := m.changes
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

// settle waits for a mutation in the background. A nil pending (no-op drop) yields no
// command.
func (m boardModel) settle(label string, p *pipeline.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		out, err := p.Wait(ctx)
		return settledMsg{label: label, out: out, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-20, 10)
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.snap = msg.snap
		m.clampSelection()
		return m, nil

	case changeMsg:
		cmds := []tea.Cmd{m.waitChange()}
		if msg.ProjectID != m.projectID {
			return m, tea.Batch(cmds...)
		}
		switch msg.Kind {
		case snapshot.ChangeReplace:
			m.reread()
		case snapshot.ChangeInvalidate:
			cmds = append(cmds, m.refresh())
		case snapshot.ChangeDrop:
			m.snap = nil
			m.setError(errors.New("project was deleted"))
		}
		return m, tea.Batch(cmds...)

	case settledMsg:
		switch {
		case msg.err != nil:
			m.setError(fmt.Errorf("%s: %w", msg.label, msg.err))
			m.reread()
		case msg.out.NoOp:
		default:
			m.setStatus(msg.label)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeDrag:
			return m.updateDrag(msg)
		case modeInput:
			return m.updateInput(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m *boardModel) reread() {
	if s, ok := m.pipe.Cache().Read(m.projectID); ok {
		m.snap = s
	}
	m.clampSelection()
}

func (m *boardModel) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *boardModel) setError(err error) {
	m.status, m.statusErr = err.Error(), true
}

func (m *boardModel) clampSelection() {
	if m.snap == nil || len(m.snap.Columns) == 0 {
		m.selCol, m.selCard = 0, 0
		return
	}
	m.selCol = clampIndex(m.selCol, len(m.snap.Columns)-1)
	n := len(m.snap.Columns[m.selCol].Tasks)
	if n == 0 {
		m.selCard = 0
		return
	}
	m.selCard = clampIndex(m.selCard, n-1)
}

func (m boardModel) currentColumn() (model.ColumnWithTasks, bool) {
	if m.snap == nil || m.selCol >= len(m.snap.Columns) {
		return model.ColumnWithTasks{}, false
	}
	return m.snap.Columns[m.selCol], true
}

func (m boardModel) currentTask() (model.Task, bool) {
	col, ok := m.currentColumn()
	if !ok || m.selCard >= len(col.Tasks) {
		return model.Task{}, false
	}
	return col.Tasks[m.selCard], true
}

func (m boardModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h":
		m.selCol--
		m.clampSelection()
	case "right", "l":
		m.selCol++
		m.clampSelection()
	case "up", "k":
		m.selCard--
		m.clampSelection()
	case "down", "j":
		m.selCard++
		m.clampSelection()
	case "R":
		return m, m.refresh()

	case " ", "m":
		t, ok := m.currentTask()
		if !ok {
			return m, nil
		}
		from := drop.Location{ContainerID: t.ColumnID, Index: m.selCard}
		m.drag = &dragState{kind: drop.KindTask, itemID: t.ID, source: from, target: from}
		m.mode = modeDrag
	case "M":
		col, ok := m.currentColumn()
		if !ok {
			return m, nil
		}
		from := drop.Location{ContainerID: drop.BoardContainer, Index: m.selCol}
		m.drag = &dragState{kind: drop.KindColumn, itemID: col.ID, source: from, target: from}
		m.mode = modeDrag

	case "a":
		col, ok := m.currentColumn()
		if !ok {
			m.setError(errors.New("add a column first"))
			return m, nil
		}
		cmd := m.startInput(inputAddTask, col.ID, "")
		return m, cmd
	case "A":
		cmd := m.startInput(inputAddColumn, 0, "")
		return m, cmd
	case "r":
		if col, ok := m.currentColumn(); ok {
			cmd := m.startInput(inputRenameColumn, col.ID, col.Name)
			return m, cmd
		}
	case "e":
		if t, ok := m.currentTask(); ok {
			cmd := m.startInput(inputEditTitle, t.ID, t.Title)
			return m, cmd
		}

	case "d", "x":
		t, ok := m.currentTask()
		if !ok {
			return m, nil
		}
		ctx, pipe, pid := m.ctx, m.pipe, m.projectID
		m.confirm(fmt.Sprintf("Delete task %q?", t.Title), "task deleted", func() *pipeline.Pending {
			return pipe.DeleteTask(ctx, pid, t.ID)
		})
	case "D":
		col, ok := m.currentColumn()
		if !ok {
			return m, nil
		}
		ctx, pipe, pid := m.ctx, m.pipe, m.projectID
		prompt := fmt.Sprintf("Delete column %q", col.Name)
		if n := len(col.Tasks); n > 0 {
			prompt += fmt.Sprintf(" and its %d task(s)", n)
		}
		m.confirm(prompt+"?", "column deleted", func() *pipeline.Pending {
			return pipe.DeleteColumn(ctx, pid, col.ID)
		})

	case "enter":
		if t, ok := m.currentTask(); ok {
			m.detailTaskID = t.ID
			m.mode = modeDetail
		}
	}
	return m, nil
}

func (m *boardModel) confirm(prompt, label string, run func() *pipeline.Pending) {
	m.confirmPrompt, m.confirmLabel, m.confirmRun = prompt, label, run
	m.mode = modeConfirm
}

func (m boardModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	run, label := m.confirmRun, m.confirmLabel
	m.mode = modeBrowse
	m.confirmRun = nil
	if msg.String() != "y" || run == nil {
		return m, nil
	}
	p := run()
	m.reread()
	return m, m.settle(label, p)
}

// updateDrag moves the drop target. Task targets range over [0, n] of the destination
// column without the dragged task; column targets over the column positions.
func (m boardModel) updateDrag(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.drag == nil || m.snap == nil {
		m.mode, m.drag = modeBrowse, nil
		return m, nil
	}
	d := *m.drag
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "q":
		return m.finishDrag(nil)
	case "enter", " ", "m", "M":
		target := d.target
		return m.finishDrag(&target)

	case "left", "h":
		d.target = m.shiftTarget(d, -1, 0)
	case "right", "l":
		d.target = m.shiftTarget(d, 1, 0)
	case "up", "k":
		d.target = m.shiftTarget(d, 0, -1)
	case "down", "j":
		d.target = m.shiftTarget(d, 0, 1)
	case "home", "g":
		d.target.Index = 0
	case "end", "G":
		d.target = m.shiftTarget(d, 0, 1<<20)
	}
	m.drag = &d
	return m, nil
}

func (m boardModel) shiftTarget(d dragState, dCol, dIdx int) drop.Location {
	cols := m.snap.Columns
	t := d.target
	if d.kind == drop.KindColumn {
		t.Index = clampIndex(t.Index+dCol+dIdx, len(cols)-1)
		return t
	}
	ci := m.snap.ColumnIndex(t.ContainerID)
	if dCol != 0 {
		ci = clampIndex(ci+dCol, len(cols)-1)
		t.ContainerID = cols[ci].ID
	}
	n := len(cols[ci].Tasks)
	if _, from, _, ok := m.snap.Task(d.itemID); ok && from == ci {
		n--
	}
	t.Index = clampIndex(t.Index+dIdx, n)
	return t
}

// finishDrag hands the gesture to the drop router. dst nil cancels.
func (m boardModel) finishDrag(dst *drop.Location) (tea.Model, tea.Cmd) {
	d := *m.drag
	m.drag = nil
	m.mode = modeBrowse

	p, err := m.router.Handle(m.ctx, m.projectID, drop.Event{
		ItemID:      d.itemID,
		Kind:        d.kind,
		Source:      d.source,
		Destination: dst,
	})
	if err != nil {
		m.setError(err)
		return m, nil
	}
	if p == nil {
		return m, nil
	}
	m.reread()
	if d.kind == drop.KindColumn {
		m.selCol = dst.Index
	} else {
		m.selCol = m.snap.ColumnIndex(dst.ContainerID)
		m.selCard = dst.Index
	}
	m.clampSelection()
	label := "task moved"
	if d.kind == drop.KindColumn {
		label = "column moved"
	}
	return m, m.settle(label, p)
}

func (m *boardModel) startInput(action inputAction, target int64, value string) tea.Cmd {
	m.inputAction, m.inputTarget = action, target
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.mode = modeInput
	return m.input.Focus()
}

func (m boardModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.input.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.mode = modeBrowse
		if value == "" {
			return m, nil
		}
		p, label := m.submitInput(value)
		m.reread()
		return m, m.settle(label, p)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *boardModel) submitInput(value string) (*pipeline.Pending, string) {
	switch m.inputAction {
	case inputAddTask:
		src := model.SourceManual
		p := m.pipe.CreateTask(m.ctx, model.NewTask{
			ProjectID: m.projectID,
			ColumnID:  m.inputTarget,
			Title:     value,
			SourceTag: &src,
		})
		if col, ok := m.currentColumn(); ok {
			m.selCard = len(col.Tasks)
		}
		return p, "task added"
	case inputAddColumn:
		if m.snap != nil {
			m.selCol = len(m.snap.Columns)
		}
		return m.pipe.CreateColumn(m.ctx, m.projectID, value), "column added"
	case inputRenameColumn:
		return m.pipe.RenameColumn(m.ctx, m.projectID, m.inputTarget, value), "column renamed"
	default:
		return m.pipe.UpdateTask(m.ctx, m.projectID, m.inputTarget, model.TaskPatch{Title: &value}), "task updated"
	}
}

func (m boardModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "q", "backspace":
		m.mode = modeBrowse
	case "e":
		if m.snap == nil {
			return m, nil
		}
		if t, _, _, ok := m.snap.Task(m.detailTaskID); ok {
			cmd := m.startInput(inputEditTitle, t.ID, t.Title)
			return m, cmd
		}
	}
	return m, nil
}

func (m boardModel) View() string {
	w, h := m.width, m.height
	if w <= 0 {
		w = 100
	}
	if h <= 0 {
		h = 30
	}

	header := m.headerView(w)
	footer := m.footerView(w)
	bodyH := max(h-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	var body string
	switch {
	case m.snap == nil:
		body = normalizePane(styleMuted().Render("Loading…"), w, bodyH)
	case m.mode == modeDetail:
		body = m.detailView(w, bodyH)
	default:
		selCol, selCard := m.selCol, m.selCard
		if m.mode == modeDrag {
			selCol, selCard = -1, -1
		}
		body = renderBoard(buildBoard(m.snap, m.drag), selCol, selCard, w, bodyH)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m boardModel) headerView(w int) string {
	title := "Board"
	if m.snap != nil {
		title = m.snap.Name
	}
	left := lipgloss.NewStyle().Bold(true).Render(title)
	if m.snap != nil {
		left += styleMuted().Render(fmt.Sprintf("  %d tasks", m.snap.TaskCount()))
	}
	right := ""
	if m.status != "" {
		st := styleMuted()
		if m.statusErr {
			st = lipgloss.NewStyle().Foreground(colorError)
		}
		right = st.Render(m.status)
	}
	gap := max(w-xansi.StringWidth(left)-xansi.StringWidth(right), 1)
	line := left + strings.Repeat(" ", gap) + right
	return truncateText(line, w) + "\n"
}

func (m boardModel) footerView(w int) string {
	var hint string
	switch m.mode {
	case modeDrag:
		hint = "arrows: choose target  enter: drop  esc: cancel"
	case modeInput:
		return renderInputLine(w, m.inputLabel()+m.input.View())
	case modeDetail:
		hint = "e: edit title  esc: back"
	case modeConfirm:
		return lipgloss.NewStyle().Bold(true).Render(truncateText(m.confirmPrompt+" (y/N)", w))
	default:
		hint = "arrows: select  space: move task  M: move column  a/A: add  e/r: edit  d/D: delete  enter: open  R: refresh  q: quit"
	}
	return styleMuted().Render(truncateText(hint, w))
}

func (m boardModel) inputLabel() string {
	switch m.inputAction {
	case inputAddTask:
		return "New task: "
	case inputAddColumn:
		return "New column: "
	case inputRenameColumn:
		return "Column name: "
	default:
		return "Title: "
	}
}

func (m boardModel) detailView(w, h int) string {
	t, ci, _, ok := m.snap.Task(m.detailTaskID)
	if !ok {
		return normalizePane(styleMuted().Render("(task no longer exists)"), w, h)
	}
	bodyW := max(w-4, 10)
	lines := []string{lipgloss.NewStyle().Bold(true).Render(truncateText(t.Title, bodyW)), ""}

	meta := []string{"column: " + m.snap.Columns[ci].Name}
	if t.Priority != nil {
		meta = append(meta, "priority: "+priorityStyle(string(*t.Priority)).Render(string(*t.Priority)))
	}
	if t.SourceTag != nil {
		meta = append(meta, "source: "+string(*t.SourceTag))
	}
	if t.CreatedAt != nil {
		meta = append(meta, "created: "+t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	for _, s := range meta {
		lines = append(lines, styleMuted().Render(s))
	}
	lines = append(lines, "")

	if t.Description != nil && strings.TrimSpace(*t.Description) != "" {
		lines = append(lines, renderMarkdown(*t.Description, bodyW))
	} else {
		lines = append(lines, styleMuted().Render("(no description)"))
	}
	pane := lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(lines, "\n"))
	return normalizePane(pane, w, h)
}

// renderInputLine draws a single-line input on the input background.
func renderInputLine(w int, view string) string {
	w = max(w, 10)
	view = strings.NewReplacer("\n", " ", "\r", " ").Replace(view)
	line := lipgloss.PlaceHorizontal(w, lipgloss.Left, " "+view+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > w {
		line = xansi.Cut(line, 0, w) + "\x1b[0m"
	}
	return line
}
