package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"kanban-cli/internal/logging"
	"kanban-cli/internal/model"
	"kanban-cli/internal/pipeline"
	"kanban-cli/internal/snapshot"
)

func newTestBoard(t *testing.T, r *memRemote) (boardModel, *pipeline.Pipeline) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	if r.tree.ID == 0 {
		r.tree = sampleTree()
	}
	cache := snapshot.NewCache()
	cache.Replace(r.tree.ID, snapshot.FromTree(r.tree))
	pipe := pipeline.New(cache, r, pipeline.Options{Logger: logging.Discard()})
	m := newBoardModel(context.Background(), pipe, r.tree.ID, nil)
	if m.snap == nil {
		t.Fatalf("expected board to start from the cached snapshot")
	}
	return m, pipe
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys in order and returns the command produced by the last one.
func press(t *testing.T, m boardModel, keys ...string) (boardModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(boardModel)
	}
	return m, cmd
}

// settleCmd runs a settle command and feeds its message back.
func settleCmd(t *testing.T, m boardModel, cmd tea.Cmd) boardModel {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a settle command")
	}
	msg, ok := cmd().(settledMsg)
	if !ok {
		t.Fatalf("expected settledMsg")
	}
	next, _ := m.Update(msg)
	return next.(boardModel)
}

func taskIDs(s *snapshot.Snapshot, columnID int64) []int64 {
	col, _ := s.Column(columnID)
	out := make([]int64, 0, len(col.Tasks))
	for _, t := range col.Tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestBoard_DragTaskToOtherColumn(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)

	m, _ = press(t, m, " ")
	if m.mode != modeDrag || m.drag == nil || m.drag.itemID != 1 {
		t.Fatalf("expected task 1 to be picked up, mode=%v drag=%+v", m.mode, m.drag)
	}
	m, _ = press(t, m, "right", "down")
	if m.drag.target.ContainerID != 20 || m.drag.target.Index != 1 {
		t.Fatalf("target = %+v, want column 20 index 1", m.drag.target)
	}

	m, cmd := press(t, m, "enter")
	if m.mode != modeBrowse || m.drag != nil {
		t.Fatalf("expected drag to end on drop")
	}

	// The speculative move is visible before the server answers.
	s, _ := pipe.Cache().Read(1)
	if got := taskIDs(s, 20); !sameIDs(got, []int64{4, 1}) {
		t.Fatalf("done = %v, want [4 1]", got)
	}
	if got := taskIDs(s, 10); !sameIDs(got, []int64{2, 3}) {
		t.Fatalf("todo = %v, want [2 3]", got)
	}
	if m.selCol != 1 || m.selCard != 1 {
		t.Fatalf("selection should follow the dropped task, got col=%d card=%d", m.selCol, m.selCard)
	}

	m = settleCmd(t, m, cmd)
	if m.statusErr || m.status != "task moved" {
		t.Fatalf("status = %q (err=%v)", m.status, m.statusErr)
	}
	if calls := r.called(); len(calls) != 1 {
		t.Fatalf("expected one remote call, got %v", calls)
	}
}

func TestBoard_CancelledAndInPlaceDropsDoNothing(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)
	before, _ := pipe.Cache().Read(1)

	m, cmd := press(t, m, " ", "right", "down", "esc")
	if cmd != nil || m.mode != modeBrowse {
		t.Fatalf("cancel should leave browse mode with no command")
	}
	m, cmd = press(t, m, "down", " ", "enter")
	if cmd != nil {
		t.Fatalf("dropping in place should not dispatch")
	}

	after, _ := pipe.Cache().Read(1)
	if after != before {
		t.Fatalf("expected cached snapshot to be untouched")
	}
	if calls := r.called(); len(calls) != 0 {
		t.Fatalf("expected no remote calls, got %v", calls)
	}
	if m.selCard != 1 {
		t.Fatalf("selection moved unexpectedly: %d", m.selCard)
	}
}

func TestBoard_DragColumn(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)

	m, cmd := press(t, m, "M", "right", "enter")
	s, _ := pipe.Cache().Read(1)
	if s.Columns[0].ID != 20 || s.Columns[1].ID != 10 {
		t.Fatalf("columns = [%d %d], want [20 10]", s.Columns[0].ID, s.Columns[1].ID)
	}
	if m.selCol != 1 {
		t.Fatalf("selection should follow the column, got %d", m.selCol)
	}
	m = settleCmd(t, m, cmd)
	if calls := r.called(); len(calls) != 1 || calls[0] != "ReorderColumns" {
		t.Fatalf("calls = %v", calls)
	}
	if m.status != "column moved" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBoard_FailedMoveRollsBack(t *testing.T) {
	r := &memRemote{fail: errors.New("boom")}
	m, pipe := newTestBoard(t, r)

	m, cmd := press(t, m, " ", "right", "enter")
	s, _ := pipe.Cache().Read(1)
	if got := taskIDs(s, 20); !sameIDs(got, []int64{1, 4}) {
		t.Fatalf("speculative done = %v, want [1 4]", got)
	}

	m = settleCmd(t, m, cmd)
	if got := taskIDs(m.snap, 10); !sameIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("todo after rollback = %v, want [1 2 3]", got)
	}
	if !m.statusErr || !strings.Contains(m.status, "boom") {
		t.Fatalf("expected error status, got %q", m.status)
	}
}

func TestBoard_AddTaskThroughInput(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)

	m, _ = press(t, m, "a")
	if m.mode != modeInput {
		t.Fatalf("expected input mode")
	}
	if !strings.Contains(m.View(), "New task:") {
		t.Fatalf("expected input prompt in view")
	}
	m, _ = press(t, m, "write docs")
	m, cmd := press(t, m, "enter")

	s, _ := pipe.Cache().Read(1)
	col, _ := s.Column(10)
	last := col.Tasks[len(col.Tasks)-1]
	if last.Title != "write docs" || last.ID >= 0 {
		t.Fatalf("expected provisional task at the end, got %+v", last)
	}
	if last.SourceTag == nil || *last.SourceTag != model.SourceManual {
		t.Fatalf("expected manual source tag")
	}

	m = settleCmd(t, m, cmd)
	s, _ = pipe.Cache().Read(1)
	col, _ = s.Column(10)
	if got := col.Tasks[len(col.Tasks)-1].ID; got != 501 {
		t.Fatalf("expected server id after settle, got %d", got)
	}
	if m.status != "task added" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBoard_EmptyInputIsIgnored(t *testing.T) {
	r := &memRemote{}
	m, _ := newTestBoard(t, r)

	m, cmd := press(t, m, "A", "enter")
	if cmd != nil || m.mode != modeBrowse {
		t.Fatalf("expected blank input to be dropped")
	}
	if calls := r.called(); len(calls) != 0 {
		t.Fatalf("expected no remote calls, got %v", calls)
	}
}

func TestBoard_DeleteAsksForConfirmation(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)

	m, _ = press(t, m, "d")
	if m.mode != modeConfirm || !strings.Contains(m.View(), `Delete task "first"?`) {
		t.Fatalf("expected confirmation prompt")
	}
	m, cmd := press(t, m, "n")
	if cmd != nil || len(r.called()) != 0 {
		t.Fatalf("declining should not delete")
	}

	m, _ = press(t, m, "d")
	m, cmd = press(t, m, "y")
	s, _ := pipe.Cache().Read(1)
	if got := taskIDs(s, 10); !sameIDs(got, []int64{2, 3}) {
		t.Fatalf("todo = %v, want [2 3]", got)
	}
	m = settleCmd(t, m, cmd)
	if m.status != "task deleted" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestBoard_DetailView(t *testing.T) {
	r := &memRemote{tree: sampleTree()}
	r.tree.Columns[0].Tasks[0].Description = model.StrPtr("Some **notes** here")
	m, _ := newTestBoard(t, r)
	m.width, m.height = 80, 24

	m, _ = press(t, m, "enter")
	if m.mode != modeDetail {
		t.Fatalf("expected detail mode")
	}
	out := m.View()
	for _, want := range []string{"first", "column: Todo", "notes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in detail view, got=%q", want, out)
		}
	}
	m, _ = press(t, m, "esc")
	if m.mode != modeBrowse {
		t.Fatalf("expected esc to close detail")
	}
}

func TestBoard_ChangeFromOtherWriterIsShown(t *testing.T) {
	r := &memRemote{}
	m, pipe := newTestBoard(t, r)

	tree := sampleTree()
	tree.Columns[1].Tasks = nil
	v := pipe.Cache().Replace(1, snapshot.FromTree(tree))

	next, _ := m.Update(changeMsg{ProjectID: 1, Version: v, Kind: snapshot.ChangeReplace})
	m = next.(boardModel)
	if got := taskIDs(m.snap, 20); len(got) != 0 {
		t.Fatalf("expected board to pick up the replaced snapshot, done=%v", got)
	}
}
