package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kanban-cli/internal/logging"
	"kanban-cli/internal/server"
	"kanban-cli/internal/store"
)

type cliEnv struct {
	url string
	dir string
}

// newCLIEnv starts a board service on a temp database and points an isolated config
// directory at nothing yet.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	for _, k := range []string{"RK_API_URL", "RK_API_KEY", "RK_FORMAT", "RK_PROJECT"} {
		t.Setenv(k, "")
	}
	t.Setenv("RK_CONFIG_DIR", t.TempDir())

	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "kanban.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := logging.Discard()
	srv := httptest.NewServer(server.New(store.NewCache(db, nil, 0, logger), logger, nil))
	t.Cleanup(srv.Close)

	return cliEnv{url: srv.URL, dir: t.TempDir()}
}

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// run executes a command in the env's working directory with JSON output and returns the
// decoded data field.
func (e cliEnv) run(t *testing.T, args ...string) any {
	t.Helper()
	args = append(args, "--format", "json", "--dir", e.dir)
	out, errOut, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("rk %s: %v\nstderr: %s", strings.Join(args, " "), err, errOut)
	}
	var env struct {
		Data any `json:"data"`
	}
	if err := json.Unmarshal(out, &env); err != nil {
		t.Fatalf("rk %s: decode output: %v\n%s", strings.Join(args, " "), err, out)
	}
	return env.Data
}

// fail executes a command expected to fail and returns its stderr.
func (e cliEnv) fail(t *testing.T, args ...string) string {
	t.Helper()
	args = append(args, "--dir", e.dir)
	_, errOut, err := runCLI(t, args)
	if err == nil {
		t.Fatalf("rk %s: expected failure", strings.Join(args, " "))
	}
	return string(errOut)
}

func (e cliEnv) init(t *testing.T) {
	t.Helper()
	e.run(t, "init", e.url, "test-key")
}

func field(t *testing.T, v any, key string) any {
	t.Helper()
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T: %v", v, v)
	}
	return m[key]
}

func num(t *testing.T, v any, key string) int64 {
	t.Helper()
	f, ok := field(t, v, key).(float64)
	if !ok {
		t.Fatalf("expected number at %q in %v", key, v)
	}
	return int64(f)
}

// columnID looks a column up by name in `columns list` output.
func (e cliEnv) columnID(t *testing.T, name string) int64 {
	t.Helper()
	cols, ok := e.run(t, "columns", "list").([]any)
	if !ok {
		t.Fatalf("expected column list")
	}
	for _, c := range cols {
		if field(t, c, "name") == name {
			return num(t, c, "id")
		}
	}
	t.Fatalf("column %q not found", name)
	return 0
}

func TestCLI_NotConfigured(t *testing.T) {
	e := newCLIEnv(t)
	if stderr := e.fail(t, "tasks", "list"); !strings.Contains(stderr, "not configured") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestCLI_InitValidatesURL(t *testing.T) {
	e := newCLIEnv(t)
	e.fail(t, "init", "ftp://example.com", "k")
	e.fail(t, "init")

	data := e.run(t, "init", e.url+"/", "k")
	if field(t, data, "api_url") != e.url || field(t, data, "api_key_set") != true {
		t.Fatalf("unexpected init output: %v", data)
	}
	if field(t, e.run(t, "check"), "ok") != true {
		t.Fatalf("check failed")
	}
}

func TestCLI_NotLinked(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")

	if stderr := e.fail(t, "tasks", "list"); !strings.Contains(stderr, "is not linked") {
		t.Fatalf("stderr = %q", stderr)
	}
	// --project works without a link.
	data := e.run(t, "tasks", "list", "--project", "website")
	if field(t, data, "name") != "Website" {
		t.Fatalf("unexpected board: %v", data)
	}
}

func TestCLI_TaskLifecycle(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")
	e.run(t, "link", "Website", "-c", "To Do")

	todo := e.columnID(t, "To Do")
	inProgress := e.columnID(t, "In Progress")
	done := e.columnID(t, "Done")

	task := e.run(t, "tasks", "add", "Fix header", "--priority", "HIGH")
	if num(t, task, "column_id") != todo {
		t.Fatalf("task should land in the linked column: %v", task)
	}
	if field(t, task, "priority") != "high" || field(t, task, "source_tag") != "cli" {
		t.Fatalf("unexpected task: %v", task)
	}
	id := num(t, task, "id")

	moved := e.run(t, "tasks", "move", "fix HEADER", "In Progress")
	if num(t, moved, "column_id") != inProgress || field(t, moved, "noop") != false {
		t.Fatalf("unexpected move output: %v", moved)
	}
	again := e.run(t, "tasks", "move", "Fix header", "In Progress")
	if field(t, again, "noop") != true {
		t.Fatalf("second move should be a no-op: %v", again)
	}

	e.run(t, "tasks", "describe", "Fix header", "First note")
	e.run(t, "tasks", "describe", "Fix header", "Second note")
	e.run(t, "tasks", "done", "Fix header")

	shown := e.run(t, "tasks", "show", "#"+itoa(id))
	got := field(t, shown, "task")
	if num(t, got, "column_id") != done {
		t.Fatalf("done should move the task to the last column: %v", got)
	}
	if field(t, got, "description") != "First note\n\nSecond note" {
		t.Fatalf("description = %q", field(t, got, "description"))
	}

	e.run(t, "tasks", "rm", "Fix header")
	board := e.run(t, "tasks", "list")
	for _, c := range field(t, board, "columns").([]any) {
		if tasks, _ := field(t, c, "tasks").([]any); len(tasks) != 0 {
			t.Fatalf("expected empty board, column %v has %d tasks", field(t, c, "name"), len(tasks))
		}
	}
}

func TestCLI_MovePositions(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Ops")
	e.run(t, "link", "Ops")

	for _, title := range []string{"a", "b", "c"} {
		e.run(t, "tasks", "add", title)
	}
	out := e.run(t, "tasks", "move", "c", "Backlog", "--position", "1")
	if num(t, out, "position") != 1 {
		t.Fatalf("unexpected move output: %v", out)
	}

	board := e.run(t, "tasks", "list")
	backlog := field(t, board, "columns").([]any)[0]
	var titles []string
	for _, tk := range field(t, backlog, "tasks").([]any) {
		titles = append(titles, field(t, tk, "title").(string))
	}
	if strings.Join(titles, ",") != "c,a,b" {
		t.Fatalf("backlog order = %v, want c,a,b", titles)
	}
}

func TestCLI_AmbiguousTitle(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")
	e.run(t, "link", "Website")
	e.run(t, "tasks", "add", "dup")
	e.run(t, "tasks", "add", "dup", "-c", "Done")

	stderr := e.fail(t, "tasks", "show", "dup")
	if !strings.Contains(stderr, `2 tasks match "dup"`) || !strings.Contains(stderr, "(column: Done)") {
		t.Fatalf("stderr = %q", stderr)
	}
	if stderr := e.fail(t, "tasks", "show", "missing"); !strings.Contains(stderr, "task not found: missing") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestCLI_TextOutput(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")
	e.run(t, "link", "Website")
	e.run(t, "tasks", "add", "Fix header", "--priority", "urgent")

	out, errOut, err := runCLI(t, []string{"tasks", "list", "--dir", e.dir})
	if err != nil {
		t.Fatalf("tasks list: %v\n%s", err, errOut)
	}
	s := string(out)
	if !strings.Contains(s, "Tasks in 'Website':") || !strings.Contains(s, "Backlog:") || !strings.Contains(s, "Fix header !urgent") {
		t.Fatalf("unexpected text output:\n%s", s)
	}
}

func TestCLI_UnlinkAndStatus(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")
	e.run(t, "link", "Website")

	st := e.run(t, "status")
	if link := field(t, st, "link"); link == nil || num(t, link, "project_id") == 0 {
		t.Fatalf("expected a link in status: %v", st)
	}
	e.run(t, "unlink")
	st = e.run(t, "status")
	if field(t, st, "link") != nil {
		t.Fatalf("expected no link after unlink: %v", st)
	}
}

func TestCLI_ExportProject(t *testing.T) {
	e := newCLIEnv(t)
	e.init(t)
	e.run(t, "projects", "create", "Website")
	e.run(t, "link", "Website")
	task := e.run(t, "tasks", "add", "Fix header", "-d", "Use the new logo")

	out := filepath.Join(t.TempDir(), "site")
	res := e.run(t, "projects", "export", "--to", out)
	if written, _ := field(t, res, "written").([]any); len(written) != 2 {
		t.Fatalf("unexpected export result: %v", res)
	}
	page, err := os.ReadFile(filepath.Join(out, "tasks", itoa(num(t, task, "id"))+".md"))
	if err != nil || !strings.Contains(string(page), "Use the new logo") {
		t.Fatalf("task page: %v %q", err, page)
	}
	if stderr := e.fail(t, "projects", "export", "--to", out); !strings.Contains(stderr, "file exists") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestCLI_Docs(t *testing.T) {
	e := newCLIEnv(t)

	topics, ok := field(t, e.run(t, "docs"), "topics").([]any)
	if !ok || len(topics) == 0 {
		t.Fatalf("expected topics")
	}
	page := e.run(t, "docs", "Board")
	if field(t, page, "topic") != "board" || !strings.Contains(field(t, page, "markdown").(string), "pick up") {
		t.Fatalf("unexpected docs page: %v", page)
	}
	if stderr := e.fail(t, "docs", "nope"); !strings.Contains(stderr, "unknown docs topic") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
