package model

import "time"

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// SourceTag records where a task was created from.
type SourceTag string

const (
	SourceCLI    SourceTag = "cli"
	SourceManual SourceTag = "manual"
	SourceAI     SourceTag = "ai"
)

func (s SourceTag) Valid() bool {
	switch s {
	case SourceCLI, SourceManual, SourceAI:
		return true
	default:
		return false
	}
}

type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SortOrder int64     `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type Column struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	Name      string    `json:"name"`
	SortOrder int64     `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	ID          int64      `json:"id"`
	ProjectID   int64      `json:"project_id"`
	ColumnID    int64      `json:"column_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	SortOrder   int64      `json:"sort_order"`
	SourceTag   *SourceTag `json:"source_tag,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// ColumnWithTasks is a column as returned inside a project tree read.
type ColumnWithTasks struct {
	Column
	Tasks []Task `json:"tasks"`
}

// ProjectTree is the full nested read of a project (project, columns, tasks).
type ProjectTree struct {
	Project
	Columns []ColumnWithTasks `json:"columns"`
}

// ReorderItem is one entry of a reorder request.
type ReorderItem struct {
	ID        int64 `json:"id"`
	SortOrder int64 `json:"sort_order"`
}

type Subtask struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	SortOrder int64  `json:"sort_order"`
}

type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	ColumnID    *int64    `json:"column_id,omitempty"`
	SortOrder   *int64    `json:"sort_order,omitempty"`
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.ColumnID == nil && p.SortOrder == nil
}

// Apply returns t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
	if p.Priority != nil {
		pr := *p.Priority
		t.Priority = &pr
	}
	if p.ColumnID != nil {
		t.ColumnID = *p.ColumnID
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	return t
}

type NewTask struct {
	ProjectID   int64      `json:"project_id"`
	ColumnID    int64      `json:"column_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	SortOrder   *int64     `json:"sort_order,omitempty"`
	SourceTag   *SourceTag `json:"source_tag,omitempty"`
}

type SubtaskPatch struct {
	Title *string `json:"title,omitempty"`
	Done  *bool   `json:"done,omitempty"`
}

func StrPtr(s string) *string { return &s }

func Int64Ptr(n int64) *int64 { return &n }

// TaskPlacement positions a task inside a column. Bulk task updates apply a list of
// placements atomically.
type TaskPlacement struct {
	ID        int64 `json:"id"`
	ColumnID  int64 `json:"column_id"`
	SortOrder int64 `json:"sort_order"`
}
