// Package drop turns completed drag gestures into board move intents.
package drop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kanban-cli/internal/pipeline"
)

type Kind string

const (
	KindTask   Kind = "TASK"
	KindColumn Kind = "COLUMN"
)

// BoardContainer is the container id used for columns, which all live on the board.
const BoardContainer int64 = 0

// Location is a position inside a container: a column for tasks, the board for columns.
type Location struct {
	ContainerID int64
	Index       int
}

// Event is a drop as delivered by the gesture layer. Destination is nil when the drop was
// cancelled or landed outside any container.
type Event struct {
	ItemID      int64
	Kind        Kind
	Source      Location
	Destination *Location
}

type MoveIntent struct {
	ItemID        int64
	Kind          Kind
	FromContainer int64
	ToContainer   int64
	// ToIndex is the item's position in the destination container after the move.
	ToIndex int
}

// Resolve maps an event to a move intent. It reports false for cancelled drops and for
// drops that put the item back where it started.
func Resolve(e Event) (MoveIntent, bool) {
	if e.Destination == nil {
		return MoveIntent{}, false
	}
	dst := *e.Destination
	if dst.ContainerID == e.Source.ContainerID && dst.Index == e.Source.Index {
		return MoveIntent{}, false
	}
	if dst.Index < 0 {
		dst.Index = 0
	}
	return MoveIntent{
		ItemID:        e.ItemID,
		Kind:          e.Kind,
		FromContainer: e.Source.ContainerID,
		ToContainer:   dst.ContainerID,
		ToIndex:       dst.Index,
	}, true
}

// RawLocation and RawEvent mirror the drag library's drop result.
type RawLocation struct {
	DroppableID string `json:"droppableId"`
	Index       int    `json:"index"`
}

type RawEvent struct {
	DraggableID string       `json:"draggableId"`
	Type        string       `json:"type"`
	Source      RawLocation  `json:"source"`
	Destination *RawLocation `json:"destination,omitempty"`
}

const (
	columnDraggablePrefix = "column-"
	boardDroppable        = "board"
)

// ParseEvent decodes the string ids of a raw drop. Columns are dragged as "column-<id>"
// over the "board" droppable; tasks are dragged as "<id>" over "<column id>".
func ParseEvent(raw RawEvent) (Event, error) {
	kind := Kind(strings.ToUpper(strings.TrimSpace(raw.Type)))
	if kind == "" {
		kind = KindTask
	}

	var (
		e   Event
		err error
	)
	e.Kind = kind
	switch kind {
	case KindColumn:
		id := strings.TrimPrefix(strings.TrimSpace(raw.DraggableID), columnDraggablePrefix)
		if e.ItemID, err = parseID("draggableId", id); err != nil {
			return Event{}, err
		}
	case KindTask:
		if e.ItemID, err = parseID("draggableId", raw.DraggableID); err != nil {
			return Event{}, err
		}
	default:
		return Event{}, fmt.Errorf("unknown drag type %q", raw.Type)
	}

	if e.Source, err = parseLocation(kind, raw.Source); err != nil {
		return Event{}, err
	}
	if raw.Destination != nil {
		dst, err := parseLocation(kind, *raw.Destination)
		if err != nil {
			return Event{}, err
		}
		e.Destination = &dst
	}
	return e, nil
}

func parseLocation(kind Kind, raw RawLocation) (Location, error) {
	if kind == KindColumn {
		id := strings.TrimSpace(raw.DroppableID)
		if id != "" && id != boardDroppable {
			return Location{}, fmt.Errorf("column dropped on %q, expected %q", id, boardDroppable)
		}
		return Location{ContainerID: BoardContainer, Index: raw.Index}, nil
	}
	id, err := parseID("droppableId", raw.DroppableID)
	if err != nil {
		return Location{}, err
	}
	return Location{ContainerID: id, Index: raw.Index}, nil
}

func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return id, nil
}

// Mover is the part of the mutation pipeline drops are routed to.
type Mover interface {
	MoveTask(ctx context.Context, projectID int64, in pipeline.MoveTaskInput) *pipeline.Pending
	MoveColumn(ctx context.Context, projectID, columnID int64, toIndex int) *pipeline.Pending
}

type Router struct {
	Mover Mover
}

// Dispatch starts the pipeline operation for an intent.
func (r Router) Dispatch(ctx context.Context, projectID int64, in MoveIntent) (*pipeline.Pending, error) {
	switch in.Kind {
	case KindColumn:
		return r.Mover.MoveColumn(ctx, projectID, in.ItemID, in.ToIndex), nil
	case KindTask:
		return r.Mover.MoveTask(ctx, projectID, pipeline.MoveTaskInput{
			TaskID:     in.ItemID,
			ToColumnID: in.ToContainer,
			ToIndex:    in.ToIndex,
		}), nil
	default:
		return nil, fmt.Errorf("unknown drag type %q", in.Kind)
	}
}

// Handle resolves a drop and dispatches it. A nil Pending means the drop was a no-op.
func (r Router) Handle(ctx context.Context, projectID int64, e Event) (*pipeline.Pending, error) {
	in, ok := Resolve(e)
	if !ok {
		return nil, nil
	}
	return r.Dispatch(ctx, projectID, in)
}
