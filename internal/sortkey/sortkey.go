package sortkey

import (
	"errors"
	"sort"
)

// Gap is the spacing between consecutive sort keys in a resequenced sibling list.
const Gap int64 = 1000

// Policy selects how keys are assigned when an item is placed into a sibling list.
type Policy int

const (
	// PolicyResequence renumbers the whole resulting list to (index+1)*Gap.
	PolicyResequence Policy = iota
	// PolicyGapInsert assigns the moved item a key strictly between its neighbours and only
	// renumbers a window of siblings when no integer gap remains.
	PolicyGapInsert
)

func (p Policy) String() string {
	switch p {
	case PolicyGapInsert:
		return "gap-insert"
	default:
		return "resequence"
	}
}

// ParsePolicy accepts "resequence" (default) or "gap-insert".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "resequence":
		return PolicyResequence, nil
	case "gap-insert", "gap":
		return PolicyGapInsert, nil
	default:
		return PolicyResequence, errors.New("unknown sort policy: " + s)
	}
}

// Sibling is one entry of a sibling list: an entity id and its current key.
type Sibling struct {
	ID        int64
	SortOrder int64
}

// Key is an assigned sort key.
type Key struct {
	ID        int64
	SortOrder int64
}

// Plan describes the result of placing an item into a sibling list.
type Plan struct {
	// Order is the full sibling list in its new order, with the keys it will have.
	Order []Key
	// Changed holds only the entries whose key differs from before (moved item included).
	Changed []Key
	// UsedFallback reports that gap insertion had to renumber a window of siblings.
	UsedFallback bool
}

// KeyOf returns the planned key for id.
func (p Plan) KeyOf(id int64) (int64, bool) {
	for _, k := range p.Order {
		if k.ID == id {
			return k.SortOrder, true
		}
	}
	return 0, false
}

// SortSiblings sorts in place by key, then id.
func SortSiblings(sibs []Sibling) {
	sort.SliceStable(sibs, func(i, j int) bool {
		if sibs[i].SortOrder != sibs[j].SortOrder {
			return sibs[i].SortOrder < sibs[j].SortOrder
		}
		return sibs[i].ID < sibs[j].ID
	})
}

// Resequence assigns (index+1)*Gap to every id in the given order.
func Resequence(ids []int64) []Key {
	out := make([]Key, 0, len(ids))
	for i, id := range ids {
		out = append(out, Key{ID: id, SortOrder: int64(i+1) * Gap})
	}
	return out
}

// Allocator computes keys for items moved between positions.
type Allocator struct {
	Policy Policy
}

// Place plans the keys for inserting moved into rest at insertAt. rest must not contain
// moved and must already be in display order. insertAt is clamped to [0, len(rest)].
func (a Allocator) Place(rest []Sibling, moved Sibling, insertAt int) (Plan, error) {
	for _, s := range rest {
		if s.ID == moved.ID {
			return Plan{}, errors.New("moved item is still present in the sibling list")
		}
	}
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}

	final := make([]Sibling, 0, len(rest)+1)
	final = append(final, rest[:insertAt]...)
	final = append(final, moved)
	final = append(final, rest[insertAt:]...)

	if a.Policy == PolicyGapInsert {
		return planGapInsert(final, insertAt)
	}
	return planResequence(final), nil
}

// Reorder plans the keys for moving movedID to insertAt within sibs (same list). The index
// is interpreted in the list after removing the moved item. A move to the item's current
// position yields an empty plan.
func (a Allocator) Reorder(sibs []Sibling, movedID int64, insertAt int) (Plan, error) {
	rest, moved, from, ok := splitOut(sibs, movedID)
	if !ok {
		return Plan{}, errors.New("moved item not found in sibling list")
	}
	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}
	if insertAt == from {
		return Plan{Order: keysOf(sibs)}, nil
	}
	return a.Place(rest, moved, insertAt)
}

// Compact plans keys for a list an item was removed from. Resequencing renumbers the
// remainder; gap insertion leaves it alone since removal keeps the ordering valid.
func (a Allocator) Compact(rest []Sibling) Plan {
	if a.Policy == PolicyGapInsert {
		return Plan{Order: keysOf(rest)}
	}
	return planResequence(rest)
}

func planResequence(final []Sibling) Plan {
	p := Plan{Order: make([]Key, 0, len(final))}
	for i, s := range final {
		k := Key{ID: s.ID, SortOrder: int64(i+1) * Gap}
		p.Order = append(p.Order, k)
		if k.SortOrder != s.SortOrder {
			p.Changed = append(p.Changed, k)
		}
	}
	return p
}

func splitOut(sibs []Sibling, id int64) (rest []Sibling, moved Sibling, at int, ok bool) {
	rest = make([]Sibling, 0, len(sibs))
	at = -1
	for i, s := range sibs {
		if s.ID == id && at < 0 {
			moved = s
			at = i
			continue
		}
		rest = append(rest, s)
	}
	return rest, moved, at, at >= 0
}

func keysOf(sibs []Sibling) []Key {
	out := make([]Key, 0, len(sibs))
	for _, s := range sibs {
		out = append(out, Key{ID: s.ID, SortOrder: s.SortOrder})
	}
	return out
}
