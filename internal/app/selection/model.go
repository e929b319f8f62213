// Package selection implements multi-row selection over a displayed list of
// queue occurrences, and the single/double click disambiguation around it.
package selection

import (
	"slices"

	"github.com/samber/lo"
)

// Modifier is the key held during a click.
type Modifier int

const (
	ModNone   Modifier = iota // Plain click
	ModToggle                 // Ctrl/Cmd click
	ModRange                  // Shift click
)

// String returns the string representation of the modifier.
func (m Modifier) String() string {
	switch m {
	case ModNone:
		return "none"
	case ModToggle:
		return "toggle"
	case ModRange:
		return "range"
	default:
		return "unknown"
	}
}

// Click is a single click on a row of a displayed view.
type Click struct {
	UniqueID string
	Modifier Modifier
	View     []string // Displayed order of occurrence ids at click time
}

// State is an immutable copy of the selection.
type State struct {
	Selected []string // Selected occurrence ids, sorted
	Anchor   string   // Range anchor, "" when unset
}

// Model holds the selected occurrence ids and the range anchor.
// It is not safe for concurrent use.
type Model struct {
	selected map[string]struct{}
	anchor   string
	target   string
}

// NewModel creates an empty selection.
func NewModel() *Model {
	return &Model{selected: make(map[string]struct{})}
}

// Toggle flips membership of id. The range anchor is not touched.
func (m *Model) Toggle(id string) {
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
		return
	}
	m.selected[id] = struct{}{}
}

// Select clears the selection, selects exactly id and makes it the range anchor.
func (m *Model) Select(id string) {
	m.Clear()
	m.selected[id] = struct{}{}
	m.anchor = id
}

// BeginRange sets the anchor to id unless one is already set, and records id
// as the row the range extends to.
func (m *Model) BeginRange(id string) {
	if m.anchor == "" {
		m.anchor = id
	}
	m.target = id
}

// ApplyRange selects every id of view between the anchor and the range
// target inclusive, in view order. Existing selections are kept. Nothing
// happens if either end is not part of view.
func (m *Model) ApplyRange(view []string) {
	from := lo.IndexOf(view, m.anchor)
	to := lo.IndexOf(view, m.target)
	if m.anchor == "" || m.target == "" || from < 0 || to < 0 {
		return
	}
	if from > to {
		from, to = to, from
	}
	for _, id := range view[from : to+1] {
		m.selected[id] = struct{}{}
	}
}

// Apply performs the effect of a single click.
func (m *Model) Apply(c Click) {
	switch c.Modifier {
	case ModToggle:
		m.Toggle(c.UniqueID)
	case ModRange:
		m.BeginRange(c.UniqueID)
		m.ApplyRange(c.View)
	default:
		m.Select(c.UniqueID)
	}
}

// Clear empties the selection and the range anchor.
func (m *Model) Clear() {
	clear(m.selected)
	m.anchor = ""
	m.target = ""
}

// IsSelected reports whether id is selected.
func (m *Model) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

// Len returns the number of selected ids.
func (m *Model) Len() int {
	return len(m.selected)
}

// Anchor returns the range anchor, or "".
func (m *Model) Anchor() string {
	return m.anchor
}

// InView returns the selected ids in the order of view.
func (m *Model) InView(view []string) []string {
	return lo.Filter(view, func(id string, _ int) bool {
		return m.IsSelected(id)
	})
}

// Snapshot returns a copy of the selection.
func (m *Model) Snapshot() State {
	ids := lo.Keys(m.selected)
	slices.Sort(ids)
	return State{Selected: ids, Anchor: m.anchor}
}
