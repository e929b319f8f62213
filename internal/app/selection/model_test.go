package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModel_Toggle(t *testing.T) {
	m := NewModel()
	m.Select("a")

	m.Toggle("b")
	assert.True(t, m.IsSelected("a"))
	assert.True(t, m.IsSelected("b"))
	assert.Equal(t, "a", m.Anchor(), "toggle leaves the anchor alone")

	m.Toggle("a")
	assert.False(t, m.IsSelected("a"))
	assert.Equal(t, 1, m.Len())
}

func TestModel_Select(t *testing.T) {
	m := NewModel()
	m.Toggle("a")
	m.Toggle("b")

	m.Select("c")

	assert.Equal(t, State{Selected: []string{"c"}, Anchor: "c"}, m.Snapshot())
}

func TestModel_Range(t *testing.T) {
	view := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name     string
		setup    func(m *Model)
		target   string
		view     []string
		expected []string
	}{
		{
			name:     "forward range from plain click",
			setup:    func(m *Model) { m.Select("b") },
			target:   "d",
			view:     view,
			expected: []string{"b", "c", "d"},
		},
		{
			name:     "backward range",
			setup:    func(m *Model) { m.Select("d") },
			target:   "a",
			view:     view,
			expected: []string{"a", "b", "c", "d"},
		},
		{
			name: "keeps existing selection",
			setup: func(m *Model) {
				m.Select("a")
				m.Toggle("e")
			},
			target:   "b",
			view:     view,
			expected: []string{"a", "b", "e"},
		},
		{
			name:     "no anchor starts a range at the target",
			setup:    func(m *Model) {},
			target:   "c",
			view:     view,
			expected: []string{"c"},
		},
		{
			name:     "filtered view decides what is between",
			setup:    func(m *Model) { m.Select("a") },
			target:   "e",
			view:     []string{"e", "c", "a"},
			expected: []string{"a", "c", "e"},
		},
		{
			name:     "filtered view skips hidden rows",
			setup:    func(m *Model) { m.Select("a") },
			target:   "d",
			view:     []string{"a", "d"},
			expected: []string{"a", "d"},
		},
		{
			name:     "anchor missing from view is a no-op",
			setup:    func(m *Model) { m.Select("z") },
			target:   "c",
			view:     view,
			expected: []string{"z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			tt.setup(m)

			m.BeginRange(tt.target)
			m.ApplyRange(tt.view)

			assert.Equal(t, tt.expected, m.Snapshot().Selected)
		})
	}
}

func TestModel_BeginRangeKeepsAnchor(t *testing.T) {
	m := NewModel()
	m.Select("b")

	m.BeginRange("d")
	m.BeginRange("e")

	assert.Equal(t, "b", m.Anchor())
	m.ApplyRange([]string{"a", "b", "c", "d", "e"})
	assert.Equal(t, []string{"b", "c", "d", "e"}, m.Snapshot().Selected)
}

func TestModel_Apply(t *testing.T) {
	view := []string{"a", "b", "c", "d"}
	m := NewModel()

	m.Apply(Click{UniqueID: "b", Modifier: ModNone, View: view})
	m.Apply(Click{UniqueID: "d", Modifier: ModRange, View: view})
	m.Apply(Click{UniqueID: "c", Modifier: ModToggle, View: view})

	assert.Equal(t, []string{"b", "d"}, m.InView(view))
}

func TestModel_Clear(t *testing.T) {
	m := NewModel()
	m.Select("a")
	m.BeginRange("b")

	m.Clear()

	assert.Equal(t, 0, m.Len())
	assert.Empty(t, m.Anchor())
	m.ApplyRange([]string{"a", "b"})
	assert.Equal(t, 0, m.Len(), "range state is cleared too")
}

func TestModifier_String(t *testing.T) {
	assert.Equal(t, "none", ModNone.String())
	assert.Equal(t, "toggle", ModToggle.String())
	assert.Equal(t, "range", ModRange.String())
	assert.Equal(t, "unknown", Modifier(9).String())
}
