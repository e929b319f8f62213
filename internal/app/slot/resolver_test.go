package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/domain/track"
)

func testState(current int, repeat queue.RepeatMode, order []int, labels ...string) queue.State {
	entries := make([]track.Reference, len(labels))
	for i, l := range labels {
		entries[i] = track.Reference{Track: track.Track{ID: "song-" + l, Name: l}, UniqueID: l}
	}
	return queue.State{
		Entries:   entries,
		PlayOrder: order,
		Current:   current,
		Status:    queue.StatusPlaying,
		Repeat:    repeat,
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		state       queue.State
		wantActive  string
		wantPreload string
	}{
		{
			name:  "empty queue",
			state: queue.Empty(),
		},
		{
			name:        "middle of queue",
			state:       testState(0, queue.RepeatOff, []int{0, 1, 2}, "A", "B", "C"),
			wantActive:  "A",
			wantPreload: "B",
		},
		{
			name:        "follows play order",
			state:       testState(1, queue.RepeatOff, []int{2, 0, 1}, "A", "B", "C"),
			wantActive:  "A",
			wantPreload: "B",
		},
		{
			name:        "last without repeat",
			state:       testState(2, queue.RepeatOff, []int{0, 1, 2}, "A", "B", "C"),
			wantActive:  "C",
			wantPreload: "",
		},
		{
			name:        "last with repeat all",
			state:       testState(2, queue.RepeatAll, []int{1, 0, 2}, "A", "B", "C"),
			wantActive:  "C",
			wantPreload: "B",
		},
		{
			name:        "repeat one preloads itself",
			state:       testState(0, queue.RepeatOne, []int{0, 1, 2}, "A", "B", "C"),
			wantActive:  "A",
			wantPreload: "A",
		},
		{
			name:        "single track with repeat all",
			state:       testState(0, queue.RepeatAll, []int{0}, "A"),
			wantActive:  "A",
			wantPreload: "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.state)
			assert.Equal(t, tt.wantActive, got.ActiveID())
			assert.Equal(t, tt.wantPreload, got.PreloadID())
		})
	}
}

func TestResolve_Stable(t *testing.T) {
	st := testState(1, queue.RepeatOff, []int{0, 1, 2}, "A", "B", "C")

	first := Resolve(st)
	second := Resolve(st)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first, second)
}

func TestResolve_DoesNotAliasState(t *testing.T) {
	st := testState(0, queue.RepeatOff, []int{0, 1}, "A", "B")

	got := Resolve(st)
	require.NotNil(t, got.Active)
	got.Active.Name = "changed"

	assert.Equal(t, "A", st.Entries[0].Name)
}

func TestResolve_AfterShuffle(t *testing.T) {
	s := queue.NewStore(queue.Config{})
	s.Replace([]track.Reference{
		{Track: track.Track{ID: "a"}, UniqueID: "A"},
		{Track: track.Track{ID: "b"}, UniqueID: "B"},
		{Track: track.Track{ID: "c"}, UniqueID: "C"},
		{Track: track.Track{ID: "d"}, UniqueID: "D"},
	})
	before := Resolve(s.Snapshot())

	s.SetShuffle(true)

	after := Resolve(s.Snapshot())
	assert.Equal(t, before.ActiveID(), after.ActiveID())
	assert.Equal(t, "A", after.ActiveID())
	assert.Equal(t, 0, s.Snapshot().PlayOrder[0])
}

func TestSlots_Clone(t *testing.T) {
	st := testState(0, queue.RepeatOff, []int{0, 1}, "A", "B")
	orig := Resolve(st)

	c := orig.Clone()
	c.Active.Name = "changed"

	assert.True(t, c.Equal(orig))
	assert.NotEqual(t, "changed", orig.Active.Name)
	assert.Equal(t, Slots{}, Slots{}.Clone())
}
