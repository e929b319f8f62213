// Package queue provides the playback queue state machine.
package queue

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Status represents the playback status of the queue.
type Status int

const (
	StatusStopped Status = iota // Nothing is playing
	StatusPlaying               // Active track is playing
	StatusPaused                // Active track is paused
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "stopped":
		return StatusStopped, nil
	case "playing":
		return StatusPlaying, nil
	case "paused":
		return StatusPaused, nil
	default:
		return StatusStopped, errors.Newf("unknown status: %q", s)
	}
}

// RepeatMode controls what happens when the end of the play order is reached.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop after the last track
	RepeatAll                   // Wrap around to the first track
	RepeatOne                   // Replay the active track
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// ParseRepeatMode converts a string to a RepeatMode. "none" is accepted as an alias of "off".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}

// State is the complete queue state.
//
// PlayOrder is a permutation of the indices of Entries. Current is an index
// into PlayOrder, or -1 when the queue is empty.
type State struct {
	Entries   []track.Reference
	PlayOrder []int
	Current   int
	Status    Status
	Repeat    RepeatMode
	Shuffle   bool
}

// Empty returns an empty, stopped state.
func Empty() State {
	return State{Current: -1, Status: StatusStopped}
}

// Len returns the number of entries.
func (s State) Len() int {
	return len(s.Entries)
}

// IsEmpty reports whether the queue has no entries.
func (s State) IsEmpty() bool {
	return len(s.Entries) == 0
}

// At returns the entry at play order position pos.
func (s State) At(pos int) (track.Reference, bool) {
	if pos < 0 || pos >= len(s.PlayOrder) {
		return track.Reference{}, false
	}
	return s.Entries[s.PlayOrder[pos]], true
}

// CurrentEntry returns the entry at the current position.
func (s State) CurrentEntry() (track.Reference, bool) {
	return s.At(s.Current)
}

// IndexOf returns the entry index of the given occurrence, or -1.
func (s State) IndexOf(uniqueID string) int {
	for i, e := range s.Entries {
		if e.UniqueID == uniqueID {
			return i
		}
	}
	return -1
}

// PositionOf returns the play order position of the given occurrence, or -1.
func (s State) PositionOf(uniqueID string) int {
	idx := s.IndexOf(uniqueID)
	if idx < 0 {
		return -1
	}
	return positionOfIndex(s.PlayOrder, idx)
}

// Ordered returns the entries in play order.
func (s State) Ordered() []track.Reference {
	out := make([]track.Reference, len(s.PlayOrder))
	for pos, idx := range s.PlayOrder {
		out[pos] = s.Entries[idx]
	}
	return out
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	if s.Entries != nil {
		c.Entries = make([]track.Reference, len(s.Entries))
		for i, e := range s.Entries {
			c.Entries[i] = e.WithUniqueID(e.UniqueID)
		}
	}
	if s.PlayOrder != nil {
		c.PlayOrder = append([]int(nil), s.PlayOrder...)
	}
	return c
}

// Validate checks the structural invariants of the state.
func (s State) Validate() error {
	if len(s.PlayOrder) != len(s.Entries) {
		return errors.Newf("play order length %d does not match entries length %d", len(s.PlayOrder), len(s.Entries))
	}
	if len(s.Entries) == 0 {
		if s.Current != -1 {
			return errors.Newf("current must be -1 on an empty queue, got %d", s.Current)
		}
	} else if s.Current < 0 || s.Current >= len(s.PlayOrder) {
		return errors.Newf("current %d out of range [0, %d)", s.Current, len(s.PlayOrder))
	}

	seen := make([]bool, len(s.Entries))
	for _, idx := range s.PlayOrder {
		if idx < 0 || idx >= len(s.Entries) || seen[idx] {
			return errors.Newf("play order is not a permutation: %v", s.PlayOrder)
		}
		seen[idx] = true
	}

	ids := make(map[string]struct{}, len(s.Entries))
	for i, e := range s.Entries {
		if e.UniqueID == "" {
			return errors.Newf("entry %d has no unique id", i)
		}
		if _, dup := ids[e.UniqueID]; dup {
			return errors.Newf("duplicate unique id %q", e.UniqueID)
		}
		ids[e.UniqueID] = struct{}{}
	}

	if s.Status < StatusStopped || s.Status > StatusPaused {
		return errors.Newf("invalid status %d", s.Status)
	}
	if s.Repeat < RepeatOff || s.Repeat > RepeatOne {
		return errors.Newf("invalid repeat mode %d", s.Repeat)
	}
	return nil
}

func positionOfIndex(order []int, idx int) int {
	for pos, i := range order {
		if i == idx {
			return pos
		}
	}
	return -1
}
