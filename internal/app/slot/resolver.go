// Package slot derives which tracks the two audio outputs should hold.
package slot

import (
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Slots is the active/preload pair derived from a queue state.
// A nil field means the slot is empty.
type Slots struct {
	Active  *track.Reference
	Preload *track.Reference
}

// Resolve computes the slots for state. It has no side effects and returns
// the same pair for the same state.
func Resolve(state queue.State) Slots {
	active, ok := state.CurrentEntry()
	if !ok {
		return Slots{}
	}

	slots := Slots{Active: refPtr(active)}
	switch {
	case state.Repeat == queue.RepeatOne:
		slots.Preload = refPtr(active)
	case state.Current+1 < len(state.PlayOrder):
		next, _ := state.At(state.Current + 1)
		slots.Preload = refPtr(next)
	case state.Repeat == queue.RepeatAll:
		first, _ := state.At(0)
		slots.Preload = refPtr(first)
	}
	return slots
}

// Equal reports whether both slots hold the same occurrences.
func (s Slots) Equal(o Slots) bool {
	return sameOccurrence(s.Active, o.Active) && sameOccurrence(s.Preload, o.Preload)
}

// Clone returns a deep copy of the slots.
func (s Slots) Clone() Slots {
	var c Slots
	if s.Active != nil {
		c.Active = refPtr(*s.Active)
	}
	if s.Preload != nil {
		c.Preload = refPtr(*s.Preload)
	}
	return c
}

// ActiveID returns the occurrence id of the active slot, or "".
func (s Slots) ActiveID() string {
	return uniqueID(s.Active)
}

// PreloadID returns the occurrence id of the preload slot, or "".
func (s Slots) PreloadID() string {
	return uniqueID(s.Preload)
}

func refPtr(r track.Reference) *track.Reference {
	c := r.WithUniqueID(r.UniqueID)
	return &c
}

func uniqueID(r *track.Reference) string {
	if r == nil {
		return ""
	}
	return r.UniqueID
}

func sameOccurrence(a, b *track.Reference) bool {
	return uniqueID(a) == uniqueID(b)
}
