// Package playback provides the queue engine: a single command loop owning
// the queue, the selection and the output slots.
package playback

import (
	"github.com/osa030/queuebox/internal/app/queue"
	"github.com/osa030/queuebox/internal/app/selection"
	"github.com/osa030/queuebox/internal/app/slot"
	"github.com/osa030/queuebox/internal/domain/track"
)

// Snapshot is an immutable copy of everything observers may read.
type Snapshot struct {
	Queue      queue.State
	Slots      slot.Slots
	Assignment slot.Assignment
	Selection  selection.State
	Artwork    string // Local path or remote URL of the active track's artwork
}

// Active returns the occurrence in the active slot.
func (s Snapshot) Active() (track.Reference, bool) {
	if s.Slots.Active == nil {
		return track.Reference{}, false
	}
	return *s.Slots.Active, true
}

// Status returns the playback status.
func (s Snapshot) Status() queue.Status {
	return s.Queue.Status
}

// IsSelected reports whether the occurrence is selected.
func (s Snapshot) IsSelected(uniqueID string) bool {
	for _, id := range s.Selection.Selected {
		if id == uniqueID {
			return true
		}
	}
	return false
}
