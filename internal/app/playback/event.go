package playback

import "github.com/osa030/queuebox/internal/app/queue"

// EventType represents an engine event type.
type EventType int

const (
	EventQueueChanged     EventType = iota // Entries or play order changed
	EventTrackChanged                      // Active/preload slots or output assignment changed
	EventStatusChanged                     // Playback status changed (play/pause/stop)
	EventModeChanged                       // Repeat or shuffle changed
	EventSelectionChanged                  // Only the selection changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventQueueChanged:
		return "queue_changed"
	case EventTrackChanged:
		return "track_changed"
	case EventStatusChanged:
		return "status_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventSelectionChanged:
		return "selection_changed"
	default:
		return "unknown"
	}
}

// Event is published after every command that changed something.
// Type is the most significant change; Changes lists every queue change.
type Event struct {
	Type     EventType
	Changes  queue.Change
	Snapshot Snapshot
}

// eventType picks the most significant event type for a command's changes.
func eventType(changes queue.Change, slotsChanged bool) EventType {
	switch {
	case changes.Has(queue.ChangeEntries | queue.ChangeOrder):
		return EventQueueChanged
	case changes.Has(queue.ChangeCurrent) || slotsChanged:
		return EventTrackChanged
	case changes.Has(queue.ChangeStatus):
		return EventStatusChanged
	case changes.Has(queue.ChangeMode):
		return EventModeChanged
	default:
		return EventSelectionChanged
	}
}
