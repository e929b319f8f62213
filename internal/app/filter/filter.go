// Package filter provides the filter chain applied to fetched tracks before
// they reach the queue.
package filter

import (
	"context"

	"github.com/osa030/queuebox/internal/domain/track"
)

// LoadMode is how fetched tracks are about to enter the queue.
type LoadMode int

const (
	ModeReplace LoadMode = iota // Tracks replace the queue ("play")
	ModeAppend                  // Tracks are appended to the queue
)

// String returns the string representation of the load mode.
func (m LoadMode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	default:
		return "unknown"
	}
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "pattern_match", "track_too_short", "duplicate_track"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Filter is the interface for track filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// AppliesTo returns true if this filter should be applied for the given load mode.
	AppliesTo(mode LoadMode) bool
	// Check performs the filter check. queued holds the current queue entries.
	Check(ctx context.Context, t track.Track, queued []track.Reference) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}
