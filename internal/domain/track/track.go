// Package track provides the Track and Reference domain entities.
package track

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Track represents a playable item as returned by a track source.
type Track struct {
	ID          string        // Stable song identifier on the media server
	Name        string        // Track title
	Artists     []string      // Artist names
	Album       string        // Album name
	AlbumID     string        // Album identifier (used for artwork keys)
	AlbumArtURL string        // Remote artwork URL
	Duration    time.Duration // Track duration
	SourceURI   string        // URI the playback controller loads
	ArtworkKey  string        // Artwork cache key
	Markets     []string      // Markets the track is available in (nil: unknown)
	Playable    *bool         // Playability in the client's market, when the source reports it
}

// MainArtist returns the first artist or an empty string.
func (t *Track) MainArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// IsAvailableInMarket reports whether the track can be played in market.
// A track without availability data is assumed playable.
func (t *Track) IsAvailableInMarket(market string) bool {
	// Playable takes precedence (Spotify track relinking)
	if t.Playable != nil {
		return *t.Playable
	}
	if len(t.Markets) == 0 {
		return true
	}
	for _, m := range t.Markets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}

// Reference identifies one occurrence of a track in the queue.
// The same Track may appear several times with different UniqueIDs.
type Reference struct {
	Track
	UniqueID string
}

// NewUniqueID returns a fresh occurrence identifier.
func NewUniqueID() string {
	return uuid.NewString()
}

// NewReference wraps a track into a new occurrence.
func NewReference(t Track) Reference {
	return Reference{Track: t, UniqueID: NewUniqueID()}
}

// NewReferences wraps every track into a new occurrence, preserving order.
func NewReferences(tracks []Track) []Reference {
	refs := make([]Reference, len(tracks))
	for i, t := range tracks {
		refs[i] = NewReference(t)
	}
	return refs
}

// DurationSeconds returns the duration in whole seconds.
func (r Reference) DurationSeconds() int {
	return int(r.Duration / time.Second)
}

// WithUniqueID returns a copy of the reference carrying the given occurrence id.
func (r Reference) WithUniqueID(id string) Reference {
	r.UniqueID = id
	// Artists is shared with the original; copy it so the value stays immutable.
	if r.Artists != nil {
		r.Artists = append([]string(nil), r.Artists...)
	}
	if r.Markets != nil {
		r.Markets = append([]string(nil), r.Markets...)
	}
	return r
}

// UniqueIDs returns the occurrence ids of refs in order.
func UniqueIDs(refs []Reference) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.UniqueID
	}
	return ids
}
