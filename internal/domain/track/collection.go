package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Kind is the type of a track collection on a source.
type Kind string

const (
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindArtist   Kind = "artist"
)

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindAlbum, KindPlaylist, KindArtist:
		return k, nil
	default:
		return "", errors.Newf("unknown collection kind: %q", s)
	}
}

// Collection is an ordered list of tracks fetched from a source
// (an album, a playlist or an artist's tracks).
type Collection struct {
	Kind   Kind    // Collection kind
	ID     string  // Identifier on the source
	Name   string  // Display name
	Tracks []Track // Tracks in source order
}

// TrackIDs returns all track IDs in the collection.
func (c *Collection) TrackIDs() []string {
	ids := make([]string, len(c.Tracks))
	for i, t := range c.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDuration returns the total duration of all tracks.
func (c *Collection) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range c.Tracks {
		total += t.Duration
	}
	return total
}

// References wraps the collection's tracks into new queue occurrences.
func (c *Collection) References() []Reference {
	return NewReferences(c.Tracks)
}
