// Package source provides track sources the queue is loaded from.
package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/queuebox/internal/domain/track"
)

var (
	// ErrUnknownSource is returned when no source is registered under a name.
	ErrUnknownSource = errors.New("unknown source")
	// ErrUnsupportedKind is returned when a source cannot serve a collection kind.
	ErrUnsupportedKind = errors.New("unsupported collection kind")
	// ErrNotFound is returned when a source has no collection with the requested id.
	ErrNotFound = errors.New("collection not found")
	// ErrNothingToLoad is returned when no track of a collection survived the filters.
	ErrNothingToLoad = errors.New("no tracks left to load")
)

// Source fetches collections of tracks (albums, playlists, artists).
// Fetch may block on network or disk and must be called outside the engine loop.
type Source interface {
	// Fetch retrieves the collection of the given kind and id in source order.
	Fetch(ctx context.Context, kind track.Kind, id string) (track.Collection, error)

	// Name returns the source name (used in config and commands).
	Name() string
}

// SpotifyClient defines the Spotify operations needed by the spotify source.
type SpotifyClient interface {
	GetAlbum(ctx context.Context, albumURL string) (track.Collection, error)
	GetPlaylistTracks(ctx context.Context, playlistURL string) (track.Collection, error)
	GetArtistTopTracks(ctx context.Context, artistURL string) (track.Collection, error)
}
