package source

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/track"
)

// SpotifySource fetches albums, playlists and artist top tracks from Spotify.
type SpotifySource struct {
	name    string
	spotify SpotifyClient
}

// NewSpotifySource creates a new SpotifySource.
func NewSpotifySource(name string, spotify SpotifyClient) (*SpotifySource, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}
	return &SpotifySource{name: name, spotify: spotify}, nil
}

// Fetch retrieves a collection. id may be a Spotify ID, URI or URL.
func (s *SpotifySource) Fetch(ctx context.Context, kind track.Kind, id string) (track.Collection, error) {
	var (
		c   track.Collection
		err error
	)
	switch kind {
	case track.KindAlbum:
		c, err = s.spotify.GetAlbum(ctx, id)
	case track.KindPlaylist:
		c, err = s.spotify.GetPlaylistTracks(ctx, id)
	case track.KindArtist:
		c, err = s.spotify.GetArtistTopTracks(ctx, id)
	default:
		return track.Collection{}, errors.Wrapf(ErrUnsupportedKind, "source=%s kind=%s", s.name, kind)
	}
	if err != nil {
		return track.Collection{}, errors.Wrapf(err, "failed to fetch %s %s", kind, id)
	}

	zlog.Debug().Msgf("spotify source fetched collection: source=%s kind=%s id=%s tracks=%d", s.name, kind, c.ID, len(c.Tracks))
	return c, nil
}

// Name returns the source name.
func (s *SpotifySource) Name() string {
	return s.name
}
