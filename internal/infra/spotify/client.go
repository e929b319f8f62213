// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/queuebox/internal/domain/track"
)

// Scopes are the OAuth scopes the client needs. The auth command requests the same set.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryRead,
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// The access token is obtained (and refreshed) from the refresh token on first use
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	httpClient := auth.Client(ctx, token)

	market := cfg.Market
	if market == "" {
		market = "JP"
	}

	return &Client{
		client:     spotify.New(httpClient),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// GetAlbum retrieves an album and all of its tracks in disc order.
func (c *Client) GetAlbum(ctx context.Context, albumURL string) (track.Collection, error) {
	albumID := extractID(albumURL, "album")
	if albumID == "" {
		return track.Collection{}, errors.New("invalid album URL")
	}

	var album *spotify.FullAlbum
	err := c.retry(ctx, func() error {
		a, err := c.client.GetAlbum(ctx, spotify.ID(albumID), spotify.Market(c.market))
		if err != nil {
			return err
		}
		album = a
		return nil
	})
	if err != nil {
		return track.Collection{}, errors.Wrap(err, "failed to get album")
	}

	var tracks []track.Track
	offset := 0
	limit := 50

	for {
		var page *spotify.SimpleTrackPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetAlbumTracks(ctx, spotify.ID(albumID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return track.Collection{}, errors.Wrap(err, "failed to get album tracks")
		}

		for _, t := range page.Tracks {
			if t.ID == "" {
				continue
			}
			tracks = append(tracks, c.convertSimpleTrack(t, album.SimpleAlbum))
		}

		if len(page.Tracks) < limit {
			break
		}
		offset += limit
	}

	return track.Collection{
		Kind:   track.KindAlbum,
		ID:     albumID,
		Name:   album.Name,
		Tracks: tracks,
	}, nil
}

// GetPlaylistTracks retrieves a playlist and all of its tracks.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistURL string) (track.Collection, error) {
	playlistID := extractID(playlistURL, "playlist")
	if playlistID == "" {
		return track.Collection{}, errors.New("invalid playlist URL")
	}

	var playlist *spotify.FullPlaylist
	err := c.retry(ctx, func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Market(c.market))
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return track.Collection{}, errors.Wrap(err, "failed to get playlist")
	}

	var tracks []track.Track
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return track.Collection{}, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, c.convertTrack(item.Track.Track))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return track.Collection{
		Kind:   track.KindPlaylist,
		ID:     playlistID,
		Name:   playlist.Name,
		Tracks: tracks,
	}, nil
}

// GetArtistTopTracks retrieves an artist's top tracks in the configured market.
func (c *Client) GetArtistTopTracks(ctx context.Context, artistURL string) (track.Collection, error) {
	artistID := extractID(artistURL, "artist")
	if artistID == "" {
		return track.Collection{}, errors.New("invalid artist URL")
	}

	var artist *spotify.FullArtist
	err := c.retry(ctx, func() error {
		a, err := c.client.GetArtist(ctx, spotify.ID(artistID))
		if err != nil {
			return err
		}
		artist = a
		return nil
	})
	if err != nil {
		return track.Collection{}, errors.Wrap(err, "failed to get artist")
	}

	var top []spotify.FullTrack
	err = c.retry(ctx, func() error {
		t, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.market)
		if err != nil {
			return err
		}
		top = t
		return nil
	})
	if err != nil {
		return track.Collection{}, errors.Wrap(err, "failed to get artist top tracks")
	}

	tracks := make([]track.Track, 0, len(top))
	for i := range top {
		tracks = append(tracks, c.convertTrack(&top[i]))
	}

	return track.Collection{
		Kind:   track.KindArtist,
		ID:     artistID,
		Name:   artist.Name,
		Tracks: tracks,
	}, nil
}

// Market returns the market used for track relinking.
func (c *Client) Market() string {
	return c.market
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) track.Track {
	converted := c.convertSimpleTrack(t.SimpleTrack, t.Album)
	if t.IsPlayable != nil {
		playable := *t.IsPlayable
		converted.Playable = &playable
	}
	return converted
}

// convertSimpleTrack converts a track and the album it belongs to.
// Album track listings carry no album object, so the album is passed separately.
func (c *Client) convertSimpleTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	var albumArt string
	if len(album.Images) > 0 {
		albumArt = album.Images[0].URL
	}

	var markets []string
	if len(t.AvailableMarkets) > 0 {
		markets = append(markets, t.AvailableMarkets...)
	}

	var artworkKey string
	if album.ID != "" {
		artworkKey = "spotify-" + string(album.ID)
	}

	return track.Track{
		ID:          string(t.ID),
		Name:        t.Name,
		Artists:     artists,
		Album:       album.Name,
		AlbumID:     string(album.ID),
		AlbumArtURL: albumArt,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		SourceURI:   string(t.URI),
		ArtworkKey:  artworkKey,
		Markets:     markets,
	}
}

// retry retries an operation with linear backoff, giving up early if ctx is done.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractID extracts the object ID from a Spotify URL or URI of the given kind
// (album, playlist, artist, track).
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:<kind>:ID
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	// Handle URL format: https://open.spotify.com/<kind>/ID or https://open.spotify.com/intl-XX/<kind>/ID
	sep := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, sep) {
		parts := strings.Split(input, sep)
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already an ID
	return input
}
