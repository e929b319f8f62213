package source

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"

	"github.com/osa030/queuebox/internal/domain/track"
)

// LibrarySourceConfig represents the settings of a library source.
type LibrarySourceConfig struct {
	Manifest string `yaml:"manifest" mapstructure:"manifest" validate:"required"`
	Encoding string `yaml:"encoding" mapstructure:"encoding" default:"utf-8"`
}

// libraryManifest is the on-disk layout of a library manifest.
type libraryManifest struct {
	Collections []libraryCollection `yaml:"collections"`
}

type libraryCollection struct {
	Kind   string         `yaml:"kind" validate:"required,oneof=album playlist artist"`
	ID     string         `yaml:"id" validate:"required"`
	Name   string         `yaml:"name"`
	Tracks []libraryTrack `yaml:"tracks" validate:"dive"`
}

type libraryTrack struct {
	ID          string   `yaml:"id" validate:"required"`
	Title       string   `yaml:"title" validate:"required"`
	Artists     []string `yaml:"artists"`
	Album       string   `yaml:"album"`
	AlbumID     string   `yaml:"album_id"`
	DurationSec int      `yaml:"duration_sec" validate:"gte=0"`
	URI         string   `yaml:"uri"`
	ArtworkURL  string   `yaml:"artwork_url"`
}

// LibrarySource serves collections described in a local YAML manifest.
// The manifest is re-read on every fetch so edits are picked up without a restart.
type LibrarySource struct {
	name   string
	config *LibrarySourceConfig
}

// NewLibrarySource creates a new LibrarySource.
func NewLibrarySource(name string, settings map[string]any) (*LibrarySource, error) {
	var config LibrarySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("library source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	if _, err := htmlindex.Get(config.Encoding); err != nil {
		return nil, errors.Wrapf(err, "unknown manifest encoding %q", config.Encoding)
	}
	return &LibrarySource{name: name, config: &config}, nil
}

// Fetch returns the collection with the given kind and id.
// An artist without its own collection is built from every track crediting that artist.
func (s *LibrarySource) Fetch(ctx context.Context, kind track.Kind, id string) (track.Collection, error) {
	switch kind {
	case track.KindAlbum, track.KindPlaylist, track.KindArtist:
	default:
		return track.Collection{}, errors.Wrapf(ErrUnsupportedKind, "source=%s kind=%s", s.name, kind)
	}
	if err := ctx.Err(); err != nil {
		return track.Collection{}, err
	}

	manifest, err := s.load()
	if err != nil {
		return track.Collection{}, err
	}

	for _, c := range manifest.Collections {
		if track.Kind(c.Kind) == kind && c.ID == id {
			return c.toCollection(), nil
		}
	}

	if kind == track.KindArtist {
		if c, ok := manifest.artist(id); ok {
			return c, nil
		}
	}

	return track.Collection{}, errors.Wrapf(ErrNotFound, "source=%s kind=%s id=%s", s.name, kind, id)
}

// Name returns the source name.
func (s *LibrarySource) Name() string {
	return s.name
}

// load reads, decodes and validates the manifest.
func (s *LibrarySource) load() (*libraryManifest, error) {
	data, err := os.ReadFile(s.config.Manifest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read library manifest")
	}

	if enc := strings.ToLower(s.config.Encoding); enc != "utf-8" && enc != "utf8" {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, errors.Wrapf(err, "unknown manifest encoding %q", enc)
		}
		data, err = e.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode library manifest")
		}
	}

	var manifest libraryManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "failed to parse library manifest")
	}

	validate := validator.New()
	for i, c := range manifest.Collections {
		if err := validate.Struct(c); err != nil {
			return nil, errors.Wrapf(err, "invalid collection at index %d", i)
		}
	}

	return &manifest, nil
}

// artist collects the tracks crediting the artist across all collections, first occurrence wins.
func (m *libraryManifest) artist(name string) (track.Collection, bool) {
	var tracks []track.Track
	for _, c := range m.Collections {
		for _, t := range c.Tracks {
			if lo.ContainsBy(t.Artists, func(a string) bool { return strings.EqualFold(a, name) }) {
				tracks = append(tracks, t.toTrack())
			}
		}
	}
	tracks = lo.UniqBy(tracks, func(t track.Track) string { return t.ID })
	if len(tracks) == 0 {
		return track.Collection{}, false
	}
	return track.Collection{Kind: track.KindArtist, ID: name, Name: name, Tracks: tracks}, true
}

func (c libraryCollection) toCollection() track.Collection {
	tracks := make([]track.Track, len(c.Tracks))
	for i, t := range c.Tracks {
		tracks[i] = t.toTrack()
	}
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return track.Collection{Kind: track.Kind(c.Kind), ID: c.ID, Name: name, Tracks: tracks}
}

func (t libraryTrack) toTrack() track.Track {
	var artworkKey string
	if t.AlbumID != "" {
		artworkKey = "library-" + t.AlbumID
	}
	return track.Track{
		ID:          t.ID,
		Name:        t.Title,
		Artists:     t.Artists,
		Album:       t.Album,
		AlbumID:     t.AlbumID,
		AlbumArtURL: t.ArtworkURL,
		Duration:    time.Duration(t.DurationSec) * time.Second,
		SourceURI:   t.URI,
		ArtworkKey:  artworkKey,
	}
}
