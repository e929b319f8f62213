package source

import (
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/infra/config"
)

// Sources holds the configured sources by name.
type Sources struct {
	byName map[string]Source
	order  []string
}

// NewSources creates a set of sources. Later sources with a duplicate name replace earlier ones.
func NewSources(sources ...Source) *Sources {
	s := &Sources{byName: make(map[string]Source)}
	for _, src := range sources {
		if _, ok := s.byName[src.Name()]; !ok {
			s.order = append(s.order, src.Name())
		}
		s.byName[src.Name()] = src
	}
	return s
}

// NewSourcesFromConfig creates the sources listed in configuration.
// spotify may be nil when no spotify source is configured.
func NewSourcesFromConfig(cfg *config.Config, spotify SpotifyClient) (*Sources, error) {
	if len(cfg.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	var sources []Source

	for i, scfg := range cfg.Sources {
		var src Source
		var err error
		zlog.Debug().Msgf("creating source: index=%d type=%s name=%s settings=%+v", i+1, scfg.Type, scfg.Name, scfg.Settings)
		switch scfg.Type {
		case config.SourceTypeSpotify:
			src, err = NewSpotifySource(scfg.Name, spotify)

		case config.SourceTypeLibrary:
			src, err = NewLibrarySource(scfg.Name, scfg.Settings)

		default:
			return nil, errors.Newf("unsupported source type: %s (source index %d)", scfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create source (index %d, type %s)", i, scfg.Type)
		}

		sources = append(sources, src)
		zlog.Info().Msgf("registered source: index=%d type=%s name=%s", i+1, scfg.Type, scfg.Name)
	}

	return NewSources(sources...), nil
}

// Get returns the source registered under name.
func (s *Sources) Get(name string) (Source, error) {
	src, ok := s.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSource, "name=%s", name)
	}
	return src, nil
}

// Default returns the first configured source.
func (s *Sources) Default() (Source, error) {
	if len(s.order) == 0 {
		return nil, ErrUnknownSource
	}
	return s.byName[s.order[0]], nil
}

// Names returns the source names sorted alphabetically.
func (s *Sources) Names() []string {
	names := append([]string(nil), s.order...)
	sort.Strings(names)
	return names
}
