package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/infra/config"
)

func TestNewSourcesFromConfig(t *testing.T) {
	t.Run("spotify and library", func(t *testing.T) {
		cfg := &config.Config{Sources: []config.SourceConfig{
			{Type: config.SourceTypeSpotify, Name: "spotify"},
			{Type: config.SourceTypeLibrary, Name: "local", Settings: map[string]any{"manifest": "lib.yaml"}},
		}}

		sources, err := NewSourcesFromConfig(cfg, &mockSpotifyClient{})
		require.NoError(t, err)

		assert.Equal(t, []string{"local", "spotify"}, sources.Names())

		def, err := sources.Default()
		require.NoError(t, err)
		assert.Equal(t, "spotify", def.Name())

		local, err := sources.Get("local")
		require.NoError(t, err)
		assert.IsType(t, &LibrarySource{}, local)
	})

	t.Run("no sources", func(t *testing.T) {
		_, err := NewSourcesFromConfig(&config.Config{}, nil)
		assert.Error(t, err)
	})

	t.Run("spotify source without client", func(t *testing.T) {
		cfg := &config.Config{Sources: []config.SourceConfig{{Type: config.SourceTypeSpotify, Name: "spotify"}}}

		_, err := NewSourcesFromConfig(cfg, nil)
		assert.ErrorContains(t, err, "type spotify")
	})

	t.Run("invalid library settings", func(t *testing.T) {
		cfg := &config.Config{Sources: []config.SourceConfig{{Type: config.SourceTypeLibrary, Name: "local"}}}

		_, err := NewSourcesFromConfig(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("unsupported type", func(t *testing.T) {
		cfg := &config.Config{Sources: []config.SourceConfig{{Type: "ftp", Name: "x"}}}

		_, err := NewSourcesFromConfig(cfg, nil)
		assert.ErrorContains(t, err, "unsupported source type")
	})
}

func TestSources_Get(t *testing.T) {
	src, err := NewSpotifySource("a", &mockSpotifyClient{})
	require.NoError(t, err)
	sources := NewSources(src)

	_, err = sources.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = NewSources().Default()
	assert.ErrorIs(t, err, ErrUnknownSource)
}
