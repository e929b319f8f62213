// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Source types.
const (
	SourceTypeSpotify = "spotify"
	SourceTypeLibrary = "library"
)

// Config represents the application configuration.
type Config struct {
	Playback PlaybackConfig          `yaml:"playback"`
	Sources  []SourceConfig          `yaml:"sources" validate:"required,min=1,dive"`
	Filters  map[string]FilterConfig `yaml:"filters"`
	Artwork  ArtworkConfig           `yaml:"artwork"`
	Resume   ResumeConfig            `yaml:"resume"`
	Spotify  SpotifyConfig           `yaml:"spotify"`
}

// PlaybackConfig represents queue and playback behaviour.
type PlaybackConfig struct {
	Repeat          string `yaml:"repeat" default:"all" validate:"oneof=off none all one"`
	Shuffle         bool   `yaml:"shuffle"`
	ShuffleAppend   string `yaml:"shuffle_append" default:"random" validate:"oneof=random next end"`
	ClickDebounceMs int    `yaml:"click_debounce_ms" default:"100" validate:"gte=0,lte=1000"`
	FadeDurationSec int    `yaml:"fade_duration_sec" default:"9" validate:"gte=0,lte=60"`
	GapCorrectionMs int    `yaml:"gap_correction_ms" default:"100" validate:"gte=0,lte=5000"`
}

// SourceConfig represents a single track source.
type SourceConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=spotify library"`
	Name     string         `yaml:"name" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// ArtworkConfig represents the artwork cache configuration.
type ArtworkConfig struct {
	Dir                string `yaml:"dir" default:".queuebox/artwork"`
	Size               int    `yaml:"size" default:"350" validate:"gte=16,lte=4096"`
	DownloadTimeoutSec int    `yaml:"download_timeout_sec" default:"10" validate:"gte=1,lte=120"`
}

// ResumeConfig represents queue persistence across restarts.
type ResumeConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:".queuebox/queue.db"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	names := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if names[s.Name] {
			return errors.Newf("duplicate source name: %s", s.Name)
		}
		names[s.Name] = true
	}

	if c.HasSource(SourceTypeSpotify) {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify source requires client_id, client_secret and refresh_token")
		}
	}

	return nil
}

// HasSource reports whether a source of the given type is configured.
func (c *Config) HasSource(sourceType string) bool {
	for _, s := range c.Sources {
		if s.Type == sourceType {
			return true
		}
	}
	return false
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// EnabledFilters returns the names of enabled filters in a stable order.
func (c *Config) EnabledFilters() []string {
	var names []string
	for name, f := range c.Filters {
		if f.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// GetFilterSettings returns the settings for a filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok && f.Settings != nil {
		return f.Settings
	}
	return map[string]any{}
}
