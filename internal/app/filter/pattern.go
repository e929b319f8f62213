package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/track"
)

// DefaultPatterns drop karaoke and instrumental versions, e.g. "Song (Off Vocal)" or "Song -Inst-".
var DefaultPatterns = []string{
	`(\(|\[|~|-|（)[Oo]ff [Vv]ocal(\)|\]|~|-|）)`,
	`(（|\(|\[|~|-)[Ii]nst(rumental)?(\)|\]|~|-|）)`,
}

// PatternConfig represents the configuration for PatternFilter.
type PatternConfig struct {
	Patterns []string `yaml:"patterns" mapstructure:"patterns" validate:"dive,required"`
	Field    string   `yaml:"field" mapstructure:"field" default:"title" validate:"oneof=title album artist"`
}

// PatternFilter drops tracks whose title (or album/artist) matches any configured regular expression.
type PatternFilter struct {
	field    string
	patterns []*regexp.Regexp
}

// NewPatternFilter creates a pattern filter with the default patterns on titles.
func NewPatternFilter() *PatternFilter {
	f := &PatternFilter{field: "title"}
	for _, p := range DefaultPatterns {
		f.patterns = append(f.patterns, regexp.MustCompile(p))
	}
	return f
}

func (f *PatternFilter) Name() string {
	return "pattern_filter"
}

func (f *PatternFilter) Description() string {
	return "Drops tracks whose title matches a configured regular expression"
}

func (f *PatternFilter) ReturnCodes() []string {
	return []string{"pattern_match"}
}

func (f *PatternFilter) ValidateConfig(settings map[string]any) error {
	var config PatternConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if len(config.Patterns) == 0 {
		config.Patterns = DefaultPatterns
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	compiled := make([]*regexp.Regexp, 0, len(config.Patterns))
	for _, p := range config.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return errors.Wrapf(err, "invalid pattern %q", p)
		}
		compiled = append(compiled, re)
	}

	f.field = config.Field
	f.patterns = compiled
	zlog.Info().Msgf("pattern filter config: field=%s patterns=%d", f.field, len(f.patterns))
	return nil
}

// AppliesTo applies to both replace and append.
func (f *PatternFilter) AppliesTo(mode LoadMode) bool {
	return true
}

func (f *PatternFilter) Check(ctx context.Context, t track.Track, queued []track.Reference) Result {
	var subject string
	switch f.field {
	case "album":
		subject = t.Album
	case "artist":
		subject = strings.Join(t.Artists, ", ")
	default:
		subject = t.Name
	}

	for _, re := range f.patterns {
		if re.MatchString(subject) {
			return Reject("pattern_match")
		}
	}
	return Accept()
}

func init() {
	Register("pattern_filter", func() Filter {
		return NewPatternFilter()
	})
}
