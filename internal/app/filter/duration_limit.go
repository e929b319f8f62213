package filter

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/track"
)

const (
	codeTooShort = "track_too_short"
	codeTooLong  = "track_too_long"
)

// DurationLimitConfig represents the configuration for DurationLimitFilter.
type DurationLimitConfig struct {
	MinMinutes float64 `yaml:"min_minutes" mapstructure:"min_minutes" default:"0.5" validate:"gte=0"`
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"omitempty,gte=0,gtefield=MinMinutes"`
	AppendOnly bool    `yaml:"append_only" mapstructure:"append_only"`
}

// DurationLimitFilter drops tracks outside a duration range, such as jingles.
// A zero limit is open.
type DurationLimitFilter struct {
	min, max   time.Duration
	appendOnly bool
}

// NewDurationLimitFilter creates a filter with no limits until configured.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Drops tracks shorter or longer than the configured number of minutes"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{codeTooShort, codeTooLong}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "min_minutes and max_minutes must be non-negative with min <= max")
	}

	f.min = minutes(config.MinMinutes)
	f.max = minutes(config.MaxMinutes)
	f.appendOnly = config.AppendOnly
	zlog.Info().Msgf("filter: duration limit: min=%v max=%v append_only=%t", f.min, f.max, f.appendOnly)
	return nil
}

// AppliesTo covers every load unless configured for appends only.
func (f *DurationLimitFilter) AppliesTo(mode LoadMode) bool {
	return !f.appendOnly || mode == ModeAppend
}

func (f *DurationLimitFilter) Check(ctx context.Context, t track.Track, queued []track.Reference) Result {
	switch {
	case f.min > 0 && t.Duration < f.min:
		return Reject(codeTooShort)
	case f.max > 0 && t.Duration > f.max:
		return Reject(codeTooLong)
	}
	return Accept()
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
