package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/track"
	"github.com/osa030/queuebox/internal/infra/config"
)

// Rejection records a track dropped by a filter.
type Rejection struct {
	Track  track.Track
	Filter string
	Code   string
}

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// NewChainFromConfig creates a chain of every enabled filter, configured from its settings.
func NewChainFromConfig(cfg *config.Config) (*Chain, error) {
	chain := NewChain()
	for _, name := range cfg.EnabledFilters() {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}
		f := factory()
		if err := f.ValidateConfig(cfg.GetFilterSettings(name)); err != nil {
			return nil, errors.Wrapf(err, "invalid settings for filter %s", name)
		}
		chain.Add(f)
		zlog.Info().Msgf("registered filter: name=%s", name)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
// Filters are only applied if they declare they apply to the given load mode.
func (c *Chain) Execute(ctx context.Context, t track.Track, queued []track.Reference, mode LoadMode) (Result, string) {
	for _, f := range c.filters {
		if !f.AppliesTo(mode) {
			continue
		}

		result := f.Check(ctx, t, queued)
		if !result.Accepted {
			return result, f.Name()
		}
	}
	return Accept(), ""
}

// Apply runs the chain over tracks, returning the accepted ones in order and the rejections.
func (c *Chain) Apply(ctx context.Context, tracks []track.Track, queued []track.Reference, mode LoadMode) ([]track.Track, []Rejection) {
	accepted := make([]track.Track, 0, len(tracks))
	var rejected []Rejection
	for _, t := range tracks {
		result, name := c.Execute(ctx, t, queued, mode)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: track rejected: filter=%s code=%s track=%s", name, result.Code, t.Name)
			rejected = append(rejected, Rejection{Track: t, Filter: name, Code: result.Code})
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted, rejected
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
