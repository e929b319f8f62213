package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/queuebox/internal/domain/track"
)

// MarketConfig represents the configuration for MarketFilter.
type MarketConfig struct {
	Market string `yaml:"market" mapstructure:"market" validate:"omitempty,len=2"`
}

// MarketFilter drops tracks that cannot be played in the configured market.
type MarketFilter struct {
	market string
}

// NewMarketFilter creates a new MarketFilter with the specified market.
func NewMarketFilter(market string) *MarketFilter {
	return &MarketFilter{market: market}
}

func (f *MarketFilter) Name() string {
	return "market_filter"
}

func (f *MarketFilter) Description() string {
	return "Checks if the track is available in the configured market"
}

func (f *MarketFilter) ReturnCodes() []string {
	return []string{"market_restriction"}
}

func (f *MarketFilter) ValidateConfig(settings map[string]any) error {
	var config MarketConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	f.market = config.Market
	return nil
}

// AppliesTo applies to both replace and append.
func (f *MarketFilter) AppliesTo(mode LoadMode) bool {
	return true
}

func (f *MarketFilter) Check(ctx context.Context, t track.Track, queued []track.Reference) Result {
	if f.market == "" {
		return Accept()
	}
	if !t.IsAvailableInMarket(f.market) {
		return Reject("market_restriction")
	}
	return Accept()
}

func init() {
	Register("market_filter", func() Filter {
		return &MarketFilter{}
	})
}
