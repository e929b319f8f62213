package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/domain/track"
)

func TestMarketFilter(t *testing.T) {
	unplayable := false
	tests := []struct {
		name         string
		market       string
		track        track.Track
		wantAccepted bool
	}{
		{name: "no market configured", market: "", track: track.Track{Markets: []string{"US"}}, wantAccepted: true},
		{name: "available", market: "JP", track: track.Track{Markets: []string{"JP"}}, wantAccepted: true},
		{name: "unknown availability", market: "JP", track: track.Track{}, wantAccepted: true},
		{name: "not in market", market: "JP", track: track.Track{Markets: []string{"US"}}, wantAccepted: false},
		{name: "relinked unplayable", market: "JP", track: track.Track{Playable: &unplayable}, wantAccepted: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewMarketFilter(tt.market)
			got := f.Check(context.Background(), tt.track, nil)
			assert.Equal(t, tt.wantAccepted, got.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "market_restriction", got.Code)
			}
		})
	}
}

func TestMarketFilter_ValidateConfig(t *testing.T) {
	f := &MarketFilter{}
	require.NoError(t, f.ValidateConfig(map[string]any{"market": "US"}))
	assert.Equal(t, "US", f.market)

	assert.Error(t, f.ValidateConfig(map[string]any{"market": "USA"}))
	assert.True(t, f.AppliesTo(ModeReplace))
	assert.True(t, f.AppliesTo(ModeAppend))
}
