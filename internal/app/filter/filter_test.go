package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/domain/track"
	"github.com/osa030/queuebox/internal/infra/config"
)

func TestPatternFilter_DefaultPatterns(t *testing.T) {
	tests := []struct {
		name         string
		title        string
		wantAccepted bool
	}{
		{name: "plain title", title: "Connect", wantAccepted: true},
		{name: "off vocal in parentheses", title: "Connect (Off Vocal)", wantAccepted: false},
		{name: "off vocal full-width", title: "Connect（off vocal）", wantAccepted: false},
		{name: "instrumental with dashes", title: "Connect -Instrumental-", wantAccepted: false},
		{name: "inst in brackets", title: "Connect [Inst]", wantAccepted: false},
		{name: "word without delimiters", title: "Instrumental Love", wantAccepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewPatternFilter()

			result := f.Check(context.Background(), track.Track{ID: "t", Name: tt.title}, nil)

			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "pattern_match", result.Code)
			}
		})
	}
}

func TestPatternFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "empty settings use defaults", settings: map[string]any{}, wantErr: false},
		{name: "custom patterns", settings: map[string]any{"patterns": []any{"(?i)karaoke"}}, wantErr: false},
		{name: "album field", settings: map[string]any{"field": "album"}, wantErr: false},
		{name: "unknown field", settings: map[string]any{"field": "genre"}, wantErr: true},
		{name: "invalid regex", settings: map[string]any{"patterns": []any{"("}}, wantErr: true},
		{name: "empty pattern", settings: map[string]any{"patterns": []any{""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPatternFilter().ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPatternFilter_CustomField(t *testing.T) {
	f := NewPatternFilter()
	require.NoError(t, f.ValidateConfig(map[string]any{
		"patterns": []any{"(?i)karaoke"},
		"field":    "album",
	}))

	rejected := f.Check(context.Background(), track.Track{Name: "Song", Album: "Karaoke Hits"}, nil)
	accepted := f.Check(context.Background(), track.Track{Name: "Karaoke", Album: "Originals"}, nil)

	assert.False(t, rejected.Accepted)
	assert.True(t, accepted.Accepted)
}

func TestChain_Apply(t *testing.T) {
	chain := NewChain()
	chain.Add(NewPatternFilter())
	limit := NewDurationLimitFilter()
	require.NoError(t, limit.ValidateConfig(map[string]any{"min_minutes": 1}))
	chain.Add(limit)
	chain.Add(NewDuplicateTrackFilter())

	queued := track.NewReferences([]track.Track{{ID: "q1", Name: "Already Queued", Artists: []string{"A"}}})
	tracks := []track.Track{
		{ID: "t1", Name: "Keep Me", Artists: []string{"A"}, Duration: 3 * time.Minute},
		{ID: "t2", Name: "Keep Me (Off Vocal)", Artists: []string{"A"}, Duration: 3 * time.Minute},
		{ID: "t3", Name: "Short", Artists: []string{"A"}, Duration: 20 * time.Second},
		{ID: "q1", Name: "Already Queued", Artists: []string{"A"}, Duration: 3 * time.Minute},
		{ID: "t5", Name: "Also Kept", Artists: []string{"B"}, Duration: 4 * time.Minute},
	}

	t.Run("append applies every filter", func(t *testing.T) {
		accepted, rejected := chain.Apply(context.Background(), tracks, queued, ModeAppend)

		assert.Equal(t, []string{"t1", "t5"}, trackIDs(accepted))
		require.Len(t, rejected, 3)
		assert.Equal(t, Rejection{Track: tracks[1], Filter: "pattern_filter", Code: "pattern_match"}, rejected[0])
		assert.Equal(t, "duration_limit_filter", rejected[1].Filter)
		assert.Equal(t, "duplicate_track", rejected[2].Code)
	})

	t.Run("replace skips append-only filters", func(t *testing.T) {
		accepted, rejected := chain.Apply(context.Background(), tracks, queued, ModeReplace)

		assert.Equal(t, []string{"t1", "q1", "t5"}, trackIDs(accepted))
		assert.Len(t, rejected, 2)
	})

	t.Run("empty chain accepts everything", func(t *testing.T) {
		accepted, rejected := NewChain().Apply(context.Background(), tracks, queued, ModeAppend)

		assert.Len(t, accepted, len(tracks))
		assert.Empty(t, rejected)
	})
}

func TestNewChainFromConfig(t *testing.T) {
	t.Run("enabled filters in name order", func(t *testing.T) {
		cfg := &config.Config{Filters: map[string]config.FilterConfig{
			"pattern_filter":         {Enabled: true},
			"duration_limit_filter":  {Enabled: true, Settings: map[string]any{"max_minutes": 10}},
			"duplicate_track_filter": {Enabled: false},
		}}

		chain, err := NewChainFromConfig(cfg)
		require.NoError(t, err)

		names := make([]string, 0)
		for _, f := range chain.Filters() {
			names = append(names, f.Name())
		}
		assert.Equal(t, []string{"duration_limit_filter", "pattern_filter"}, names)
	})

	t.Run("unknown filter", func(t *testing.T) {
		cfg := &config.Config{Filters: map[string]config.FilterConfig{
			"no_such_filter": {Enabled: true},
		}}

		_, err := NewChainFromConfig(cfg)
		assert.ErrorContains(t, err, "unknown filter")
	})

	t.Run("invalid settings", func(t *testing.T) {
		cfg := &config.Config{Filters: map[string]config.FilterConfig{
			"duration_limit_filter": {Enabled: true, Settings: map[string]any{"min_minutes": 10, "max_minutes": 5}},
		}}

		_, err := NewChainFromConfig(cfg)
		assert.ErrorContains(t, err, "duration_limit_filter")
	})
}

func TestRegistry(t *testing.T) {
	registered := GetRegistered()

	for _, name := range []string{"pattern_filter", "duration_limit_filter", "duplicate_track_filter", "market_filter"} {
		factory, ok := registered[name]
		require.True(t, ok, "filter %s should be registered", name)
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.Description())
		assert.NotEmpty(t, f.ReturnCodes())
	}
}

func trackIDs(tracks []track.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
