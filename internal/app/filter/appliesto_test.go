package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_AppliesTo(t *testing.T) {
	tests := []struct {
		name        string
		filter      Filter
		wantReplace bool
		wantAppend  bool
	}{
		{"pattern_filter", NewPatternFilter(), true, true},
		{"duration_limit_filter", NewDurationLimitFilter(), true, true},
		{"duplicate_track_filter", NewDuplicateTrackFilter(), false, true},
		{"market_filter", NewMarketFilter("JP"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantReplace, tt.filter.AppliesTo(ModeReplace),
				"%s.AppliesTo(replace) mismatch", tt.name)
			assert.Equal(t, tt.wantAppend, tt.filter.AppliesTo(ModeAppend),
				"%s.AppliesTo(append) mismatch", tt.name)
		})
	}
}

func TestLoadMode_String(t *testing.T) {
	assert.Equal(t, "replace", ModeReplace.String())
	assert.Equal(t, "append", ModeAppend.String())
	assert.Equal(t, "unknown", LoadMode(7).String())
}
