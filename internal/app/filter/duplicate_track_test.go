package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/queuebox/internal/domain/track"
)

func TestDuplicateTrackFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		queued       track.Track
		appended     track.Track
		wantRejected bool
	}{
		{
			name:         "same song id",
			queued:       track.Track{ID: "s1", Name: "Blue Train", Artists: []string{"John Coltrane"}},
			appended:     track.Track{ID: "s1", Name: "Blue Train", Artists: []string{"John Coltrane"}},
			wantRejected: true,
		},
		{
			name:         "dated remaster suffix",
			queued:       track.Track{ID: "s1", Name: "Moment's Notice", Artists: []string{"John Coltrane"}},
			appended:     track.Track{ID: "s2", Name: "Moment's Notice - 2003 Remaster", Artists: []string{"John Coltrane"}},
			wantRejected: true,
		},
		{
			name:         "remastered in brackets",
			queued:       track.Track{ID: "s1", Name: "Naima", Artists: []string{"John Coltrane"}},
			appended:     track.Track{ID: "s2", Name: "Naima [Remastered]", Artists: []string{"john coltrane"}},
			wantRejected: true,
		},
		{
			name:         "live and edit versions",
			queued:       track.Track{ID: "s1", Name: "Plastic Love (Single Version)", Artists: []string{"Mariya Takeuchi"}},
			appended:     track.Track{ID: "s2", Name: "Plastic Love - Live", Artists: []string{"Mariya Takeuchi"}},
			wantRejected: true,
		},
		{
			name:         "diacritics folded",
			queued:       track.Track{ID: "s1", Name: "Café Society", Artists: []string{"Zoë"}},
			appended:     track.Track{ID: "s2", Name: "Cafe Society (Remastered 2019)", Artists: []string{"Zoe"}},
			wantRejected: true,
		},
		{
			name:         "cover by another artist",
			queued:       track.Track{ID: "s1", Name: "My Favorite Things", Artists: []string{"Julie Andrews"}},
			appended:     track.Track{ID: "s2", Name: "My Favorite Things", Artists: []string{"John Coltrane"}},
			wantRejected: false,
		},
		{
			name:         "remix is a different song",
			queued:       track.Track{ID: "s1", Name: "Stay", Artists: []string{"Rihanna"}},
			appended:     track.Track{ID: "s2", Name: "Stay (Club Remix)", Artists: []string{"Rihanna"}},
			wantRejected: false,
		},
		{
			name:         "no artists never match by name",
			queued:       track.Track{ID: "s1", Name: "Intro"},
			appended:     track.Track{ID: "s2", Name: "Intro"},
			wantRejected: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDuplicateTrackFilter()
			queued := track.NewReferences([]track.Track{tt.queued})

			got := f.Check(context.Background(), tt.appended, queued)

			assert.Equal(t, !tt.wantRejected, got.Accepted)
			if tt.wantRejected {
				assert.Equal(t, "duplicate_track", got.Code)
			}
		})
	}
}

func TestDuplicateTrackFilter_EmptyQueue(t *testing.T) {
	f := NewDuplicateTrackFilter()
	got := f.Check(context.Background(), track.Track{ID: "s1", Name: "Anything"}, nil)
	assert.True(t, got.Accepted)
}

func TestDuplicateTrackFilter_OnlyOnAppend(t *testing.T) {
	chain := NewChain()
	chain.Add(NewDuplicateTrackFilter())

	queued := track.NewReferences([]track.Track{{ID: "s1", Name: "Blue Train", Artists: []string{"John Coltrane"}}})
	fetched := []track.Track{
		{ID: "s1", Name: "Blue Train", Artists: []string{"John Coltrane"}, Duration: 10 * time.Minute},
		{ID: "s3", Name: "Locomotion", Artists: []string{"John Coltrane"}, Duration: 7 * time.Minute},
	}

	accepted, rejected := chain.Apply(context.Background(), fetched, queued, ModeAppend)
	assert.Equal(t, []string{"s3"}, trackIDs(accepted))
	require.Len(t, rejected, 1)
	assert.Equal(t, "duplicate_track_filter", rejected[0].Filter)

	accepted, rejected = chain.Apply(context.Background(), fetched, queued, ModeReplace)
	assert.Len(t, accepted, 2)
	assert.Empty(t, rejected)
}

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Giant Steps", want: "giant steps"},
		{in: "Giant Steps - 2020 Remaster", want: "giant steps"},
		{in: "Giant Steps (Remastered)", want: "giant steps"},
		{in: "Giant Steps (Alternate Version)", want: "giant steps"},
		{in: "Giant Steps (Radio Edit)", want: "giant steps"},
		{in: "  Giant   Steps  ", want: "giant steps"},
		{in: "Señorita", want: "senorita"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeTrackName(tt.in), "normalizeTrackName(%q)", tt.in)
	}
}

func TestIsSameArtist(t *testing.T) {
	assert.True(t, isSameArtist(track.Track{Artists: []string{"Björk", "X"}}, track.Track{Artists: []string{"bjork"}}))
	assert.False(t, isSameArtist(track.Track{Artists: []string{"Björk"}}, track.Track{Artists: []string{"Sigur Rós"}}))
	assert.False(t, isSameArtist(track.Track{}, track.Track{Artists: []string{"Björk"}}))
}
