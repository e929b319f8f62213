package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/queuebox/internal/domain/track"
)

func rows() []track.Reference {
	return []track.Reference{
		{UniqueID: "u1", Track: track.Track{Name: "Halo", Artists: []string{"Beyoncé"}, Album: "I Am... Sasha Fierce", Duration: 261 * time.Second}},
		{UniqueID: "u2", Track: track.Track{Name: "Crazy in Love", Artists: []string{"Beyoncé", "JAY-Z"}, Album: "Dangerously in Love", Duration: 236 * time.Second}},
		{UniqueID: "u3", Track: track.Track{Name: "Bohemian Rhapsody", Artists: []string{"Queen"}, Album: "A Night at the Opera", Duration: 354 * time.Second}},
		{UniqueID: "u4", Track: track.Track{Name: "Halo (Instrumental)", Artists: []string{"Beyoncé"}, Album: "Karaoke", Duration: 261 * time.Second}},
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Beyoncé", "beyonce"},
		{"MOTÖRHEAD", "motorhead"},
		{"Ñandú", "nandu"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Fold(tt.input))
		})
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		fields   []Field
		expected []string
	}{
		{name: "empty query keeps all", query: "  ", expected: []string{"u1", "u2", "u3", "u4"}},
		{name: "diacritics folded", query: "beyonce", expected: []string{"u1", "u2", "u4"}},
		{name: "case insensitive title", query: "HALO", expected: []string{"u1", "u4"}},
		{name: "album match", query: "opera", expected: []string{"u3"}},
		{name: "restricted to title", query: "love", fields: []Field{FieldTitle}, expected: []string{"u2"}},
		{name: "restricted to artist", query: "jay", fields: []Field{FieldArtist}, expected: []string{"u2"}},
		{name: "no match", query: "metallica", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(rows(), tt.query, tt.fields...)
			assert.Equal(t, tt.expected, IDs(got))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		desc     bool
		expected []string
	}{
		{name: "title ascending", field: FieldTitle, expected: []string{"u3", "u2", "u1", "u4"}},
		{name: "title descending", field: FieldTitle, desc: true, expected: []string{"u4", "u1", "u2", "u3"}},
		{name: "duration is stable", field: FieldDuration, expected: []string{"u2", "u1", "u4", "u3"}},
		{name: "album", field: FieldAlbum, expected: []string{"u3", "u2", "u1", "u4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := rows()
			got := Sort(in, tt.field, tt.desc)
			assert.Equal(t, tt.expected, IDs(got))
			assert.Equal(t, "u1", in[0].UniqueID, "input is not reordered")
		})
	}
}
