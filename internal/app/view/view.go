// Package view builds the displayed (filtered and sorted) order of queue rows.
// The selection model works on the occurrence ids of a view, never on queue positions.
package view

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/osa030/queuebox/internal/domain/track"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is a searchable/sortable column.
type Field string

const (
	FieldTitle    Field = "title"
	FieldArtist   Field = "artist"
	FieldAlbum    Field = "album"
	FieldDuration Field = "duration"
)

// DefaultSearchFields are used when Filter is called without fields.
var DefaultSearchFields = []Field{FieldTitle, FieldArtist, FieldAlbum}

// Fold lowercases s and strips diacritics so "Beyoncé" matches "beyonce".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// Filter keeps the rows where any of fields contains query, compared folded.
// An empty query keeps every row.
func Filter(rows []track.Reference, query string, fields ...Field) []track.Reference {
	q := Fold(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(rows)
	}
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}
	return lo.Filter(rows, func(r track.Reference, _ int) bool {
		return lo.SomeBy(fields, func(f Field) bool {
			return strings.Contains(Fold(text(r, f)), q)
		})
	})
}

// Sort returns rows stably sorted by field.
func Sort(rows []track.Reference, field Field, desc bool) []track.Reference {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b track.Reference) int {
		var c int
		if field == FieldDuration {
			c = cmp.Compare(a.Duration, b.Duration)
		} else {
			c = strings.Compare(Fold(text(a, field)), Fold(text(b, field)))
		}
		if desc {
			return -c
		}
		return c
	})
	return out
}

// IDs returns the occurrence ids of rows in displayed order.
func IDs(rows []track.Reference) []string {
	return lo.Map(rows, func(r track.Reference, _ int) string {
		return r.UniqueID
	})
}

func text(t track.Reference, f Field) string {
	switch f {
	case FieldTitle:
		return t.Name
	case FieldArtist:
		return strings.Join(t.Artists, ", ")
	case FieldAlbum:
		return t.Album
	default:
		return ""
	}
}
