// Package view applies the client-side refinement predicate over the
// last-fetched candidate list.
//
// The catalog already narrows results server-side, but it matches
// loosely (substring LIKE). The view re-applies the same filter set
// locally so the list shown always agrees with the active filters.
package view

import (
	"strings"

	"github.com/hearwhere/hearwhere/internal/domain/location"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// Filters is the full client-side filter set. Empty dimensions are
// unconstrained.
type Filters struct {
	Country       string
	Province      string
	City          string
	Neighbourhood string
	Genre         string
	Query         string
}

// IsZero reports whether no dimension is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// Match reports whether the track passes every non-empty dimension.
// Text and location dimensions match by case-insensitive substring
// containment; genre matches exactly after normalization. With no
// dimensions set at all, every track passes: an empty filter state
// means "browse everything", never "match nothing".
func (f Filters) Match(t track.Track) bool {
	if f.IsZero() {
		return true
	}
	if !containsFold(t.Country, f.Country) {
		return false
	}
	if !containsFold(t.Province, f.Province) {
		return false
	}
	if !containsFold(t.City, f.City) {
		return false
	}
	if !containsFold(t.Neighbourhood, f.Neighbourhood) {
		return false
	}
	if f.Genre != "" && !strings.EqualFold(location.Normalize(t.Genre), location.Normalize(f.Genre)) {
		return false
	}
	if f.Query != "" && !containsFold(t.Title, f.Query) &&
		!containsFold(t.PerformerName, f.Query) &&
		!containsFold(t.PerformerSlug, f.Query) {
		return false
	}
	return true
}

// Apply returns the tracks passing Match, preserving input order.
func (f Filters) Apply(tracks []track.Track) []track.Track {
	if f.IsZero() {
		out := make([]track.Track, len(tracks))
		copy(out, tracks)
		return out
	}
	out := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// containsFold reports whether s contains needle, case-insensitively.
// An empty needle always matches.
func containsFold(s, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}
