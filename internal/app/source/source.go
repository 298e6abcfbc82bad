// Package source selects the retrieval mode and produces the candidate
// track list from the catalog.
package source

import (
	"context"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/app/view"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// performerMatchThreshold is the Jaro-Winkler similarity a performer
// name must reach for a free-text query to count as a performer search.
const performerMatchThreshold = 0.85

// Catalog is the external data collaborator consumed by the source.
type Catalog interface {
	// SampleOnePerPerformer returns random radio-eligible tracks, at
	// most one per performer, matching every non-empty filter.
	SampleOnePerPerformer(ctx context.Context, f view.Filters) ([]track.Track, error)
	// FindPerformer resolves an exact performer match by name or slug.
	// Returns nil without error when nothing matches.
	FindPerformer(ctx context.Context, query string) (*track.Performer, error)
	// ListPerformers returns all known performer identities.
	ListPerformers(ctx context.Context) ([]track.Performer, error)
	// TracksForPerformer returns every track owned by the slug.
	TracksForPerformer(ctx context.Context, slug string) ([]track.Track, error)
	// EventsByName returns events whose normalized name contains name.
	EventsByName(ctx context.Context, name string) ([]track.EventShow, error)
	// EventsByDate returns events on the given YYYY-MM-DD date.
	EventsByDate(ctx context.Context, date string) ([]track.EventShow, error)
	// TracksByIDs fetches tracks by id, skipping unknown ids.
	TracksByIDs(ctx context.Context, ids []string) ([]track.Track, error)
}

// Mode identifies how the candidate list was retrieved.
type Mode int

const (
	ModeAmbient   Mode = iota // Default: one random track per performer
	ModePerformer             // Free-text query matched a performer; all their tracks
	ModeEvent                 // Fixed track set tied to a named or dated event
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeAmbient:
		return "ambient"
	case ModePerformer:
		return "performer"
	case ModeEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Request is the full filter state a fetch is parameterized by.
type Request struct {
	Filters   view.Filters
	EventName string
	EventDate string // YYYY-MM-DD
}

// Result is the outcome of one fetch. Code is set for non-error
// conditions the UI should explain (see CodeEventFiltersRequired);
// option lists are populated in event mode from the unfiltered event
// set so dropdowns can be offered before the user narrows further.
type Result struct {
	Tracks      []track.Track
	Mode        Mode
	Code        string
	EventGenres []string
	EventCities []string
}

// CodeEventFiltersRequired signals that date-mode event search needs
// both a city and a genre before any tracks are returned.
const CodeEventFiltersRequired = "event_filters_required"

// Source produces candidate track lists from the catalog. Mode
// precedence is event > performer > ambient; mode selection itself
// never fails, it degrades to ambient when no stronger signal exists.
type Source struct {
	catalog Catalog
}

// New creates a source over the given catalog.
func New(catalog Catalog) *Source {
	return &Source{catalog: catalog}
}

// Fetch produces the candidate list for the request.
func (s *Source) Fetch(ctx context.Context, req Request) (Result, error) {
	if req.EventName != "" || req.EventDate != "" {
		return s.fetchEvent(ctx, req)
	}
	if req.Filters.Query != "" {
		performer, err := s.resolvePerformer(ctx, req.Filters.Query)
		if err != nil {
			return Result{}, err
		}
		if performer != nil {
			return s.fetchPerformer(ctx, performer)
		}
	}
	return s.fetchAmbient(ctx, req.Filters)
}

// fetchEvent retrieves the fixed track set tied to a named or dated
// event. Date mode requires both a city and a genre before returning
// tracks: a busy calendar day covers many unrelated shows, and dumping
// them all into one playlist helps nobody. Name mode carries no such
// requirement.
func (s *Source) fetchEvent(ctx context.Context, req Request) (Result, error) {
	var (
		events []track.EventShow
		err    error
	)
	if req.EventName != "" {
		events, err = s.catalog.EventsByName(ctx, track.NormalizeEventName(req.EventName))
	} else {
		events, err = s.catalog.EventsByDate(ctx, req.EventDate)
	}
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to fetch events")
	}

	res := Result{Mode: ModeEvent}
	res.EventGenres, res.EventCities = eventOptions(events)

	if req.EventName == "" && (req.Filters.City == "" || req.Filters.Genre == "") {
		res.Code = CodeEventFiltersRequired
		return res, nil
	}

	ids := track.ShowcaseTrackIDs(events)
	if len(ids) == 0 {
		return res, nil
	}
	tracks, err := s.catalog.TracksByIDs(ctx, ids)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to fetch event tracks")
	}

	// In event mode the flyer substitutes for missing track art.
	flyers := make(map[string]string, len(events))
	for _, ev := range events {
		if ev.TrackID != "" && ev.FlyerRef != "" {
			flyers[ev.TrackID] = ev.FlyerRef
		}
	}
	for i := range tracks {
		if tracks[i].ArtRef == "" {
			tracks[i].ArtRef = flyers[tracks[i].ID]
		}
	}

	res.Tracks = tracks
	return res, nil
}

// fetchPerformer returns everything the performer has, deliberately
// ignoring genre and location: "show me this performer" beats ambient
// sampling.
func (s *Source) fetchPerformer(ctx context.Context, p *track.Performer) (Result, error) {
	tracks, err := s.catalog.TracksForPerformer(ctx, p.Slug)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to fetch performer tracks")
	}
	zlog.Debug().Msgf("source: performer mode: slug=%s tracks=%d", p.Slug, len(tracks))
	return Result{Tracks: tracks, Mode: ModePerformer}, nil
}

func (s *Source) fetchAmbient(ctx context.Context, f view.Filters) (Result, error) {
	tracks, err := s.catalog.SampleOnePerPerformer(ctx, f)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to sample tracks")
	}
	return Result{Tracks: tracks, Mode: ModeAmbient}, nil
}

// resolvePerformer decides whether a free-text query is a performer
// search. Exact name/slug matches are tried first; failing that, the
// best Jaro-Winkler match above the threshold wins.
func (s *Source) resolvePerformer(ctx context.Context, query string) (*track.Performer, error) {
	performer, err := s.catalog.FindPerformer(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up performer")
	}
	if performer != nil {
		return performer, nil
	}

	all, err := s.catalog.ListPerformers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list performers")
	}

	q := strings.ToLower(strings.TrimSpace(query))
	jw := metrics.NewJaroWinkler()
	var best *track.Performer
	var bestScore float64
	for i := range all {
		score := strutil.Similarity(q, strings.ToLower(all[i].Name), jw)
		if score >= performerMatchThreshold && score > bestScore {
			bestScore = score
			best = &all[i]
		}
	}
	if best != nil {
		zlog.Debug().Msgf("source: loose performer match: query=%q slug=%s score=%.2f", query, best.Slug, bestScore)
	}
	return best, nil
}

// eventOptions derives the sorted unique genre and city option lists
// from the unfiltered event set.
func eventOptions(events []track.EventShow) (genres, cities []string) {
	genreSet := make(map[string]bool)
	citySet := make(map[string]bool)
	for _, ev := range events {
		if ev.Genre != "" {
			genreSet[ev.Genre] = true
		}
		if ev.City != "" {
			citySet[ev.City] = true
		}
	}
	for g := range genreSet {
		genres = append(genres, g)
	}
	for c := range citySet {
		cities = append(cities, c)
	}
	sort.Strings(genres)
	sort.Strings(cities)
	return genres, cities
}
