package source

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearwhere/hearwhere/internal/app/view"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// fakeCatalog is an in-memory source.Catalog for tests.
type fakeCatalog struct {
	tracks     []track.Track
	performers []track.Performer
	events     []track.EventShow

	sampleCalls int
	failSample  bool
	failEvents  bool
}

func (f *fakeCatalog) SampleOnePerPerformer(_ context.Context, flt view.Filters) ([]track.Track, error) {
	f.sampleCalls++
	if f.failSample {
		return nil, errors.New("catalog unavailable")
	}
	seen := make(map[string]bool)
	var out []track.Track
	for _, t := range f.tracks {
		if !t.RadioEligible || seen[t.PerformerSlug] || !flt.Match(t) {
			continue
		}
		seen[t.PerformerSlug] = true
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeCatalog) FindPerformer(_ context.Context, query string) (*track.Performer, error) {
	slug := track.Slugify(query)
	for i, p := range f.performers {
		if p.Slug == slug || strings.EqualFold(p.Name, strings.TrimSpace(query)) {
			return &f.performers[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) ListPerformers(_ context.Context) ([]track.Performer, error) {
	return f.performers, nil
}

func (f *fakeCatalog) TracksForPerformer(_ context.Context, slug string) ([]track.Track, error) {
	var out []track.Track
	for _, t := range f.tracks {
		if t.PerformerSlug == slug {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) EventsByName(_ context.Context, name string) ([]track.EventShow, error) {
	if f.failEvents {
		return nil, errors.New("catalog unavailable")
	}
	var out []track.EventShow
	for _, ev := range f.events {
		if strings.Contains(ev.EventName, name) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCatalog) EventsByDate(_ context.Context, date string) ([]track.EventShow, error) {
	if f.failEvents {
		return nil, errors.New("catalog unavailable")
	}
	var out []track.EventShow
	for _, ev := range f.events {
		if ev.ShowDate == date {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCatalog) TracksByIDs(_ context.Context, ids []string) ([]track.Track, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []track.Track
	for _, t := range f.tracks {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		tracks: []track.Track{
			{ID: "t1", Title: "Night Bus", PerformerSlug: "marlowe-avenue", PerformerName: "Marlowe Avenue", City: "Ottawa", Genre: "House", RadioEligible: true},
			{ID: "t2", Title: "Day Tram", PerformerSlug: "marlowe-avenue", PerformerName: "Marlowe Avenue", City: "Ottawa", Genre: "House", RadioEligible: false},
			{ID: "t3", Title: "Static", PerformerSlug: "cold-copper", PerformerName: "Cold Copper", City: "Toronto", Genre: "Techno", RadioEligible: true},
			{ID: "t4", Title: "Harbour", PerformerSlug: "cold-copper", PerformerName: "Cold Copper", City: "Toronto", Genre: "Techno", RadioEligible: true},
		},
		performers: []track.Performer{
			{Name: "Marlowe Avenue", Slug: "marlowe-avenue"},
			{Name: "Cold Copper", Slug: "cold-copper"},
		},
		events: []track.EventShow{
			{EventID: "e1", ShowDate: "2026-08-01", EventName: "WAREHOUSE SESSIONS", City: "Ottawa", Genre: "House", TrackID: "t1", FlyerRef: "flyer1.jpg"},
			{EventID: "e2", ShowDate: "2026-08-01", EventName: "ROOFTOP DAWN", City: "Toronto", Genre: "Techno", TrackID: "t3"},
			{EventID: "e3", ShowDate: "2026-08-01", EventName: "OPEN DECKS", City: "Toronto", Genre: "House", TrackID: ""},
		},
	}
}

func TestFetch_AmbientDefault(t *testing.T) {
	src := New(testCatalog())

	res, err := src.Fetch(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, ModeAmbient, res.Mode)

	// One eligible track per performer.
	perPerformer := make(map[string]int)
	for _, tr := range res.Tracks {
		perPerformer[tr.PerformerSlug]++
	}
	assert.Equal(t, map[string]int{"marlowe-avenue": 1, "cold-copper": 1}, perPerformer)
}

func TestFetch_PerformerModeExact(t *testing.T) {
	src := New(testCatalog())

	// The genre filter is deliberately ignored once a performer matches:
	// the whole catalog of that performer comes back, eligible or not.
	res, err := src.Fetch(context.Background(), Request{
		Filters: view.Filters{Query: "Marlowe Avenue", Genre: "Techno"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModePerformer, res.Mode)
	assert.ElementsMatch(t, []string{"t1", "t2"}, track.IDs(res.Tracks))
}

func TestFetch_PerformerModeLoose(t *testing.T) {
	src := New(testCatalog())

	res, err := src.Fetch(context.Background(), Request{
		Filters: view.Filters{Query: "marlow avenue"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModePerformer, res.Mode)
	assert.ElementsMatch(t, []string{"t1", "t2"}, track.IDs(res.Tracks))
}

func TestFetch_QueryNotAPerformerFallsBackToAmbient(t *testing.T) {
	cat := testCatalog()
	src := New(cat)

	res, err := src.Fetch(context.Background(), Request{
		Filters: view.Filters{Query: "night"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModeAmbient, res.Mode)
	assert.Equal(t, 1, cat.sampleCalls)
}

func TestFetch_EventByName(t *testing.T) {
	src := New(testCatalog())

	res, err := src.Fetch(context.Background(), Request{EventName: "warehouse"})
	require.NoError(t, err)
	assert.Equal(t, ModeEvent, res.Mode)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "t1", res.Tracks[0].ID)
	// Name mode needs no city/genre preselection.
	assert.Empty(t, res.Code)
}

func TestFetch_EventFlyerSubstitutesArt(t *testing.T) {
	src := New(testCatalog())

	res, err := src.Fetch(context.Background(), Request{EventName: "warehouse"})
	require.NoError(t, err)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "flyer1.jpg", res.Tracks[0].ArtRef)
}

func TestFetch_EventByDateRequiresCityAndGenre(t *testing.T) {
	tests := []struct {
		name    string
		filters view.Filters
		gated   bool
	}{
		{name: "neither selected", filters: view.Filters{}, gated: true},
		{name: "city only", filters: view.Filters{City: "Toronto"}, gated: true},
		{name: "genre only", filters: view.Filters{Genre: "Techno"}, gated: true},
		{name: "both selected", filters: view.Filters{City: "Toronto", Genre: "Techno"}, gated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := New(testCatalog())
			res, err := src.Fetch(context.Background(), Request{EventDate: "2026-08-01", Filters: tt.filters})
			require.NoError(t, err)
			assert.Equal(t, ModeEvent, res.Mode)
			if tt.gated {
				// Events exist on the date, but without city+genre the
				// result stays empty and the code explains why.
				assert.Equal(t, CodeEventFiltersRequired, res.Code)
				assert.Empty(t, res.Tracks)
			} else {
				assert.Empty(t, res.Code)
				assert.NotEmpty(t, res.Tracks)
			}
			// Option lists come from the unfiltered event set either way.
			assert.Equal(t, []string{"House", "Techno"}, res.EventGenres)
			assert.Equal(t, []string{"Ottawa", "Toronto"}, res.EventCities)
		})
	}
}

func TestFetch_EventEmptyShowcaseShortCircuits(t *testing.T) {
	cat := testCatalog()
	cat.events = []track.EventShow{
		{EventID: "e3", ShowDate: "2026-09-09", EventName: "OPEN DECKS", City: "Toronto", Genre: "House", TrackID: ""},
	}
	src := New(cat)

	res, err := src.Fetch(context.Background(), Request{EventName: "open decks"})
	require.NoError(t, err)
	assert.Empty(t, res.Tracks)
	assert.Empty(t, res.Code)
}

func TestFetch_ErrorsAreWrapped(t *testing.T) {
	cat := testCatalog()
	cat.failEvents = true
	src := New(cat)

	_, err := src.Fetch(context.Background(), Request{EventName: "warehouse"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch events")

	cat2 := testCatalog()
	cat2.failSample = true
	_, err = New(cat2).Fetch(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to sample tracks")
}

func TestFetch_EventPrecedesPerformer(t *testing.T) {
	src := New(testCatalog())

	// A query that would match a performer is ignored while an event
	// name is set.
	res, err := src.Fetch(context.Background(), Request{
		EventName: "warehouse",
		Filters:   view.Filters{Query: "Marlowe Avenue"},
	})
	require.NoError(t, err)
	assert.Equal(t, ModeEvent, res.Mode)
}
