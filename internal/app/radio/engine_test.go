package radio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearwhere/hearwhere/internal/app/source"
	"github.com/hearwhere/hearwhere/internal/app/view"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// memCatalog is an in-memory source.Catalog.
type memCatalog struct {
	mu          sync.Mutex
	tracks      []track.Track
	events      []track.EventShow
	sampleCalls int
	failSample  bool
}

func (m *memCatalog) SampleOnePerPerformer(_ context.Context, f view.Filters) ([]track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleCalls++
	if m.failSample {
		return nil, errors.New("catalog unavailable")
	}
	seen := make(map[string]bool)
	var out []track.Track
	for _, t := range m.tracks {
		if !t.RadioEligible || seen[t.PerformerSlug] || !f.Match(t) {
			continue
		}
		seen[t.PerformerSlug] = true
		out = append(out, t)
	}
	return out, nil
}

func (m *memCatalog) FindPerformer(context.Context, string) (*track.Performer, error) {
	return nil, nil
}

func (m *memCatalog) ListPerformers(context.Context) ([]track.Performer, error) {
	return nil, nil
}

func (m *memCatalog) TracksForPerformer(context.Context, string) ([]track.Track, error) {
	return nil, nil
}

func (m *memCatalog) EventsByName(_ context.Context, name string) ([]track.EventShow, error) {
	return nil, nil
}

func (m *memCatalog) EventsByDate(_ context.Context, date string) ([]track.EventShow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []track.EventShow
	for _, ev := range m.events {
		if ev.ShowDate == date {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memCatalog) TracksByIDs(_ context.Context, ids []string) ([]track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []track.Track
	for _, t := range m.tracks {
		if want[t.ID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memCatalog) samples() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleCalls
}

func (m *memCatalog) setFailSample(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSample = fail
}

// nopPlayer accepts every start.
type nopPlayer struct{}

func (nopPlayer) Start(string) error { return nil }
func (nopPlayer) Stop()              {}

func threeTracks() []track.Track {
	return []track.Track{
		{ID: "a", Title: "Alpha", PerformerSlug: "pa", City: "Ottawa", Genre: "House", AudioRef: "audio/a", RadioEligible: true},
		{ID: "b", Title: "Beta", PerformerSlug: "pb", City: "Ottawa", Genre: "House", AudioRef: "audio/b", RadioEligible: true},
		{ID: "c", Title: "Gamma", PerformerSlug: "pc", City: "Ottawa", Genre: "House", AudioRef: "audio/c", RadioEligible: true},
	}
}

func newTestEngine(cat source.Catalog) *Engine {
	return New(source.New(cat), nopPlayer{}, func(ref string) string { return ref }, nil)
}

func waitQueueLen(t *testing.T, e *Engine, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return e.Snapshot().QueueLength == n
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_RefreshFillsQueue(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.Refresh()
	waitQueueLen(t, e, 3)

	snap := e.Snapshot()
	assert.Nil(t, snap.NowPlaying)
	assert.Equal(t, "idle", snap.State)
	assert.Equal(t, "ambient", snap.Mode)
}

func TestEngine_RoundServesEachTrackOnce(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetOffline(true)
	e.Refresh()
	waitQueueLen(t, e, 3)

	served := make(map[string]bool)
	for i := 0; i < 3; i++ {
		e.PlayNext()
		snap := e.Snapshot()
		require.NotNil(t, snap.NowPlaying)
		assert.False(t, served[snap.NowPlaying.ID], "track %s served twice in one round", snap.NowPlaying.ID)
		served[snap.NowPlaying.ID] = true
	}
	assert.Len(t, served, 3)

	// Fourth advance in offline mode reshuffles the same list; no new
	// fetch happens and something is always playing.
	before := cat.samples()
	e.PlayNext()
	snap := e.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, before, cat.samples())
}

func TestEngine_OnlineExhaustionTriggersFreshRound(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.Refresh()
	waitQueueLen(t, e, 3)

	for i := 0; i < 3; i++ {
		e.PlayNext()
	}
	before := cat.samples()

	// Exhausting the round online re-fetches; once results arrive the
	// new shuffle's head becomes the playing item.
	e.PlayNext()
	require.Eventually(t, func() bool {
		return cat.samples() > before && e.Snapshot().NowPlaying != nil
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_PlaySpecificFromQueue(t *testing.T) {
	tracks := append(threeTracks(), track.Track{
		ID: "d", Title: "Delta", PerformerSlug: "pd", City: "Ottawa", Genre: "House", AudioRef: "audio/d", RadioEligible: true,
	})
	cat := &memCatalog{tracks: tracks}
	e := newTestEngine(cat)
	defer e.Close()

	e.Refresh()
	waitQueueLen(t, e, 4)

	queued := e.Queue()
	target := queued[1]

	e.PlaySpecific(target)

	snap := e.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, target.ID, snap.NowPlaying.ID)

	// The rest keeps its relative order.
	rest := e.Queue()
	require.Len(t, rest, 3)
	assert.Equal(t, queued[0].ID, rest[0].ID)
	assert.Equal(t, queued[2].ID, rest[1].ID)
	assert.Equal(t, queued[3].ID, rest[2].ID)
}

func TestEngine_PlaySpecificStaleReference(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.Refresh()
	waitQueueLen(t, e, 3)

	// A track that dropped out of the candidate set still plays; the
	// queue is rebuilt from the current candidates without it.
	stale := track.Track{ID: "zz", Title: "Gone", AudioRef: "audio/zz"}
	e.PlaySpecific(stale)

	snap := e.Snapshot()
	require.NotNil(t, snap.NowPlaying)
	assert.Equal(t, "zz", snap.NowPlaying.ID)
	assert.Equal(t, 3, snap.QueueLength)
}

func TestEngine_PlayingTrackInvalidatedByFilterChange(t *testing.T) {
	cat := &memCatalog{tracks: []track.Track{
		{ID: "h1", Title: "Housey", PerformerSlug: "pa", Genre: "House", AudioRef: "audio/h1", RadioEligible: true},
		{ID: "k1", Title: "Kicks", PerformerSlug: "pb", Genre: "Techno", AudioRef: "audio/k1", RadioEligible: true},
	}}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetGenre("House")
	require.Eventually(t, func() bool {
		return e.Snapshot().QueueLength == 1
	}, time.Second, 5*time.Millisecond)

	e.PlayNext()
	require.NotNil(t, e.Snapshot().NowPlaying)

	// The playing track's genre drops out of the candidate set.
	e.SetGenre("Techno")
	require.Eventually(t, func() bool {
		snap := e.Snapshot()
		return snap.NowPlaying == nil && snap.QueueLength == 1
	}, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.False(t, snap.AutoplayBlocked)
	assert.Equal(t, "idle", snap.State)
}

func TestEngine_EventDateGating(t *testing.T) {
	cat := &memCatalog{
		tracks: threeTracks(),
		events: []track.EventShow{
			{EventID: "e1", ShowDate: "2026-08-01", EventName: "WAREHOUSE SESSIONS", City: "Ottawa", Genre: "House", TrackID: "a"},
		},
	}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetEventDate("2026-08-01")
	require.Eventually(t, func() bool {
		return e.Snapshot().Status == source.CodeEventFiltersRequired
	}, time.Second, 5*time.Millisecond)

	snap := e.Snapshot()
	assert.Equal(t, 0, snap.QueueLength)
	assert.Nil(t, snap.NowPlaying)
	assert.Equal(t, []string{"House"}, snap.EventGenres)
	assert.Equal(t, []string{"Ottawa"}, snap.EventCities)
}

func TestEngine_FetchFailureKeepsPriorState(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.Refresh()
	waitQueueLen(t, e, 3)

	cat.setFailSample(true)
	e.Refresh()
	require.Eventually(t, func() bool {
		return e.Snapshot().Status == CodeFetchFailed
	}, time.Second, 5*time.Millisecond)

	// The candidate list is not overwritten with empty data.
	assert.Equal(t, 3, e.Snapshot().QueueLength)
}

func TestEngine_ShareStateRoundTrip(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetCountry("canada")
	e.SetProvince("ontario")
	e.SetCity("ottawa")
	e.SetGenre("house")
	e.SetOffline(true)

	state := e.ShareState()
	assert.Equal(t, "Canada", state.Country)
	assert.Equal(t, "Ottawa", state.City)
	assert.Equal(t, "House", state.Genre)
	assert.True(t, state.Offline)

	e2 := newTestEngine(&memCatalog{tracks: threeTracks()})
	defer e2.Close()
	e2.ApplyShareState(state)

	assert.Equal(t, state, e2.ShareState())
}

func TestEngine_LocationResetRefetches(t *testing.T) {
	cat := &memCatalog{tracks: threeTracks()}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetCountry("canada")
	e.SetCity("gotham") // matches nothing
	require.Eventually(t, func() bool {
		return e.Snapshot().Status == CodeNothingMatched
	}, time.Second, 5*time.Millisecond)

	e.ClearLocation()
	waitQueueLen(t, e, 3)
	assert.Empty(t, e.Snapshot().Status)
}

// gatedCatalog holds each sample fetch until the test releases it, to
// drive two overlapping fetch generations deterministically.
type gatedCatalog struct {
	memCatalog
	calls chan *sampleCall
}

type sampleCall struct {
	filters view.Filters
	release chan struct{}
}

func (g *gatedCatalog) SampleOnePerPerformer(ctx context.Context, f view.Filters) ([]track.Track, error) {
	call := &sampleCall{filters: f, release: make(chan struct{})}
	g.calls <- call
	<-call.release
	return g.memCatalog.SampleOnePerPerformer(ctx, f)
}

func TestEngine_StaleFetchResponseDiscarded(t *testing.T) {
	cat := &gatedCatalog{
		memCatalog: memCatalog{tracks: []track.Track{
			{ID: "h1", Title: "Housey", PerformerSlug: "pa", Genre: "House", AudioRef: "audio/h1", RadioEligible: true},
			{ID: "k1", Title: "Kicks", PerformerSlug: "pb", Genre: "Techno", AudioRef: "audio/k1", RadioEligible: true},
		}},
		calls: make(chan *sampleCall, 2),
	}
	e := newTestEngine(cat)
	defer e.Close()

	e.SetGenre("House")
	first := <-cat.calls

	e.SetGenre("Techno")
	second := <-cat.calls

	// The newer fetch resolves first and wins.
	close(second.release)
	require.Eventually(t, func() bool {
		q := e.Queue()
		return len(q) == 1 && q[0].ID == "k1"
	}, time.Second, 5*time.Millisecond)

	// The older response arrives late and must be discarded.
	close(first.release)
	time.Sleep(50 * time.Millisecond)
	q := e.Queue()
	require.Len(t, q, 1)
	assert.Equal(t, "k1", q[0].ID)
}
