// Package radio provides the engine that ties the filter state, track
// source, queue and playback controller together.
package radio

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/app/playback"
	"github.com/hearwhere/hearwhere/internal/app/queue"
	"github.com/hearwhere/hearwhere/internal/app/share"
	"github.com/hearwhere/hearwhere/internal/app/source"
	"github.com/hearwhere/hearwhere/internal/app/view"
	"github.com/hearwhere/hearwhere/internal/domain/location"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// Status codes surfaced by the engine. The MessageFunc maps them to
// human-readable strings.
const (
	CodeFetchFailed    = "fetch_failed"
	CodeNothingMatched = "nothing_matched"
)

// MessageFunc maps a status code to a user-facing message.
type MessageFunc func(code string) string

// Snapshot is the engine state exposed to the UI/host shell.
type Snapshot struct {
	NowPlaying      *track.Track       `json:"now_playing,omitempty"`
	State           string             `json:"state"`
	AutoplayBlocked bool               `json:"autoplay_blocked"`
	QueueLength     int                `json:"queue_length"`
	Status          string             `json:"status,omitempty"`
	Mode            string             `json:"mode"`
	Location        location.Selection `json:"location"`
	LocationStep    string             `json:"location_step"`
	Genre           string             `json:"genre,omitempty"`
	Query           string             `json:"query,omitempty"`
	EventName       string             `json:"event_name,omitempty"`
	EventDate       string             `json:"event_date,omitempty"`
	Offline         bool               `json:"offline"`
	EventGenres     []string           `json:"event_genres,omitempty"`
	EventCities     []string           `json:"event_cities,omitempty"`
	ShareQuery      string             `json:"share_query"`
}

// Engine owns the full discovery-playback state: the progressive
// location selection, genre/search/event inputs, the last-fetched
// candidate list, the shuffled queue and the playback session. All
// transitions run under one mutex; fetches resolve on goroutines and
// carry a generation token so a response whose generation is stale by
// arrival is discarded instead of clobbering newer state.
type Engine struct {
	mu sync.Mutex

	src   *source.Source
	queue *queue.Manager
	ctrl  *playback.Controller
	msg   MessageFunc

	loc       location.Selection
	genre     string
	query     string
	eventName string
	eventDate string
	offline   bool

	candidates  []track.Track
	mode        source.Mode
	eventGenres []string
	eventCities []string
	status      string

	generation     uint64
	pendingAdvance bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine. The player is the single media resource the
// engine's controller will own; resolve maps audio refs to URLs.
func New(src *source.Source, player playback.Player, resolve playback.ResolveURL, msg MessageFunc) *Engine {
	if msg == nil {
		msg = func(code string) string { return code }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		src:    src,
		queue:  queue.NewManager(),
		ctrl:   playback.NewController(player, resolve),
		msg:    msg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Events returns the playback event channel.
func (e *Engine) Events() <-chan playback.Event {
	return e.ctrl.Events()
}

// Close releases the engine and its playback session.
func (e *Engine) Close() {
	e.cancel()
	e.ctrl.Close()
}

// Refresh re-fetches the candidate list for the current filter state.
func (e *Engine) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshLocked()
}

// SetCountry selects the country level and re-fetches.
func (e *Engine) SetCountry(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.SelectCountry(v)
	e.refreshLocked()
}

// SetProvince selects the province level and re-fetches.
func (e *Engine) SetProvince(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.SelectProvince(v)
	e.refreshLocked()
}

// SetCity selects the city level and re-fetches.
func (e *Engine) SetCity(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.SelectCity(v)
	e.refreshLocked()
}

// SetNeighbourhood selects the neighbourhood level and re-fetches.
func (e *Engine) SetNeighbourhood(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.SelectNeighbourhood(v)
	e.refreshLocked()
}

// ResetLocationFrom clears the given level and everything deeper, then
// re-fetches. Used when a breadcrumb segment is tapped.
func (e *Engine) ResetLocationFrom(level location.Step) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.ResetFrom(level)
	e.refreshLocked()
}

// ClearLocation empties the location selection and re-fetches.
func (e *Engine) ClearLocation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loc.ClearAll()
	e.refreshLocked()
}

// SetGenre sets the genre filter and re-fetches.
func (e *Engine) SetGenre(v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.genre = location.Normalize(v)
	e.refreshLocked()
}

// SetSearch sets the free-text query and re-fetches. A query matching
// a known performer switches the source into performer mode.
func (e *Engine) SetSearch(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.query = q
	e.refreshLocked()
}

// SetEventName sets the event name and re-fetches in event mode.
func (e *Engine) SetEventName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventName = name
	e.refreshLocked()
}

// SetEventDate sets the event date (YYYY-MM-DD) and re-fetches in
// event mode.
func (e *Engine) SetEventDate(date string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventDate = date
	e.refreshLocked()
}

// SetOffline toggles offline mode. Offline disables server refresh:
// exhausting a round reshuffles the existing candidate list instead of
// fetching a fresh one. The toggle itself does not trigger a fetch.
func (e *Engine) SetOffline(offline bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.offline = offline
}

// PlayNext advances to the next queued track (manual skip).
func (e *Engine) PlayNext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked(true)
}

// PlaySpecific plays the given track immediately. A queued track is
// removed in place, preserving the order of the rest; a stale reference
// (no longer queued) rebuilds a fresh shuffled queue from the current
// candidates excluding it and plays it anyway.
func (e *Engine) PlaySpecific(t track.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if queued, ok := e.queue.Remove(t.ID); ok {
		e.ctrl.Play(queued)
		return
	}
	e.queue.Rebuild(e.candidates, t.ID)
	e.ctrl.Play(t)
}

// ReportEnded signals natural completion of the current track and
// advances the queue.
func (e *Engine) ReportEnded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ended := e.ctrl.Ended(); ended == nil {
		return
	}
	e.advanceLocked(true)
}

// ReportStarted confirms playback actually started on the platform.
func (e *Engine) ReportStarted() {
	e.ctrl.MarkStarted()
}

// ReportAutoplayBlocked records an autoplay policy refusal.
func (e *Engine) ReportAutoplayBlocked() {
	e.ctrl.MarkBlocked()
}

// Resume retries a blocked start after an explicit user gesture.
func (e *Engine) Resume() {
	e.ctrl.Resume()
}

// Queue returns a copy of the upcoming tracks in order.
func (e *Engine) Queue() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Tracks()
}

// Snapshot returns the state exposed to the UI/host shell.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now, state, blocked := e.ctrl.Current()
	return Snapshot{
		NowPlaying:      now,
		State:           state.String(),
		AutoplayBlocked: blocked,
		QueueLength:     e.queue.Len(),
		Status:          e.status,
		Mode:            e.mode.String(),
		Location:        e.loc,
		LocationStep:    e.loc.Step().String(),
		Genre:           e.genre,
		Query:           e.query,
		EventName:       e.eventName,
		EventDate:       e.eventDate,
		Offline:         e.offline,
		EventGenres:     e.eventGenres,
		EventCities:     e.eventCities,
		ShareQuery:      share.Encode(e.shareStateLocked()),
	}
}

// ShareState returns the shareable state for URL serialization.
func (e *Engine) ShareState() share.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shareStateLocked()
}

// ApplyShareState rehydrates the engine from a shared state and
// triggers a single re-fetch.
func (e *Engine) ApplyShareState(s share.State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loc.ClearAll()
	if s.Country != "" {
		e.loc.SelectCountry(s.Country)
	}
	if s.Province != "" {
		e.loc.SelectProvince(s.Province)
	}
	if s.City != "" {
		e.loc.SelectCity(s.City)
	}
	if s.Neighbourhood != "" {
		e.loc.SelectNeighbourhood(s.Neighbourhood)
	}
	e.genre = location.Normalize(s.Genre)
	e.query = s.Query
	e.eventName = s.Event
	e.eventDate = s.Date
	e.offline = s.Offline
	e.refreshLocked()
}

func (e *Engine) shareStateLocked() share.State {
	return share.State{
		Country:       e.loc.Country,
		Province:      e.loc.Province,
		City:          e.loc.City,
		Neighbourhood: e.loc.Neighbourhood,
		Genre:         e.genre,
		Date:          e.eventDate,
		Query:         e.query,
		Event:         e.eventName,
		Offline:       e.offline,
	}
}

func (e *Engine) filtersLocked() view.Filters {
	return view.Filters{
		Country:       e.loc.Country,
		Province:      e.loc.Province,
		City:          e.loc.City,
		Neighbourhood: e.loc.Neighbourhood,
		Genre:         e.genre,
		Query:         e.query,
	}
}

// refreshLocked starts an asynchronous fetch for the current filter
// state. The generation captured here decides whether the response is
// still wanted when it arrives.
func (e *Engine) refreshLocked() {
	e.generation++
	gen := e.generation
	req := source.Request{
		Filters:   e.filtersLocked(),
		EventName: e.eventName,
		EventDate: e.eventDate,
	}
	go func() {
		res, err := e.src.Fetch(e.ctx, req)
		e.apply(gen, req, res, err)
	}()
}

// apply installs a fetch result, unless a newer fetch has been started
// since. A failed fetch surfaces a status and leaves the prior
// candidate list untouched.
func (e *Engine) apply(gen uint64, req source.Request, res source.Result, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.generation {
		zlog.Debug().Msgf("radio: discarding stale fetch response: generation=%d latest=%d", gen, e.generation)
		return
	}
	if err != nil {
		zlog.Warn().Msgf("radio: fetch failed: error=%v", err)
		e.status = e.msg(CodeFetchFailed)
		return
	}

	e.mode = res.Mode
	e.eventGenres = res.EventGenres
	e.eventCities = res.EventCities

	if res.Code != "" {
		e.candidates = nil
		e.status = e.msg(res.Code)
		e.rebuildLocked()
		return
	}

	// Performer mode deliberately skips the client-side refinement: a
	// loosely matched performer search returns everything they have.
	cands := res.Tracks
	if res.Mode != source.ModePerformer {
		cands = req.Filters.Apply(res.Tracks)
	}
	e.candidates = cands
	if len(cands) == 0 {
		e.status = e.msg(CodeNothingMatched)
	} else {
		e.status = ""
	}
	e.rebuildLocked()
}

// rebuildLocked rebuilds the queue from the candidate list. The playing
// item must always be a member of the last-known-valid candidate set;
// when it dropped out, playback stops rather than continue against
// stale data.
func (e *Engine) rebuildLocked() {
	playingID := e.ctrl.CurrentID()
	if playingID != "" && !containsID(e.candidates, playingID) {
		e.ctrl.Stop()
		playingID = ""
	}
	e.queue.Rebuild(e.candidates, playingID)

	pending := e.pendingAdvance
	e.pendingAdvance = false
	if len(e.candidates) == 0 {
		return
	}
	// Only a pending round-boundary advance starts a track here; an
	// invalidation stop leaves nothing playing until the next gesture.
	if pending {
		e.advanceLocked(false)
	}
}

// advanceLocked pops the next track into the session. An exhausted
// queue reshuffles the existing candidates offline, or requests a fresh
// round online; allowRefetch breaks the cycle when the fresh round
// itself arrives with nothing new to dequeue.
func (e *Engine) advanceLocked(allowRefetch bool) {
	if t, ok := e.queue.Advance(); ok {
		e.ctrl.Play(t)
		return
	}
	if len(e.candidates) == 0 {
		e.ctrl.Stop()
		return
	}
	if !e.offline && allowRefetch {
		e.pendingAdvance = true
		e.refreshLocked()
		return
	}
	// Offline round boundary: reshuffle what we have. Repeats across
	// rounds are allowed since no live refresh is possible.
	e.queue.Rebuild(e.candidates, "")
	if t, ok := e.queue.Advance(); ok {
		e.ctrl.Play(t)
	}
}

func containsID(tracks []track.Track, id string) bool {
	for _, t := range tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}
