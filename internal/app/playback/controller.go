package playback

import (
	"context"
	"errors"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// ErrAutoplayBlocked is returned by a Player when the platform's
// autoplay policy refuses to start playback without a user gesture.
var ErrAutoplayBlocked = errors.New("autoplay blocked by platform policy")

// Player is the single media resource the controller owns. Start may
// be slow (it is always invoked off the controller lock) and may return
// ErrAutoplayBlocked. Stop must be idempotent.
type Player interface {
	Start(url string) error
	Stop()
}

// ResolveURL turns an opaque audio ref into a playable URL.
type ResolveURL func(ref string) string

// Controller owns the single playback session: at most one current
// track plus the autoplay-blocked flag. Each assignment of a new
// current track bumps an epoch; a start attempt whose epoch is stale by
// the time it resolves is discarded, so a new assignment implicitly
// supersedes any in-flight attempt.
type Controller struct {
	mu sync.Mutex

	player  Player
	resolve ResolveURL

	current         *track.Track
	state           State
	autoplayBlocked bool
	epoch           uint64

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a playback controller around the given player.
func NewController(player Player, resolve ResolveURL) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		player:  player,
		resolve: resolve,
		state:   StateIdle,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Play makes t the current track and attempts to start it. Any
// previous track (and any in-flight start attempt) is superseded.
func (c *Controller) Play(t track.Track) {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	if c.current != nil {
		c.player.Stop()
	}
	cur := t
	c.current = &cur
	c.state = StatePlaying
	c.autoplayBlocked = false
	url := c.resolve(t.AudioRef)
	c.sendEventLocked(Event{Type: EventTrackStarted, Track: c.current, State: c.state})
	c.mu.Unlock()

	go c.attemptStart(epoch, t, url)
}

// Stop ends the session because the candidate set invalidated the
// current item. The position resets and nothing is current afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	if c.current == nil {
		return
	}
	c.player.Stop()
	stopped := c.current
	c.current = nil
	c.state = StateIdle
	c.autoplayBlocked = false
	c.sendEventLocked(Event{Type: EventTrackStopped, Track: stopped, State: c.state})
}

// Ended records the natural completion of the current track and returns
// it. The caller decides what plays next. Returns nil when nothing was
// current (a late completion signal from a superseded track).
func (c *Controller) Ended() *track.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	c.epoch++
	ended := c.current
	c.current = nil
	c.state = StateIdle
	c.autoplayBlocked = false
	c.sendEventLocked(Event{Type: EventTrackEnded, Track: ended, State: c.state})
	return ended
}

// Resume retries the start attempt after an explicit user gesture.
func (c *Controller) Resume() {
	c.mu.Lock()
	if c.current == nil || !c.autoplayBlocked {
		c.mu.Unlock()
		return
	}
	t := *c.current
	epoch := c.epoch
	url := c.resolve(t.AudioRef)
	c.sendEventLocked(Event{Type: EventResumed, Track: c.current, State: c.state})
	c.mu.Unlock()

	go c.attemptStart(epoch, t, url)
}

// MarkBlocked flags the session as blocked by autoplay policy. Used by
// remote players that learn about the refusal after Start returned.
func (c *Controller) MarkBlocked() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.autoplayBlocked = true
	c.sendEventLocked(Event{Type: EventAutoplayBlocked, Track: c.current, State: c.state})
}

// MarkStarted clears the blocked flag once playback is confirmed.
func (c *Controller) MarkStarted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoplayBlocked = false
}

// Current returns the current track (nil when idle), the session state
// and the autoplay-blocked flag.
func (c *Controller) Current() (*track.Track, State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, c.state, c.autoplayBlocked
	}
	cur := *c.current
	return &cur, c.state, c.autoplayBlocked
}

// CurrentID returns the id of the current track, or "".
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ""
	}
	return c.current.ID
}

// Close releases the controller and the underlying player.
func (c *Controller) Close() {
	c.Stop()
	c.cancel()
	close(c.eventCh)
}

// attemptStart runs the asynchronous media start and applies the result
// only if the session still belongs to the same epoch.
func (c *Controller) attemptStart(epoch uint64, t track.Track, url string) {
	err := c.player.Start(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch {
		zlog.Debug().Msgf("playback: discarding superseded start attempt: track=%s", t.Title)
		return
	}
	switch {
	case err == nil:
		c.autoplayBlocked = false
	case errors.Is(err, ErrAutoplayBlocked):
		zlog.Debug().Msgf("playback: autoplay blocked, waiting for user gesture: track=%s", t.Title)
		c.autoplayBlocked = true
		c.sendEventLocked(Event{Type: EventAutoplayBlocked, Track: c.current, State: c.state})
	default:
		// Other start failures behave like a blocked session: the track
		// stays current, silent, awaiting a manual gesture.
		zlog.Warn().Msgf("playback: start failed: track=%s error=%v", t.Title, err)
		c.autoplayBlocked = true
		c.sendEventLocked(Event{Type: EventAutoplayBlocked, Track: c.current, State: c.state})
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}
