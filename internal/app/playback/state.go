// Package playback provides the single-session playback controller.
package playback

// State represents the playback session state.
type State int

const (
	StateIdle    State = iota // Nothing playing
	StatePlaying              // A track is current (possibly silently paused by autoplay policy)
	StateStopped              // Playback was invalidated externally
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
