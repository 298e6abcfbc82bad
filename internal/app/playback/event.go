package playback

import "github.com/hearwhere/hearwhere/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted    EventType = iota // A track became current
	EventTrackEnded                       // The current track completed naturally
	EventTrackStopped                     // Playback was stopped externally
	EventAutoplayBlocked                  // The platform refused the start attempt
	EventResumed                          // A user gesture restarted a blocked track
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackStopped:
		return "track_stopped"
	case EventAutoplayBlocked:
		return "autoplay_blocked"
	case EventResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Track *track.Track // Current or just-ended track (nil for some events)
	State State
}
