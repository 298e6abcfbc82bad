// Package track provides the Track and EventShow domain entities.
package track

import "strings"

// Track represents one playable catalog item.
// The location fields are a snapshot captured at upload time and are
// read-only to the playback engine.
type Track struct {
	ID            string `json:"id" db:"id"`
	Title         string `json:"title" db:"title"`
	PerformerSlug string `json:"performer_slug" db:"performer_slug"`
	PerformerName string `json:"performer_name" db:"performer_name"`
	Country       string `json:"country" db:"country"`
	Province      string `json:"province" db:"province"`
	City          string `json:"city" db:"city"`
	Neighbourhood string `json:"neighbourhood" db:"neighbourhood"`
	Genre         string `json:"genre" db:"genre"`
	AudioRef      string `json:"audio_ref" db:"audio_ref"`
	ArtRef        string `json:"art_ref,omitempty" db:"art_ref"`
	RadioEligible bool   `json:"radio_eligible" db:"radio_eligible"`
}

// EventShow represents a live event. An event has at most one showcase
// track; TrackID is empty when none has been attached yet.
type EventShow struct {
	EventID   string `json:"event_id" db:"event_id"`
	ShowDate  string `json:"show_date" db:"show_date"` // YYYY-MM-DD
	EventName string `json:"event_name" db:"event_name"`
	City      string `json:"city" db:"city"`
	Genre     string `json:"genre" db:"genre"`
	FlyerRef  string `json:"flyer_ref,omitempty" db:"flyer_ref"`
	TrackID   string `json:"track_id,omitempty" db:"track_id"`
}

// Performer identifies a performer by display name and slug.
type Performer struct {
	Name string `json:"name" db:"performer_name"`
	Slug string `json:"slug" db:"performer_slug"`
}

// Slugify derives the canonical performer slug from a display name:
// lower-cased, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// NormalizeEventName upper-cases and trims an event name so stored and
// queried names compare exactly.
func NormalizeEventName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IDs returns the ids of the given tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// ShowcaseTrackIDs collects the non-empty showcase track ids from events,
// de-duplicated, preserving first-seen order.
func ShowcaseTrackIDs(events []EventShow) []string {
	seen := make(map[string]bool, len(events))
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.TrackID == "" || seen[ev.TrackID] {
			continue
		}
		seen[ev.TrackID] = true
		ids = append(ids, ev.TrackID)
	}
	return ids
}
