// Package queue provides the shuffled no-repeat playback queue.
package queue

import (
	"math/rand"

	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// Manager holds the ordered queue of upcoming tracks. Within one round
// (one full shuffle) no track is served twice, and the queue never
// contains the currently playing track.
//
// Manager is not safe for concurrent use; callers serialize access
// through the owning engine.
type Manager struct {
	tracks  []track.Track
	shuffle func(n int, swap func(i, j int))
}

// NewManager creates an empty queue manager.
func NewManager() *Manager {
	return &Manager{shuffle: rand.Shuffle}
}

// Rebuild discards the queue and refills it as a uniformly random
// permutation of candidates, dropping duplicate ids and the track
// identified by playingID.
func (m *Manager) Rebuild(candidates []track.Track, playingID string) {
	seen := make(map[string]bool, len(candidates))
	next := make([]track.Track, 0, len(candidates))
	for _, t := range candidates {
		if t.ID == playingID || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		next = append(next, t)
	}
	m.shuffle(len(next), func(i, j int) {
		next[i], next[j] = next[j], next[i]
	})
	m.tracks = next
}

// Advance pops the head of the queue. The second return value is false
// when the queue is empty; deciding between an offline reshuffle and an
// online re-fetch is the caller's job.
func (m *Manager) Advance() (track.Track, bool) {
	if len(m.tracks) == 0 {
		return track.Track{}, false
	}
	head := m.tracks[0]
	m.tracks = m.tracks[1:]
	return head, true
}

// Remove takes the track with the given id out of the queue, preserving
// the order of the remainder. Returns false if the id is not queued.
func (m *Manager) Remove(id string) (track.Track, bool) {
	for i, t := range m.tracks {
		if t.ID == id {
			m.tracks = append(m.tracks[:i:i], m.tracks[i+1:]...)
			return t, true
		}
	}
	return track.Track{}, false
}

// Contains reports whether the id is currently queued.
func (m *Manager) Contains(id string) bool {
	for _, t := range m.tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of queued tracks.
func (m *Manager) Len() int {
	return len(m.tracks)
}

// IsEmpty reports whether the queue has no tracks.
func (m *Manager) IsEmpty() bool {
	return len(m.tracks) == 0
}

// Tracks returns a copy of the queued tracks in order.
func (m *Manager) Tracks() []track.Track {
	out := make([]track.Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}
