// Package rest exposes the radio engine over HTTP and a WebSocket
// event stream.
package rest

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/domain/track"
)

// Message is one frame on the event stream. Sequence numbers are
// monotonically increasing so clients can detect gaps after reconnect.
type Message struct {
	Seq   uint64       `json:"seq"`
	Type  string       `json:"type"`
	Track *track.Track `json:"track,omitempty"`
	State string       `json:"state,omitempty"`
	URL   string       `json:"url,omitempty"`
}

// subscription represents one connected client.
type subscription struct {
	id     string
	conn   *websocket.Conn
	sendMu sync.Mutex
}

// Hub manages WebSocket subscriptions and broadcasting.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription

	seqMu sync.Mutex
	seq   uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subscriptions: make(map[string]*subscription)}
}

// Subscribe registers a connection and returns its subscription id.
func (h *Hub) Subscribe(conn *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	h.subscriptions[id] = &subscription{id: id, conn: conn}
	zlog.Debug().Msgf("ws: subscribed: id=%s total=%d", id, len(h.subscriptions))
	return id
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscriptions, id)
}

// Broadcast stamps the message with the next sequence number and sends
// it to every subscriber. Write failures drop the subscriber.
func (h *Hub) Broadcast(msg Message) {
	h.seqMu.Lock()
	h.seq++
	msg.Seq = h.seq
	h.seqMu.Unlock()

	h.mu.RLock()
	subs := make([]*subscription, 0, len(h.subscriptions))
	for _, s := range h.subscriptions {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.sendMu.Lock()
		err := s.conn.WriteJSON(msg)
		s.sendMu.Unlock()
		if err != nil {
			zlog.Debug().Msgf("ws: dropping subscriber: id=%s error=%v", s.id, err)
			h.Unsubscribe(s.id)
			_ = s.conn.Close()
		}
	}
}

// Count returns the number of active subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}
