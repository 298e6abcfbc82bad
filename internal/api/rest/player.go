package rest

// BridgePlayer is the playback.Player that drives the browser's media
// element over the event stream. Start pushes a play command and
// returns immediately; the autoplay verdict arrives later through the
// /api/player callbacks.
type BridgePlayer struct {
	hub *Hub
}

// NewBridgePlayer creates a bridge player over the hub.
func NewBridgePlayer(hub *Hub) *BridgePlayer {
	return &BridgePlayer{hub: hub}
}

// Start pushes a play command to connected shells.
func (p *BridgePlayer) Start(url string) error {
	p.hub.Broadcast(Message{Type: "play", URL: url})
	return nil
}

// Stop pushes a stop command to connected shells.
func (p *BridgePlayer) Stop() {
	p.hub.Broadcast(Message{Type: "stop"})
}
