package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/hearwhere/hearwhere/internal/app/radio"
	"github.com/hearwhere/hearwhere/internal/app/share"
	"github.com/hearwhere/hearwhere/internal/domain/location"
	"github.com/hearwhere/hearwhere/internal/domain/track"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The shell may be served from another origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler serves the engine's HTTP surface.
type Handler struct {
	engine *radio.Engine
	hub    *Hub
}

// NewHandler creates the HTTP handler.
func NewHandler(engine *radio.Engine, hub *Hub) *Handler {
	return &Handler{engine: engine, hub: hub}
}

// Routes builds the chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/queue", h.getQueue)

		r.Post("/location/reset", h.resetLocation)
		r.Post("/location/{level}", h.setLocation)
		r.Delete("/location", h.clearLocation)

		r.Post("/genre", h.setValue(h.engine.SetGenre))
		r.Post("/search", h.setValue(h.engine.SetSearch))
		r.Post("/event", h.setValue(h.engine.SetEventName))
		r.Post("/date", h.setValue(h.engine.SetEventDate))
		r.Post("/offline", h.setOffline)

		r.Post("/next", h.playNext)
		r.Post("/play", h.playSpecific)
		r.Post("/resume", h.resume)

		r.Post("/player/started", h.playerStarted)
		r.Post("/player/ended", h.playerEnded)
		r.Post("/player/blocked", h.playerBlocked)

		r.Get("/share", h.getShare)
		r.Post("/share", h.applyShare)
	})
	r.Get("/ws", h.serveWS)

	return r
}

// PumpEvents forwards playback events to the hub until ctx is done.
func (h *Handler) PumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-h.engine.Events():
			if !ok {
				return
			}
			h.hub.Broadcast(Message{
				Type:  ev.Type.String(),
				Track: ev.Track,
				State: ev.State.String(),
			})
		}
	}
}

type valueRequest struct {
	Value string `json:"value"`
}

type levelRequest struct {
	Level string `json:"level"`
}

type offlineRequest struct {
	Enabled bool `json:"enabled"`
}

type shareRequest struct {
	Query string `json:"query"`
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) getQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queue": h.engine.Queue()})
}

func (h *Handler) setLocation(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decode(w, r, &req) {
		return
	}
	switch chi.URLParam(r, "level") {
	case "country":
		h.engine.SetCountry(req.Value)
	case "province":
		h.engine.SetProvince(req.Value)
	case "city":
		h.engine.SetCity(req.Value)
	case "neighbourhood":
		h.engine.SetNeighbourhood(req.Value)
	default:
		writeError(w, http.StatusNotFound, "unknown location level")
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) resetLocation(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if !decode(w, r, &req) {
		return
	}
	h.engine.ResetLocationFrom(location.ParseStep(req.Level))
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) clearLocation(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearLocation()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

// setValue adapts a single-string engine mutator into a POST handler.
func (h *Handler) setValue(set func(string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if !decode(w, r, &req) {
			return
		}
		set(req.Value)
		writeJSON(w, http.StatusOK, h.engine.Snapshot())
	}
}

func (h *Handler) setOffline(w http.ResponseWriter, r *http.Request) {
	var req offlineRequest
	if !decode(w, r, &req) {
		return
	}
	h.engine.SetOffline(req.Enabled)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) playNext(w http.ResponseWriter, r *http.Request) {
	h.engine.PlayNext()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) playSpecific(w http.ResponseWriter, r *http.Request) {
	var t track.Track
	if !decode(w, r, &t) {
		return
	}
	if t.ID == "" {
		writeError(w, http.StatusBadRequest, "track id is required")
		return
	}
	h.engine.PlaySpecific(t)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	h.engine.Resume()
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) playerStarted(w http.ResponseWriter, r *http.Request) {
	h.engine.ReportStarted()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) playerEnded(w http.ResponseWriter, r *http.Request) {
	h.engine.ReportEnded()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) playerBlocked(w http.ResponseWriter, r *http.Request) {
	h.engine.ReportAutoplayBlocked()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getShare(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"query": share.Encode(h.engine.ShareState())})
}

func (h *Handler) applyShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !decode(w, r, &req) {
		return
	}
	state, err := share.Parse(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed share query")
		return
	}
	h.engine.ApplyShareState(state)
	writeJSON(w, http.StatusOK, h.engine.Snapshot())
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Msgf("ws: upgrade failed: error=%v", err)
		return
	}
	id := h.hub.Subscribe(conn)
	defer func() {
		h.hub.Unsubscribe(id)
		_ = conn.Close()
	}()

	// Read loop only detects close; clients talk back over the REST
	// endpoints.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Msgf("rest: failed to encode response: error=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
