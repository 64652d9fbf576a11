package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/skillbridge/console/internal/infra"
)

// StreamHandler serves the realtime feed over server-sent events. Delivery is
// at-least-once; the console tolerates duplicate payloads.
type StreamHandler struct {
	hub *infra.Hub
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *infra.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Subscribe handles GET /api/stream?room={audit|settings|room:{id}}.
func (h *StreamHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if !validRoom(room) {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "unknown room",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondJSON(w, http.StatusInternalServerError, map[string]string{
			"code":    "INTERNAL_ERROR",
			"message": "streaming unsupported",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.Subscribe(r.Context(), room)
	for payload := range sub.Send {
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

func validRoom(room string) bool {
	switch room {
	case infra.RoomAudit, infra.RoomSettings:
		return true
	}
	if id, ok := strings.CutPrefix(room, "room:"); ok {
		_, err := uuid.Parse(id)
		return err == nil
	}
	return false
}
