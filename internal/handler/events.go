package handler

import (
	"net/http"

	"github.com/skillbridge/console/internal/telemetry"
)

// EventsHandler ingests raw telemetry events from the console shell.
type EventsHandler struct {
	collector *telemetry.Collector
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(collector *telemetry.Collector) *EventsHandler {
	return &EventsHandler{collector: collector}
}

// Ingest handles POST /events. Always 202: telemetry failures degrade inside
// the collector and must never surface to the posting client.
func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var ev telemetry.RawEvent
	if err := DecodeJSON(r, &ev); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	// The client never supplies its own address.
	ev.SourceIP = ClientIP(r)
	if ev.UserAgent == "" {
		ev.UserAgent = r.UserAgent()
	}

	h.collector.LogEvent(r.Context(), ev)
	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
