package handler

import (
	"net/http"

	"github.com/skillbridge/console/internal/provider"
)

// PulseHandler exposes the keep-alive run as an operational endpoint, so an
// external cron can trigger it over HTTP.
type PulseHandler struct {
	pinger *provider.Pinger
}

// NewPulseHandler creates a new PulseHandler.
func NewPulseHandler(pinger *provider.Pinger) *PulseHandler {
	return &PulseHandler{pinger: pinger}
}

// Run handles GET /ops/pulse.
func (h *PulseHandler) Run(w http.ResponseWriter, r *http.Request) {
	report := h.pinger.Run(r.Context())
	RespondJSON(w, http.StatusOK, report)
}
