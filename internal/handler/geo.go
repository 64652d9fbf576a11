package handler

import (
	"net/http"

	"github.com/skillbridge/console/internal/provider"
)

// GeoHandler proxies geolocation lookups so the console shell never calls the
// provider cross-origin.
type GeoHandler struct {
	geo *provider.GeoIPClient
}

// NewGeoHandler creates a new GeoHandler.
func NewGeoHandler(geo *provider.GeoIPClient) *GeoHandler {
	return &GeoHandler{geo: geo}
}

// Lookup handles GET /api/geo. Always 200: the lookup degrades to the unknown
// sentinel rather than failing.
func (h *GeoHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		ip = ClientIP(r)
	}
	result := h.geo.Lookup(r.Context(), ip)
	RespondJSON(w, http.StatusOK, result)
}
