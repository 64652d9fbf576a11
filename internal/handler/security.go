package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillbridge/console/internal/auth"
	"github.com/skillbridge/console/internal/service"
)

// SecurityHandler exposes the security console: audit feed, threat resolution,
// and policy mutation.
type SecurityHandler struct {
	securitySvc *service.SecurityService
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(securitySvc *service.SecurityService) *SecurityHandler {
	return &SecurityHandler{securitySvc: securitySvc}
}

// ListEvents handles GET /api/security/events.
func (h *SecurityHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.securitySvc.ListAuditEvents(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// ResolveEvent handles POST /api/security/events/{id}/resolve.
func (h *SecurityHandler) ResolveEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid event id",
		})
		return
	}
	if err := h.securitySvc.ResolveEvent(r.Context(), id); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

type ipInput struct {
	IP string `json:"ip"`
}

// BlacklistIP handles POST /api/security/blacklist.
func (h *SecurityHandler) BlacklistIP(w http.ResponseWriter, r *http.Request) {
	var input ipInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	settings, err := h.securitySvc.BlacklistIP(r.Context(), input.IP)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, settings)
}

// WhitelistIP handles POST /api/security/whitelist.
func (h *SecurityHandler) WhitelistIP(w http.ResponseWriter, r *http.Request) {
	var input ipInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	settings, err := h.securitySvc.WhitelistIP(r.Context(), input.IP)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, settings)
}

type countryInput struct {
	Country string `json:"country"`
}

// BlockCountry handles POST /api/security/countries.
func (h *SecurityHandler) BlockCountry(w http.ResponseWriter, r *http.Request) {
	var input countryInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	settings, err := h.securitySvc.BlockCountry(r.Context(), input.Country)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, settings)
}

// GetSettings handles GET /api/security/settings.
func (h *SecurityHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.securitySvc.GetSettings(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, settings)
}

// UpdateToggles handles PATCH /api/security/settings.
func (h *SecurityHandler) UpdateToggles(w http.ResponseWriter, r *http.Request) {
	var input service.TogglesInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	settings, err := h.securitySvc.UpdateToggles(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, settings)
}

// RotateSlug handles POST /api/security/rotate-slug. The gate stored the
// caller's verified slug in the request context; it is passed along so the
// rotation audit names the issuing namespace. The fresh cookie re-binds the
// operator's own browser to the rotated namespace.
func (h *SecurityHandler) RotateSlug(w http.ResponseWriter, r *http.Request) {
	slug, cookie, err := h.securitySvc.ForceSlugRotation(r.Context(), auth.SlugFromContext(r.Context()))
	if err != nil {
		RespondError(w, err)
		return
	}
	http.SetCookie(w, cookie)
	RespondJSON(w, http.StatusOK, map[string]string{"routing_slug": slug})
}
