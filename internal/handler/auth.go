package handler

import (
	"net/http"

	"github.com/skillbridge/console/internal/auth"
)

// AuthHandler handles login, revalidation, path correction, and sign-out.
type AuthHandler struct {
	authority *auth.Authority
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authority *auth.Authority) *AuthHandler {
	return &AuthHandler{authority: authority}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input auth.LoginInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}
	input.UserAgent = r.UserAgent()
	input.SourceIP = ClientIP(r)

	result, err := h.authority.Login(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}

	http.SetCookie(w, result.SlugCookie)
	RespondJSON(w, http.StatusOK, result)
}

type revalidateInput struct {
	SessionToken string `json:"session_token"`
}

// Revalidate handles POST /auth/revalidate, the 30-second session poll. A
// token displaced by a newer login elsewhere comes back "invalidated" and the
// caller clears local state.
func (h *AuthHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	var input revalidateInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	result, err := h.authority.Revalidate(r.Context(), input.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, result)
}

type pathCheckInput struct {
	NavPath string `json:"nav_path"`
}

// CheckPath handles POST /auth/path. It reconciles a navigation path against
// the authoritative routing slug: mismatches get a corrected redirect target,
// an absent binding is denied outright.
func (h *AuthHandler) CheckPath(w http.ResponseWriter, r *http.Request) {
	var input pathCheckInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code":    "VALIDATION_ERROR",
			"message": "invalid request body",
		})
		return
	}

	decision, err := h.authority.CheckPath(r.Context(), input.NavPath)
	if err != nil {
		RespondError(w, err)
		return
	}
	if decision.Denied {
		RespondJSON(w, http.StatusForbidden, map[string]string{
			"code":    "ACCESS_DENIED",
			"message": "no routing slug bound to this identity",
		})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"redirect_to": decision.RedirectTo,
	})
}

type logoutInput struct {
	SessionToken string `json:"session_token"`
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var input logoutInput
	// A missing body still signs out; only the cookie is cleared then.
	_ = DecodeJSON(r, &input)

	cookie, err := h.authority.SignOut(r.Context(), input.SessionToken)
	if err != nil {
		RespondError(w, err)
		return
	}
	http.SetCookie(w, cookie)
	RespondJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
