package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateHandler(t *testing.T, signer *CookieSigner) http.Handler {
	t.Helper()
	return Gate(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestGate_RedirectsWithoutCookie(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", time.Hour)
	h := gateHandler(t, signer)

	req := httptest.NewRequest(http.MethodGet, "/vault/abcd1234/dashboard", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth", rec.Header().Get("Location"))
}

func TestGate_RedirectsOnBadSignature(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", time.Hour)
	forger := NewCookieSigner("different-secret-0123456789abcdef012", time.Hour)
	h := gateHandler(t, signer)

	forged, err := forger.Issue("abcd1234")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/vault/abcd1234/dashboard", nil)
	req.AddCookie(forged)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestGate_PassesWithValidCookie(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", time.Hour)
	var gotSlug string
	h := Gate(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSlug = SlugFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cookie, err := signer.Issue("abcd1234")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/vault/abcd1234/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abcd1234", gotSlug)
}

func TestGate_PublicPathsPassThrough(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", time.Hour)
	h := gateHandler(t, signer)

	for _, path := range []string{"/auth", "/auth/login", "/health", "/events", "/api/geo", "/logo.jpg", "/static/app.css"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestGate_ExpiredCookieRedirects(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", -time.Minute)
	h := gateHandler(t, signer)

	cookie, err := signer.Issue("abcd1234")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/vault/abcd1234/dashboard", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCookieSigner_RoundTrip(t *testing.T) {
	signer := NewCookieSigner("test-secret-0123456789abcdef0123456789", time.Hour)
	cookie, err := signer.Issue("zz99aa11")
	require.NoError(t, err)

	slug, err := signer.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "zz99aa11", slug)
}
