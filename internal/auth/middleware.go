package auth

import (
	"context"
	"net/http"
	"path"
	"strings"
)

type contextKey string

const slugKey contextKey = "routing_slug"

// SlugFromContext extracts the verified routing slug from request context.
func SlugFromContext(ctx context.Context) string {
	slug, _ := ctx.Value(slugKey).(string)
	return slug
}

// publicPaths need no identity: the authentication entry point, health, the
// telemetry ingest surface (anonymous visitors are exactly what it observes),
// and the same-origin geolocation proxy.
var publicPrefixes = []string{
	"/auth",
	"/health",
	"/events",
	"/api/geo",
}

// Gate is the request perimeter: unauthenticated traffic is redirected to the
// authentication entry point before any protected view is produced. The check
// is deliberately cheap: signature verification only, no database round trip,
// so it cannot become a bottleneck or a slug oracle.
// Fine-grained slug and session reconciliation happens after the shell loads.
func Gate(cookies *CookieSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(SlugCookieName)
			if err != nil {
				http.Redirect(w, r, "/auth", http.StatusSeeOther)
				return
			}

			slug, err := cookies.Verify(cookie.Value)
			if err != nil {
				http.Redirect(w, r, "/auth", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), slugKey, slug)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isPublicPath(p string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	// Static assets pass through; the gate only guards rendered views.
	return path.Ext(p) != ""
}
