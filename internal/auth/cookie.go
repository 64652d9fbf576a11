package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SlugCookieName is the signed routing-slug cookie.
const SlugCookieName = "session_routing_slug"

// slugClaims is the JWT payload carried by the slug cookie.
type slugClaims struct {
	jwt.RegisteredClaims
	Slug string `json:"slug"`
}

// CookieSigner issues and verifies the signed routing-slug cookie. The cookie
// is a cache of the profile slug for cheap perimeter checks; authorization
// decisions always reconcile against the server-side session row.
type CookieSigner struct {
	secret []byte
	maxAge time.Duration
}

// NewCookieSigner creates a signer with the given HMAC secret and lifetime.
func NewCookieSigner(secret string, maxAge time.Duration) *CookieSigner {
	return &CookieSigner{secret: []byte(secret), maxAge: maxAge}
}

// Issue signs slug into a SameSite=Strict cookie with a bounded lifetime.
func (c *CookieSigner) Issue(slug string) (*http.Cookie, error) {
	now := time.Now()
	claims := slugClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
		Slug: slug,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("sign slug cookie: %w", err)
	}

	return &http.Cookie{
		Name:     SlugCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// Verify parses and validates a slug cookie value, returning the slug.
func (c *CookieSigner) Verify(value string) (string, error) {
	token, err := jwt.ParseWithClaims(value, &slugClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse slug cookie: %w", err)
	}

	claims, ok := token.Claims.(*slugClaims)
	if !ok || !token.Valid || claims.Slug == "" {
		return "", fmt.Errorf("invalid slug cookie claims")
	}
	return claims.Slug, nil
}

// Expire returns a cookie that clears the slug on the client.
func (c *CookieSigner) Expire() *http.Cookie {
	return &http.Cookie{
		Name:     SlugCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
