package auth

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const slugCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// SlugLength is the routing slug length in characters.
const SlugLength = 8

// NewRoutingSlug generates a random base36 routing slug. Slugs are rotated on
// every successful login and never reused.
func NewRoutingSlug() (string, error) {
	buf := make([]byte, SlugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = slugCharset[int(b)%len(slugCharset)]
	}
	return string(buf), nil
}

// NewSessionToken generates an opaque session token.
func NewSessionToken() string {
	return uuid.New().String()
}
