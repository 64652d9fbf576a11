package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents a profiles row. The single admin operator's profile carries
// the current routing slug; counterpart profiles carry only name and email.
type Profile struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"full_name"`
	PasswordHash       string    `json:"-"`
	CurrentSessionSlug string    `json:"current_session_slug,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Session represents a sessions row: one authenticated device login.
// At most one session per identity has Active=true at any time.
type Session struct {
	ID         uuid.UUID `json:"id"`
	Token      string    `json:"-"`
	IdentityID uuid.UUID `json:"identity_id"`
	UserAgent  string    `json:"user_agent"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// RevalidationState is the outcome of a session revalidation poll.
type RevalidationState string

const (
	// RevalidationValid means the local token still matches the newest active session.
	RevalidationValid RevalidationState = "valid"
	// RevalidationInvalidated means a newer login took over the identity; the stale
	// session has been signed out server-side and the caller must clear local state.
	RevalidationInvalidated RevalidationState = "invalidated"
	// RevalidationUnauthenticated means no identity is present at all.
	RevalidationUnauthenticated RevalidationState = "unauthenticated"
)
