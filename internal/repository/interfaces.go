package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skillbridge/console/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// ProfileRepository provides access to profiles. The admin operator's profile
// carries the authoritative routing slug.
type ProfileRepository interface {
	// FindByEmail returns a profile by email, or nil if not found.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.Profile, error)

	// FindByID returns a profile by id, or nil if not found.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Profile, error)

	// UpdateSlug overwrites current_session_slug. A full overwrite, never
	// read-modify-write: every writer fully replaces the field.
	UpdateSlug(ctx context.Context, db DBTX, id uuid.UUID, slug string) error
}

// SessionRepository provides access to sessions.
type SessionRepository interface {
	// Activate deactivates every prior session for the identity and inserts s
	// as the single active session. The at-most-one-active invariant holds
	// under concurrent logins.
	Activate(ctx context.Context, db DBTX, s *domain.Session) error

	// NewestActive returns the most recently created active session for the
	// identity, or nil if none exists.
	NewestActive(ctx context.Context, db DBTX, identityID uuid.UUID) (*domain.Session, error)

	// DeactivateByToken marks the session with the given token inactive.
	DeactivateByToken(ctx context.Context, db DBTX, token string) error

	// CountActive returns the number of active sessions for the identity.
	CountActive(ctx context.Context, db DBTX, identityID uuid.UUID) (int, error)
}

// AuditRepository provides append access to security_audit_logs.
type AuditRepository interface {
	// Insert appends an audit event. Rows are immutable after insert except
	// for resolution_status.
	Insert(ctx context.Context, db DBTX, e *domain.AuditEvent) error

	// ListRecent returns the newest events, up to limit.
	ListRecent(ctx context.Context, db DBTX, limit int) ([]domain.AuditEvent, error)

	// Resolve transitions resolution_status to resolved. Idempotent: resolving
	// an already resolved event is a no-op, not an error.
	Resolve(ctx context.Context, db DBTX, id uuid.UUID) error
}

// SettingsRepository provides access to the site_settings singleton.
type SettingsRepository interface {
	// Get returns the singleton settings row.
	Get(ctx context.Context, db DBTX) (*domain.SiteSettings, error)

	// Update overwrites the mutable settings fields.
	Update(ctx context.Context, db DBTX, s *domain.SiteSettings) error
}

// ChatRepository provides access to chat_rooms and messages.
type ChatRepository interface {
	// ListRooms returns all chat rooms, newest first.
	ListRooms(ctx context.Context, db DBTX, limit int) ([]domain.ChatRoom, error)

	// FindRoom returns a room by id, or nil if not found.
	FindRoom(ctx context.Context, db DBTX, id uuid.UUID) (*domain.ChatRoom, error)

	// ListMessages returns a room's messages in creation order.
	ListMessages(ctx context.Context, db DBTX, roomID uuid.UUID, limit int) ([]domain.Message, error)

	// InsertMessage appends a ciphertext message row.
	InsertMessage(ctx context.Context, db DBTX, m *domain.Message) error
}

// MarshalMetadata encodes an audit metadata map, falling back to an empty
// object so a bad value can never block event persistence.
func MarshalMetadata(meta map[string]interface{}) json.RawMessage {
	if len(meta) == 0 {
		return json.RawMessage(`{}`)
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
