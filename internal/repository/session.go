package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skillbridge/console/internal/domain"
)

// PgSessionRepository implements SessionRepository using pgx.
type PgSessionRepository struct{}

// NewPgSessionRepository creates a new PgSessionRepository.
func NewPgSessionRepository() *PgSessionRepository {
	return &PgSessionRepository{}
}

// Activate deactivates all prior sessions and inserts the new one in a single
// statement. The partial unique index on (identity_id) WHERE active enforces
// at-most-one-active at every observation point: when two logins truly
// overlap, the loser's insert hits the index and one retry deactivates the
// committed winner before inserting.
func (r *PgSessionRepository) Activate(ctx context.Context, db DBTX, s *domain.Session) error {
	const stmt = `WITH deactivated AS (
	   UPDATE sessions SET active = false
	   WHERE identity_id = $3 AND active = true
	 )
	 INSERT INTO sessions (id, token, identity_id, user_agent, active)
	 VALUES ($1, $2, $3, $4, true)`

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		_, err = db.Exec(ctx, stmt, s.ID, s.Token, s.IdentityID, s.UserAgent)
		if !isUniqueViolation(err) {
			return err
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// NewestActive returns the most recently created active session, or nil.
func (r *PgSessionRepository) NewestActive(ctx context.Context, db DBTX, identityID uuid.UUID) (*domain.Session, error) {
	row := db.QueryRow(ctx,
		`SELECT id, token, identity_id, user_agent, active, created_at
		 FROM sessions
		 WHERE identity_id = $1 AND active = true
		 ORDER BY created_at DESC
		 LIMIT 1`, identityID)

	s := &domain.Session{}
	err := row.Scan(&s.ID, &s.Token, &s.IdentityID, &s.UserAgent, &s.Active, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeactivateByToken marks the session with the given token inactive.
func (r *PgSessionRepository) DeactivateByToken(ctx context.Context, db DBTX, token string) error {
	_, err := db.Exec(ctx,
		`UPDATE sessions SET active = false WHERE token = $1`, token)
	return err
}

// CountActive returns the number of active sessions for the identity.
func (r *PgSessionRepository) CountActive(ctx context.Context, db DBTX, identityID uuid.UUID) (int, error) {
	var n int
	err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE identity_id = $1 AND active = true`,
		identityID).Scan(&n)
	return n, err
}
