package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/skillbridge/console/internal/domain"
)

// PgProfileRepository implements ProfileRepository using pgx.
type PgProfileRepository struct{}

// NewPgProfileRepository creates a new PgProfileRepository.
func NewPgProfileRepository() *PgProfileRepository {
	return &PgProfileRepository{}
}

// FindByEmail returns a profile by email, or nil if not found.
func (r *PgProfileRepository) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.Profile, error) {
	row := db.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, COALESCE(current_session_slug, ''), created_at, updated_at
		 FROM profiles WHERE email = $1`, email)
	return scanProfile(row)
}

// FindByID returns a profile by id, or nil if not found.
func (r *PgProfileRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Profile, error) {
	row := db.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, COALESCE(current_session_slug, ''), created_at, updated_at
		 FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// UpdateSlug overwrites current_session_slug for the identity.
func (r *PgProfileRepository) UpdateSlug(ctx context.Context, db DBTX, id uuid.UUID, slug string) error {
	tag, err := db.Exec(ctx,
		`UPDATE profiles SET current_session_slug = $1, updated_at = now() WHERE id = $2`,
		slug, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("profile", id.String())
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	p := &domain.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.CurrentSessionSlug, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
