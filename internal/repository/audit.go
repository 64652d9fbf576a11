package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/skillbridge/console/internal/domain"
)

// PgAuditRepository implements AuditRepository using pgx.
type PgAuditRepository struct{}

// NewPgAuditRepository creates a new PgAuditRepository.
func NewPgAuditRepository() *PgAuditRepository {
	return &PgAuditRepository{}
}

// Insert appends an audit event.
func (r *PgAuditRepository) Insert(ctx context.Context, db DBTX, e *domain.AuditEvent) error {
	_, err := db.Exec(ctx,
		`INSERT INTO security_audit_logs
		   (id, subdomain, event_type, identity_id, ip_address, user_agent, country, metadata, resolution_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Subdomain, e.EventType, e.IdentityID, e.IPAddress, e.UserAgent, e.Country, e.Metadata, e.ResolutionStatus)
	return err
}

// ListRecent returns the newest events, up to limit.
func (r *PgAuditRepository) ListRecent(ctx context.Context, db DBTX, limit int) ([]domain.AuditEvent, error) {
	rows, err := db.Query(ctx,
		`SELECT id, subdomain, event_type, identity_id, ip_address, user_agent, country, metadata, resolution_status, created_at
		 FROM security_audit_logs
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Subdomain, &e.EventType, &e.IdentityID, &e.IPAddress,
			&e.UserAgent, &e.Country, &e.Metadata, &e.ResolutionStatus, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Resolve transitions resolution_status to resolved. The WHERE clause makes the
// update idempotent; resolving an already resolved row affects nothing and is
// not an error.
func (r *PgAuditRepository) Resolve(ctx context.Context, db DBTX, id uuid.UUID) error {
	_, err := db.Exec(ctx,
		`UPDATE security_audit_logs
		 SET resolution_status = $1
		 WHERE id = $2 AND resolution_status = $3`,
		domain.ResolutionResolved, id, domain.ResolutionOpen)
	return err
}
