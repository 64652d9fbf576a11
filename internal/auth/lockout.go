package auth

import (
	"context"
	"time"

	"github.com/skillbridge/console/internal/domain"
	"github.com/skillbridge/console/internal/repository"
)

const (
	// MaxAttempts failed logins within LockoutWindow lock the account.
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// RecordAttempt inserts a login attempt row. Best-effort; a write failure must
// not affect the login outcome.
func RecordAttempt(ctx context.Context, db repository.DBTX, email, ip string, success bool) {
	if db == nil {
		return
	}
	_, _ = db.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, success)
		VALUES ($1, $2, $3)`,
		email, ip, success)
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// logins within the lockout window.
func CheckLocked(ctx context.Context, db repository.DBTX, email string) error {
	if db == nil {
		return nil
	}
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false
		  AND created_at > $2`,
		email, time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		return nil // fail open on DB error, don't block login
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
