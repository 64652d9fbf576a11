package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/skillbridge/console/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execRecorder satisfies DBTX for statements that only Exec. Errors are
// consumed in order; once exhausted, Exec succeeds.
type execRecorder struct {
	errs  []error
	calls int
}

func (d *execRecorder) Exec(_ context.Context, _ string, _ ...interface{}) (pgconn.CommandTag, error) {
	d.calls++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return pgconn.CommandTag{}, err
	}
	return pgconn.CommandTag{}, nil
}

func (d *execRecorder) Query(_ context.Context, _ string, _ ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (d *execRecorder) QueryRow(_ context.Context, _ string, _ ...interface{}) pgx.Row {
	return nil
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", ConstraintName: "uniq_sessions_identity_active"}
}

func testSession() *domain.Session {
	return &domain.Session{
		ID:         uuid.New(),
		Token:      "token-1",
		IdentityID: uuid.New(),
		UserAgent:  "test-agent",
		Active:     true,
	}
}

func TestActivate_SingleStatementOnSuccess(t *testing.T) {
	db := &execRecorder{}

	err := NewPgSessionRepository().Activate(context.Background(), db, testSession())
	require.NoError(t, err)
	assert.Equal(t, 1, db.calls)
}

func TestActivate_RetriesOnceWhenRacingLoginWins(t *testing.T) {
	// A truly overlapping login commits its row first; the index rejects this
	// insert and the retry deactivates the winner before inserting.
	db := &execRecorder{errs: []error{uniqueViolation()}}

	err := NewPgSessionRepository().Activate(context.Background(), db, testSession())
	require.NoError(t, err)
	assert.Equal(t, 2, db.calls)
}

func TestActivate_GivesUpAfterSecondConflict(t *testing.T) {
	db := &execRecorder{errs: []error{uniqueViolation(), uniqueViolation()}}

	err := NewPgSessionRepository().Activate(context.Background(), db, testSession())
	require.Error(t, err)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "23505", pgErr.Code)
	assert.Equal(t, 2, db.calls)
}

func TestActivate_PropagatesOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	db := &execRecorder{errs: []error{boom}}

	err := NewPgSessionRepository().Activate(context.Background(), db, testSession())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.calls)
}
