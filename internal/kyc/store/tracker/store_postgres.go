package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

// PostgresStore persists attempt trackers in PostgreSQL. Every
// conditional mutation is a single statement with the predicate inside
// it, so concurrent callers serialize on the row rather than racing a
// read-then-write in Go.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const trackerColumns = `email, verification_type, attempts_count, locked_until, first_attempt_at, last_attempt_at, created_at`

func (s *PostgresStore) Get(ctx context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error) {
	query := `
		SELECT ` + trackerColumns + `
		FROM attempt_trackers
		WHERE email = $1 AND verification_type = $2
	`
	t, err := scanTracker(s.db.QueryRowContext(ctx, query, email, verificationType))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get tracker: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error) {
	query := `
		INSERT INTO attempt_trackers (` + trackerColumns + `)
		VALUES ($1, $2, 0, NULL, $3, $3, $3)
		ON CONFLICT (email, verification_type) DO UPDATE SET
			email = EXCLUDED.email
		RETURNING ` + trackerColumns + `
	`
	t, err := scanTracker(s.db.QueryRowContext(ctx, query, email, verificationType, now))
	if err != nil {
		return nil, fmt.Errorf("get or create tracker: %w", err)
	}
	return t, nil
}

// BeginAttempt runs the lock-check → reset-if-expired → increment
// sequence as one upsert. A still-active lock leaves the row untouched;
// an expired lock restarts the count at 1; otherwise the count is
// incremented. The CASE arms mirror the memory store switch exactly.
func (s *PostgresStore) BeginAttempt(ctx context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error) {
	query := `
		INSERT INTO attempt_trackers (` + trackerColumns + `)
		VALUES ($1, $2, 1, NULL, $3, $3, $3)
		ON CONFLICT (email, verification_type) DO UPDATE SET
			attempts_count = CASE
				WHEN attempt_trackers.locked_until IS NOT NULL AND attempt_trackers.locked_until > $3
					THEN attempt_trackers.attempts_count
				WHEN attempt_trackers.locked_until IS NOT NULL
					THEN 1
				ELSE attempt_trackers.attempts_count + 1
			END,
			first_attempt_at = CASE
				WHEN attempt_trackers.locked_until IS NOT NULL AND attempt_trackers.locked_until <= $3
					THEN $3
				ELSE attempt_trackers.first_attempt_at
			END,
			last_attempt_at = CASE
				WHEN attempt_trackers.locked_until IS NOT NULL AND attempt_trackers.locked_until > $3
					THEN attempt_trackers.last_attempt_at
				ELSE $3
			END,
			locked_until = CASE
				WHEN attempt_trackers.locked_until IS NOT NULL AND attempt_trackers.locked_until > $3
					THEN attempt_trackers.locked_until
				ELSE NULL
			END
		RETURNING ` + trackerColumns + `
	`
	t, err := scanTracker(s.db.QueryRowContext(ctx, query, email, verificationType, now))
	if err != nil {
		return nil, fmt.Errorf("begin attempt: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Decrement(ctx context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error) {
	query := `
		UPDATE attempt_trackers
		SET attempts_count = GREATEST(attempts_count - 1, 0)
		WHERE email = $1 AND verification_type = $2
		RETURNING ` + trackerColumns + `
	`
	t, err := scanTracker(s.db.QueryRowContext(ctx, query, email, verificationType))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("decrement tracker: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) Reset(ctx context.Context, email string, verificationType models.VerificationType) error {
	query := `
		UPDATE attempt_trackers
		SET attempts_count = 0, locked_until = NULL
		WHERE email = $1 AND verification_type = $2
	`
	if _, err := s.db.ExecContext(ctx, query, email, verificationType); err != nil {
		return fmt.Errorf("reset tracker: %w", err)
	}
	return nil
}

func (s *PostgresStore) Lock(ctx context.Context, email string, verificationType models.VerificationType, until time.Time) error {
	query := `
		UPDATE attempt_trackers
		SET locked_until = $3
		WHERE email = $1 AND verification_type = $2
	`
	result, err := s.db.ExecContext(ctx, query, email, verificationType, until)
	if err != nil {
		return fmt.Errorf("lock tracker: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lock tracker rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteExpiredLocked(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM attempt_trackers WHERE locked_until IS NOT NULL AND locked_until < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired locked trackers: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired locked rows affected: %w", err)
	}
	return rows, nil
}

func (s *PostgresStore) DeleteIdle(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM attempt_trackers WHERE attempts_count = 0 AND locked_until IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("delete idle trackers: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete idle rows affected: %w", err)
	}
	return rows, nil
}

type trackerRow interface {
	Scan(dest ...any) error
}

func scanTracker(row trackerRow) (*models.AttemptTracker, error) {
	var t models.AttemptTracker
	var lockedUntil sql.NullTime
	err := row.Scan(
		&t.Email,
		&t.Type,
		&t.AttemptsCount,
		&lockedUntil,
		&t.FirstAttemptAt,
		&t.LastAttemptAt,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		t.LockedUntil = &lockedUntil.Time
	}
	return &t, nil
}
