package verificationlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const logColumns = `
	id, user_id, verification_type, identifier,
	submitted_name, verified_name, submitted_dob, verified_dob, bank_name, ifsc,
	match_score, status, failure_reason, attempt_number, created_at`

func (s *PostgresStore) Append(ctx context.Context, l *models.VerificationLog) error {
	query := `
		INSERT INTO verification_logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.UserID, l.Type, l.Identifier,
		l.SubmittedName, l.VerifiedName, l.SubmittedDOB, l.VerifiedDOB, l.BankName, l.IFSC,
		l.MatchScore, l.Status, l.FailureReason, l.AttemptNumber, l.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append verification log: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVerifiedByIdentifier(ctx context.Context, verificationType models.VerificationType, identifier string) (*models.VerificationLog, error) {
	query := `
		SELECT ` + logColumns + `
		FROM verification_logs
		WHERE verification_type = $1 AND identifier = $2 AND status = $3
		LIMIT 1
	`
	l, err := scanLog(s.db.QueryRowContext(ctx, query, verificationType, identifier, models.StatusVerified))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get verified log by identifier: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64, verificationType models.VerificationType) ([]*models.VerificationLog, error) {
	query := `
		SELECT ` + logColumns + `
		FROM verification_logs
		WHERE user_id = $1 AND verification_type = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, verificationType)
	if err != nil {
		return nil, fmt.Errorf("list verification logs: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan verification log: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification logs: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) DeletePrunableBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM verification_logs
		WHERE status IN ($1, $2) AND created_at < $3
	`
	result, err := s.db.ExecContext(ctx, query, models.StatusFailed, models.StatusBlocked, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete prunable verification logs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete prunable rows affected: %w", err)
	}
	return rows, nil
}

type logRow interface {
	Scan(dest ...any) error
}

func scanLog(row logRow) (*models.VerificationLog, error) {
	var l models.VerificationLog
	err := row.Scan(
		&l.ID, &l.UserID, &l.Type, &l.Identifier,
		&l.SubmittedName, &l.VerifiedName, &l.SubmittedDOB, &l.VerifiedDOB, &l.BankName, &l.IFSC,
		&l.MatchScore, &l.Status, &l.FailureReason, &l.AttemptNumber, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
