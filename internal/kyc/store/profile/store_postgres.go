package profile

import (
	"context"
	"database/sql"
	"fmt"

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

const profileColumns = `
	user_id, full_name, dob, email, address, employment_type, monthly_income,
	aadhaar_number, pan_number, verified_name,
	pan_status, aadhaar_status, bank_status, identity_status, document_status, kyc_status,
	session_token, session_created_at, session_attempt_count,
	pan_locked, aadhaar_locked, dob_locked, name_locked, bank_locked,
	pan_verified_at, aadhaar_verified_at, bank_verified_at,
	created_at, updated_at`

func (s *PostgresStore) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM kyc_profiles WHERE user_id = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, userID), "get profile by user id")
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM kyc_profiles WHERE email = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, email), "get profile by email")
}

func (s *PostgresStore) GetByPANNumber(ctx context.Context, panNumber string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM kyc_profiles WHERE pan_number = $1`
	return scanProfile(s.db.QueryRowContext(ctx, query, panNumber), "get profile by pan number")
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO kyc_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19,
			$20, $21, $22, $23, $24,
			$25, $26, $27, $28, $29)
	`
	_, err := s.db.ExecContext(ctx, query, profileArgs(p)...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE kyc_profiles SET
			full_name = $2, dob = $3, email = $4, address = $5,
			employment_type = $6, monthly_income = $7,
			aadhaar_number = $8, pan_number = $9, verified_name = $10,
			pan_status = $11, aadhaar_status = $12, bank_status = $13,
			identity_status = $14, document_status = $15, kyc_status = $16,
			session_token = $17, session_created_at = $18, session_attempt_count = $19,
			pan_locked = $20, aadhaar_locked = $21, dob_locked = $22,
			name_locked = $23, bank_locked = $24,
			pan_verified_at = $25, aadhaar_verified_at = $26, bank_verified_at = $27,
			updated_at = $29
		WHERE user_id = $1
	`
	result, err := s.db.ExecContext(ctx, query, profileArgs(p)...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ConsumeSession spends the token with the match predicate inside the
// statement, so two concurrent verifies cannot both win.
func (s *PostgresStore) ConsumeSession(ctx context.Context, userID int64, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	query := `
		UPDATE kyc_profiles
		SET session_token = '', session_created_at = NULL, session_attempt_count = 0
		WHERE user_id = $1 AND session_token = $2
	`
	result, err := s.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return false, fmt.Errorf("consume session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume session rows affected: %w", err)
	}
	return rows > 0, nil
}

func profileArgs(p *models.Profile) []any {
	return []any{
		p.UserID, p.FullName, p.DOB, p.Email, p.Address, p.EmploymentType, p.MonthlyIncome,
		p.AadhaarNumber, p.PANNumber, p.VerifiedName,
		p.PANStatus, p.AadhaarStatus, p.BankStatus, p.IdentityStatus, p.DocumentStatus, p.KYCStatus,
		p.SessionToken, p.SessionCreatedAt, p.SessionAttemptCount,
		p.PANLocked, p.AadhaarLocked, p.DOBLocked, p.NameLocked, p.BankLocked,
		p.PANVerifiedAt, p.AadhaarVerifiedAt, p.BankVerifiedAt,
		p.CreatedAt, p.UpdatedAt,
	}
}

type profileRow interface {
	Scan(dest ...any) error
}

func scanProfile(row profileRow, op string) (*models.Profile, error) {
	var p models.Profile
	var sessionCreatedAt, panVerifiedAt, aadhaarVerifiedAt, bankVerifiedAt sql.NullTime
	err := row.Scan(
		&p.UserID, &p.FullName, &p.DOB, &p.Email, &p.Address, &p.EmploymentType, &p.MonthlyIncome,
		&p.AadhaarNumber, &p.PANNumber, &p.VerifiedName,
		&p.PANStatus, &p.AadhaarStatus, &p.BankStatus, &p.IdentityStatus, &p.DocumentStatus, &p.KYCStatus,
		&p.SessionToken, &sessionCreatedAt, &p.SessionAttemptCount,
		&p.PANLocked, &p.AadhaarLocked, &p.DOBLocked, &p.NameLocked, &p.BankLocked,
		&panVerifiedAt, &aadhaarVerifiedAt, &bankVerifiedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sessionCreatedAt.Valid {
		p.SessionCreatedAt = &sessionCreatedAt.Time
	}
	if panVerifiedAt.Valid {
		p.PANVerifiedAt = &panVerifiedAt.Time
	}
	if aadhaarVerifiedAt.Valid {
		p.AadhaarVerifiedAt = &aadhaarVerifiedAt.Time
	}
	if bankVerifiedAt.Valid {
		p.BankVerifiedAt = &bankVerifiedAt.Time
	}
	return &p, nil
}
