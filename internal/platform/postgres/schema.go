package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the SQL stores expect. Statements are
// idempotent so startup can always run them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS kyc_profiles (
		user_id BIGINT PRIMARY KEY,
		full_name TEXT NOT NULL,
		dob TIMESTAMPTZ NOT NULL,
		email TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		employment_type TEXT NOT NULL DEFAULT '',
		monthly_income DOUBLE PRECISION NOT NULL DEFAULT 0,
		aadhaar_number TEXT NOT NULL DEFAULT '',
		pan_number TEXT NOT NULL DEFAULT '',
		verified_name TEXT NOT NULL DEFAULT '',
		pan_status TEXT NOT NULL,
		aadhaar_status TEXT NOT NULL,
		bank_status TEXT NOT NULL,
		identity_status TEXT NOT NULL,
		document_status TEXT NOT NULL,
		kyc_status TEXT NOT NULL,
		session_token TEXT NOT NULL DEFAULT '',
		session_created_at TIMESTAMPTZ,
		session_attempt_count INT NOT NULL DEFAULT 0,
		pan_locked BOOLEAN NOT NULL DEFAULT FALSE,
		aadhaar_locked BOOLEAN NOT NULL DEFAULT FALSE,
		dob_locked BOOLEAN NOT NULL DEFAULT FALSE,
		name_locked BOOLEAN NOT NULL DEFAULT FALSE,
		bank_locked BOOLEAN NOT NULL DEFAULT FALSE,
		pan_verified_at TIMESTAMPTZ,
		aadhaar_verified_at TIMESTAMPTZ,
		bank_verified_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_kyc_profiles_pan_number ON kyc_profiles (pan_number)`,

	`CREATE TABLE IF NOT EXISTS attempt_trackers (
		email TEXT NOT NULL,
		verification_type TEXT NOT NULL,
		attempts_count INT NOT NULL DEFAULT 0,
		locked_until TIMESTAMPTZ,
		first_attempt_at TIMESTAMPTZ NOT NULL,
		last_attempt_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (email, verification_type)
	)`,

	`CREATE TABLE IF NOT EXISTS verification_logs (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		verification_type TEXT NOT NULL,
		identifier TEXT NOT NULL,
		submitted_name TEXT NOT NULL DEFAULT '',
		verified_name TEXT NOT NULL DEFAULT '',
		submitted_dob TEXT NOT NULL DEFAULT '',
		verified_dob TEXT NOT NULL DEFAULT '',
		bank_name TEXT NOT NULL DEFAULT '',
		ifsc TEXT NOT NULL DEFAULT '',
		match_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		failure_reason TEXT NOT NULL DEFAULT '',
		attempt_number INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_verification_logs_identifier
		ON verification_logs (verification_type, identifier) WHERE status = 'VERIFIED'`,
	`CREATE INDEX IF NOT EXISTS idx_verification_logs_user ON verification_logs (user_id, verification_type)`,

	`CREATE TABLE IF NOT EXISTS kyc_documents (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		document_type TEXT NOT NULL,
		file_name TEXT NOT NULL,
		blob_path TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		mime_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		extracted_name TEXT NOT NULL DEFAULT '',
		extracted_id_number TEXT NOT NULL DEFAULT '',
		match_score DOUBLE PRECISION,
		verification_remarks TEXT NOT NULL DEFAULT '',
		admin_remarks TEXT NOT NULL DEFAULT '',
		reviewed_at TIMESTAMPTZ,
		reviewed_by TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL,
		verified_at TIMESTAMPTZ,
		UNIQUE (user_id, document_type)
	)`,

	`CREATE TABLE IF NOT EXISTS reference_pans (
		pan_number TEXT PRIMARY KEY,
		aadhaar_number TEXT NOT NULL,
		full_name TEXT NOT NULL,
		dob TIMESTAMPTZ NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		gender TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reference_pans_aadhaar ON reference_pans (aadhaar_number)`,

	`CREATE TABLE IF NOT EXISTS reference_bank_accounts (
		account_number TEXT PRIMARY KEY,
		ifsc TEXT NOT NULL,
		bank_name TEXT NOT NULL,
		account_holder_name TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
