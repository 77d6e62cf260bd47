package refdata

import (
	"context"
	"database/sql"
	"fmt"

	"kycd/pkg/platform/sentinel"
)

// PostgresStore serves the reference registry from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByPAN(ctx context.Context, panNumber string) (*PANRecord, error) {
	query := `
		SELECT pan_number, aadhaar_number, full_name, dob, address, gender
		FROM reference_pans
		WHERE pan_number = $1
	`
	return scanPAN(s.db.QueryRowContext(ctx, query, panNumber), "get pan record")
}

func (s *PostgresStore) GetByAadhaar(ctx context.Context, aadhaarNumber string) (*PANRecord, error) {
	query := `
		SELECT pan_number, aadhaar_number, full_name, dob, address, gender
		FROM reference_pans
		WHERE aadhaar_number = $1
	`
	return scanPAN(s.db.QueryRowContext(ctx, query, aadhaarNumber), "get aadhaar record")
}

func (s *PostgresStore) GetByAccountNumber(ctx context.Context, accountNumber string) (*BankAccountRecord, error) {
	query := `
		SELECT account_number, ifsc, bank_name, account_holder_name, is_active
		FROM reference_bank_accounts
		WHERE account_number = $1
	`
	var record BankAccountRecord
	err := s.db.QueryRowContext(ctx, query, accountNumber).Scan(
		&record.AccountNumber,
		&record.IFSC,
		&record.BankName,
		&record.AccountHolderName,
		&record.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get bank account record: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) PutPAN(ctx context.Context, record *PANRecord) error {
	query := `
		INSERT INTO reference_pans (pan_number, aadhaar_number, full_name, dob, address, gender)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pan_number) DO UPDATE SET
			aadhaar_number = EXCLUDED.aadhaar_number,
			full_name = EXCLUDED.full_name,
			dob = EXCLUDED.dob,
			address = EXCLUDED.address,
			gender = EXCLUDED.gender
	`
	_, err := s.db.ExecContext(ctx, query,
		record.PANNumber,
		record.AadhaarNumber,
		record.FullName,
		record.DOB,
		record.Address,
		record.Gender,
	)
	if err != nil {
		return fmt.Errorf("put pan record: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutBankAccount(ctx context.Context, record *BankAccountRecord) error {
	query := `
		INSERT INTO reference_bank_accounts (account_number, ifsc, bank_name, account_holder_name, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_number) DO UPDATE SET
			ifsc = EXCLUDED.ifsc,
			bank_name = EXCLUDED.bank_name,
			account_holder_name = EXCLUDED.account_holder_name,
			is_active = EXCLUDED.is_active
	`
	_, err := s.db.ExecContext(ctx, query,
		record.AccountNumber,
		record.IFSC,
		record.BankName,
		record.AccountHolderName,
		record.IsActive,
	)
	if err != nil {
		return fmt.Errorf("put bank account record: %w", err)
	}
	return nil
}

type panRow interface {
	Scan(dest ...any) error
}

func scanPAN(row panRow, op string) (*PANRecord, error) {
	var record PANRecord
	err := row.Scan(
		&record.PANNumber,
		&record.AadhaarNumber,
		&record.FullName,
		&record.DOB,
		&record.Address,
		&record.Gender,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &record, nil
}
