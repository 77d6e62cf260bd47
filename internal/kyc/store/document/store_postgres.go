package document

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

const documentColumns = `
	id, user_id, email, document_type, file_name, blob_path, file_size, mime_type,
	status, extracted_name, extracted_id_number, match_score, verification_remarks,
	admin_remarks, reviewed_at, reviewed_by, uploaded_at, verified_at`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE id = $1`
	return scanDocumentRow(s.db.QueryRowContext(ctx, query, id), "get document by id")
}

func (s *PostgresStore) GetByUserAndType(ctx context.Context, userID int64, docType models.DocumentType) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE user_id = $1 AND document_type = $2`
	return scanDocumentRow(s.db.QueryRowContext(ctx, query, userID, docType), "get document by user and type")
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE user_id = $1 ORDER BY uploaded_at ASC`
	return s.list(ctx, query, userID)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.DocumentStatus) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM kyc_documents WHERE status = $1 ORDER BY uploaded_at ASC`
	return s.list(ctx, query, status)
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Document) error {
	query := `
		INSERT INTO kyc_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := s.db.ExecContext(ctx, query, documentArgs(d)...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, d *models.Document) error {
	query := `
		UPDATE kyc_documents SET
			file_name = $5, blob_path = $6, file_size = $7, mime_type = $8,
			status = $9, extracted_name = $10, extracted_id_number = $11,
			match_score = $12, verification_remarks = $13,
			admin_remarks = $14, reviewed_at = $15, reviewed_by = $16,
			uploaded_at = $17, verified_at = $18
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, documentArgs(d)...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM kyc_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListRejectedBefore(ctx context.Context, cutoff time.Time) ([]*models.Document, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM kyc_documents
		WHERE status = $1 AND COALESCE(reviewed_at, uploaded_at) < $2
		ORDER BY uploaded_at ASC
	`
	return s.list(ctx, query, models.DocRejected, cutoff)
}

// DeleteIfRejectedBefore re-checks status and age inside the DELETE so a
// row revived by a concurrent re-upload is left alone.
func (s *PostgresStore) DeleteIfRejectedBefore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	query := `
		DELETE FROM kyc_documents
		WHERE id = $1 AND status = $2 AND COALESCE(reviewed_at, uploaded_at) < $3
	`
	result, err := s.db.ExecContext(ctx, query, id, models.DocRejected, cutoff)
	if err != nil {
		return false, fmt.Errorf("delete rejected document: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete rejected rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func documentArgs(d *models.Document) []any {
	return []any{
		d.ID, d.UserID, d.Email, d.Type, d.FileName, d.BlobPath, d.FileSize, d.MimeType,
		d.Status, d.ExtractedName, d.ExtractedIDNumber, d.MatchScore, d.VerificationRemarks,
		d.AdminRemarks, d.ReviewedAt, d.ReviewedBy, d.UploadedAt, d.VerifiedAt,
	}
}

type documentRow interface {
	Scan(dest ...any) error
}

func scanDocumentRow(row documentRow, op string) (*models.Document, error) {
	d, err := scanDocument(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

func scanDocument(row documentRow) (*models.Document, error) {
	var d models.Document
	var matchScore sql.NullFloat64
	var reviewedAt, verifiedAt sql.NullTime
	err := row.Scan(
		&d.ID, &d.UserID, &d.Email, &d.Type, &d.FileName, &d.BlobPath, &d.FileSize, &d.MimeType,
		&d.Status, &d.ExtractedName, &d.ExtractedIDNumber, &matchScore, &d.VerificationRemarks,
		&d.AdminRemarks, &reviewedAt, &d.ReviewedBy, &d.UploadedAt, &verifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if matchScore.Valid {
		d.MatchScore = &matchScore.Float64
	}
	if reviewedAt.Valid {
		d.ReviewedAt = &reviewedAt.Time
	}
	if verifiedAt.Valid {
		d.VerifiedAt = &verifiedAt.Time
	}
	return &d, nil
}
