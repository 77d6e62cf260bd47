package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "kycd/pkg/domain-errors"
)

// Document is one uploaded file of a given kind for a profile. At most one
// row exists per (user, kind): a re-upload after rejection replaces the
// file and resets the row in place.
type Document struct {
	ID       string       `json:"id"`
	UserID   int64        `json:"user_id"`
	Email    string       `json:"email"`
	Type     DocumentType `json:"document_type"`
	FileName string       `json:"file_name"`
	BlobPath string       `json:"-"`
	FileSize int64        `json:"file_size"`
	MimeType string       `json:"mime_type"`

	Status DocumentStatus `json:"status"`

	ExtractedName       string   `json:"extracted_name,omitempty"`
	ExtractedIDNumber   string   `json:"extracted_id_number,omitempty"`
	MatchScore          *float64 `json:"match_score,omitempty"`
	VerificationRemarks string   `json:"verification_remarks,omitempty"`

	AdminRemarks string     `json:"admin_remarks,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`

	UploadedAt time.Time  `json:"uploaded_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// NewDocument creates a freshly uploaded document with invariant validation.
func NewDocument(userID int64, email string, docType DocumentType, fileName, blobPath string, fileSize int64, mimeType string, now time.Time) (*Document, error) {
	if userID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id must be positive")
	}
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid document type")
	}
	if fileName == "" || blobPath == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "file name and blob path are required")
	}
	return &Document{
		ID:         uuid.NewString(),
		UserID:     userID,
		Email:      email,
		Type:       docType,
		FileName:   fileName,
		BlobPath:   blobPath,
		FileSize:   fileSize,
		MimeType:   mimeType,
		Status:     DocUploaded,
		UploadedAt: now,
	}, nil
}

// Transition moves the document to a new status, rejecting illegal moves.
func (d *Document) Transition(to DocumentStatus) error {
	if !d.Status.CanTransition(to) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"illegal document status transition %s -> %s", d.Status, to)
	}
	d.Status = to
	return nil
}

// Replace resets a rejected document for a fresh upload: new blob, cleared
// verification and review fields, status back to UPLOADED.
func (d *Document) Replace(fileName, blobPath string, fileSize int64, mimeType string, now time.Time) error {
	if err := d.Transition(DocUploaded); err != nil {
		return err
	}
	d.FileName = fileName
	d.BlobPath = blobPath
	d.FileSize = fileSize
	d.MimeType = mimeType
	d.UploadedAt = now
	d.ExtractedName = ""
	d.ExtractedIDNumber = ""
	d.MatchScore = nil
	d.VerificationRemarks = ""
	d.AdminRemarks = ""
	d.ReviewedAt = nil
	d.ReviewedBy = ""
	d.VerifiedAt = nil
	return nil
}

// DeriveDocumentStatus computes the aggregate document status for a set of
// documents belonging to one profile: APPROVED once every required identity
// kind and at least one income-proof kind are accepted, UPLOADED while any
// document exists, PENDING otherwise.
func DeriveDocumentStatus(docs []*Document) DocumentAggregateStatus {
	accepted := make(map[DocumentType]bool, len(docs))
	for _, doc := range docs {
		if doc.Status.IsAccepted() {
			accepted[doc.Type] = true
		}
	}

	identityDone := true
	for _, req := range RequiredIdentityDocuments {
		if !accepted[req] {
			identityDone = false
			break
		}
	}
	incomeDone := false
	for _, inc := range IncomeProofDocuments {
		if accepted[inc] {
			incomeDone = true
			break
		}
	}

	if identityDone && incomeDone {
		return DocumentsApproved
	}
	if len(docs) > 0 {
		return DocumentsUploaded
	}
	return DocumentsPending
}

// MissingDocuments lists what a profile still has to upload, phrased for
// the caller: each absent identity kind plus a combined income-proof entry
// when neither income kind is present.
func MissingDocuments(docs []*Document) []string {
	present := make(map[DocumentType]bool, len(docs))
	hasIncome := false
	for _, doc := range docs {
		present[doc.Type] = true
		if doc.Type.IsIncomeProof() {
			hasIncome = true
		}
	}

	var missing []string
	for _, req := range RequiredIdentityDocuments {
		if !present[req] {
			missing = append(missing, string(req))
		}
	}
	if !hasIncome {
		missing = append(missing, "SALARY_SLIP or BANK_STATEMENT")
	}
	return missing
}
