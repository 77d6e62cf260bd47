package models

// VerificationResult is the success surface of one verification
// operation. Failure outcomes travel as domain errors instead.
type VerificationResult struct {
	Message        string             `json:"message"`
	Status         VerificationStatus `json:"status"`
	VerifiedName   string             `json:"verified_name,omitempty"`
	MatchScore     float64            `json:"match_score,omitempty"`
	IdentityStatus IdentityStatus     `json:"identity_status"`
	KYCStatus      KYCStatus          `json:"kyc_status"`
	NextStep       string             `json:"next_step,omitempty"`
}

// SessionStart is returned by the Aadhaar initiate phase.
type SessionStart struct {
	Message           string `json:"message"`
	SessionToken      string `json:"session_token"`
	AuthURL           string `json:"auth_url,omitempty"`
	TokenExpiresIn    string `json:"token_expires_in"`
	AttemptsUsed      int    `json:"attempts_used"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// DocumentSummary is the per-document view in listings.
type DocumentSummary struct {
	ID                string         `json:"id"`
	Type              DocumentType   `json:"document_type"`
	FileName          string         `json:"file_name"`
	FileSize          int64          `json:"file_size"`
	Status            DocumentStatus `json:"status"`
	UploadedAt        string         `json:"uploaded_at"`
	ExtractedName     string         `json:"extracted_name,omitempty"`
	ExtractedIDNumber string         `json:"extracted_id_number,omitempty"`
	MatchScore        *float64       `json:"match_score,omitempty"`
	VerifiedAt        string         `json:"verified_at,omitempty"`
	ReviewedAt        string         `json:"reviewed_at,omitempty"`
	AdminRemarks      string         `json:"admin_remarks,omitempty"`
}

// PendingReviewItem is the admin view of a document awaiting a decision.
type PendingReviewItem struct {
	UserID int64 `json:"user_id"`
	DocumentSummary
}

// DocumentListing is the full document surface for one profile.
type DocumentListing struct {
	UserID            int64             `json:"user_id"`
	Email             string            `json:"email"`
	Documents         []DocumentSummary `json:"documents"`
	TotalDocuments    int               `json:"total_documents"`
	RequiredDocuments []string          `json:"required_documents"`
	MissingDocuments  []string          `json:"missing_documents"`
	AllApproved       bool              `json:"all_approved"`
}

// ProfileUpdateResult reports which fields an edit touched.
type ProfileUpdateResult struct {
	Message       string   `json:"message"`
	UserID        int64    `json:"user_id"`
	Email         string   `json:"email"`
	UpdatedFields []string `json:"updated_fields"`
}

// ReviewResult reports an admin decision.
type ReviewResult struct {
	DocumentID   string         `json:"document_id"`
	Type         DocumentType   `json:"document_type"`
	UserEmail    string         `json:"user_email"`
	Status       DocumentStatus `json:"status"`
	Message      string         `json:"message"`
	KYCCompleted bool           `json:"kyc_completed"`
}
