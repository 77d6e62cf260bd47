package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "kycd/pkg/domain-errors"
)

// VerificationLog is an append-only audit record of one verification
// attempt's outcome. Rows are never updated; the sweeper deletes FAILED and
// BLOCKED rows past the retention window, VERIFIED rows are kept forever.
//
// The Identifier column doubles as the uniqueness key: at most one profile
// may hold a VERIFIED row for a given (type, identifier) pair.
type VerificationLog struct {
	ID         string           `json:"id"`
	UserID     int64            `json:"user_id"`
	Type       VerificationType `json:"verification_type"`
	Identifier string           `json:"identifier"` // PAN / Aadhaar / account number

	SubmittedName string `json:"submitted_name,omitempty"`
	VerifiedName  string `json:"verified_name,omitempty"`
	SubmittedDOB  string `json:"submitted_dob,omitempty"`
	VerifiedDOB   string `json:"verified_dob,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`

	MatchScore    float64            `json:"match_score"`
	Status        VerificationStatus `json:"status"`
	FailureReason string             `json:"failure_reason,omitempty"`
	AttemptNumber int                `json:"attempt_number"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewVerificationLog creates a log row with domain invariant validation.
func NewVerificationLog(userID int64, verificationType VerificationType, identifier string, status VerificationStatus, attemptNumber int, now time.Time) (*VerificationLog, error) {
	if userID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user_id must be positive")
	}
	if !verificationType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid verification type")
	}
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identifier cannot be empty")
	}
	if status != StatusVerified && status != StatusFailed && status != StatusBlocked {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "log status must be VERIFIED, FAILED, or BLOCKED")
	}
	if attemptNumber < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "attempt_number must be at least 1")
	}
	return &VerificationLog{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          verificationType,
		Identifier:    identifier,
		Status:        status,
		AttemptNumber: attemptNumber,
		CreatedAt:     now,
	}, nil
}

// IsPrunable reports whether the sweeper may delete the row at the given
// cutoff. Only failed and blocked attempts are ever pruned.
func (l *VerificationLog) IsPrunable(cutoff time.Time) bool {
	if l.Status != StatusFailed && l.Status != StatusBlocked {
		return false
	}
	return l.CreatedAt.Before(cutoff)
}
