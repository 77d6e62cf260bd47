package models

import (
	"time"

	dErrors "kycd/pkg/domain-errors"
)

// Profile is the aggregate root for one subject's onboarding state: the
// per-type verification statuses, the derived identity/document/KYC flags,
// the field immutability locks, and the Aadhaar session fields.
type Profile struct {
	UserID         int64     `json:"user_id"`
	FullName       string    `json:"full_name"`
	DOB            time.Time `json:"dob"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	EmploymentType string    `json:"employment_type"`
	MonthlyIncome  float64   `json:"monthly_income"`
	AadhaarNumber  string    `json:"aadhaar_number"`
	PANNumber      string    `json:"pan_number"`
	VerifiedName   string    `json:"verified_name,omitempty"`

	PANStatus      VerificationStatus      `json:"pan_status"`
	AadhaarStatus  VerificationStatus      `json:"aadhaar_status"`
	BankStatus     VerificationStatus      `json:"bank_status"`
	IdentityStatus IdentityStatus          `json:"identity_status"`
	DocumentStatus DocumentAggregateStatus `json:"document_status"`
	KYCStatus      KYCStatus               `json:"kyc_status"`

	// Aadhaar two-phase session. One slot only: a fresh initiate displaces
	// any previous token.
	SessionToken        string     `json:"-"`
	SessionCreatedAt    *time.Time `json:"-"`
	SessionAttemptCount int        `json:"-"`

	// Field immutability locks. Once a field participated in a successful
	// verification it can never change through profile edits.
	PANLocked     bool `json:"pan_locked"`
	AadhaarLocked bool `json:"aadhaar_locked"`
	DOBLocked     bool `json:"dob_locked"`
	NameLocked    bool `json:"name_locked"`
	BankLocked    bool `json:"bank_locked"`

	PANVerifiedAt     *time.Time `json:"pan_verified_at,omitempty"`
	AadhaarVerifiedAt *time.Time `json:"aadhaar_verified_at,omitempty"`
	BankVerifiedAt    *time.Time `json:"bank_verified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusFor returns the profile's status for the given verification type.
func (p *Profile) StatusFor(t VerificationType) VerificationStatus {
	switch t {
	case TypePAN:
		return p.PANStatus
	case TypeAadhaar:
		return p.AadhaarStatus
	case TypeBank:
		return p.BankStatus
	}
	return StatusPending
}

// SetStatusFor transitions the profile's status for a verification type,
// rejecting illegal transitions (e.g. VERIFIED → anything).
func (p *Profile) SetStatusFor(t VerificationType, to VerificationStatus) error {
	current := p.StatusFor(t)
	if !current.CanTransition(to) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"illegal %s status transition %s -> %s", t, current, to)
	}
	switch t {
	case TypePAN:
		p.PANStatus = to
	case TypeAadhaar:
		p.AadhaarStatus = to
	case TypeBank:
		p.BankStatus = to
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid verification type")
	}
	return nil
}

// RecomputeIdentityStatus derives identity_status: VERIFIED once both PAN
// and Aadhaar are independently VERIFIED. It never regresses.
func (p *Profile) RecomputeIdentityStatus() {
	if p.PANStatus == StatusVerified && p.AadhaarStatus == StatusVerified {
		p.IdentityStatus = IdentityVerified
	}
}

// RecomputeKYCStatus derives kyc_status and reports whether it flipped to
// COMPLETED on this call. COMPLETED is terminal, so the flip happens at
// most once regardless of the order in which the conditions became true.
func (p *Profile) RecomputeKYCStatus() bool {
	if p.KYCStatus == KYCCompleted {
		return false
	}
	if p.PANStatus == StatusVerified &&
		p.AadhaarStatus == StatusVerified &&
		p.BankStatus == StatusVerified &&
		p.DocumentStatus == DocumentsApproved {
		p.KYCStatus = KYCCompleted
		return true
	}
	return false
}

// HasActiveSession reports whether an initiate token exists and has not
// outlived its TTL at now.
func (p *Profile) HasActiveSession(now time.Time, ttl time.Duration) bool {
	if p.SessionToken == "" || p.SessionCreatedAt == nil {
		return false
	}
	return now.Sub(*p.SessionCreatedAt) <= ttl
}

// SessionExpired reports whether a token exists but its TTL has elapsed.
func (p *Profile) SessionExpired(now time.Time, ttl time.Duration) bool {
	if p.SessionToken == "" || p.SessionCreatedAt == nil {
		return false
	}
	return now.Sub(*p.SessionCreatedAt) > ttl
}

// StartSession installs a fresh token, displacing any previous one.
func (p *Profile) StartSession(token string, now time.Time) {
	p.SessionToken = token
	created := now
	p.SessionCreatedAt = &created
	p.SessionAttemptCount = 0
}

// ClearSession drops the session so the next try must re-initiate.
func (p *Profile) ClearSession() {
	p.SessionToken = ""
	p.SessionCreatedAt = nil
	p.SessionAttemptCount = 0
}

// LockedFieldChanged reports which locked field an update would touch,
// empty string if none. Callers reject edits to locked fields outright.
func (p *Profile) LockedFieldChanged(fullName, panNumber, aadhaarNumber string, dob time.Time) string {
	switch {
	case p.NameLocked && fullName != "" && fullName != p.FullName:
		return "full_name"
	case p.PANLocked && panNumber != "" && panNumber != p.PANNumber:
		return "pan_number"
	case p.AadhaarLocked && aadhaarNumber != "" && aadhaarNumber != p.AadhaarNumber:
		return "aadhaar_number"
	case p.DOBLocked && !dob.IsZero() && !dob.Equal(p.DOB):
		return "dob"
	}
	return ""
}
