package models

// VerificationType identifies one of the three independent identity checks.
type VerificationType string

const (
	TypePAN     VerificationType = "PAN"
	TypeAadhaar VerificationType = "AADHAAR"
	TypeBank    VerificationType = "BANK"
)

// IsValid checks if the verification type is one of the supported enum values.
func (t VerificationType) IsValid() bool {
	switch t {
	case TypePAN, TypeAadhaar, TypeBank:
		return true
	}
	return false
}

func (t VerificationType) String() string { return string(t) }

// VerificationStatus is the per-type state of a check on a profile.
type VerificationStatus string

const (
	StatusPending  VerificationStatus = "PENDING"
	StatusVerified VerificationStatus = "VERIFIED"
	StatusFailed   VerificationStatus = "FAILED"
	StatusBlocked  VerificationStatus = "BLOCKED"
)

// IsValid checks if the status is one of the supported enum values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// CanTransition reports whether s → to is a legal transition. VERIFIED is
// terminal, and nothing ever returns to PENDING. A BLOCKED type may fail
// again (after the cooldown expires) or verify.
func (s VerificationStatus) CanTransition(to VerificationStatus) bool {
	if !to.IsValid() || to == StatusPending {
		return false
	}
	return s != StatusVerified
}

// IdentityStatus is the composite of the PAN and Aadhaar checks.
type IdentityStatus string

const (
	IdentityPending  IdentityStatus = "PENDING"
	IdentityVerified IdentityStatus = "VERIFIED"
)

// DocumentAggregateStatus summarizes a profile's document set.
type DocumentAggregateStatus string

const (
	DocumentsPending  DocumentAggregateStatus = "PENDING"
	DocumentsUploaded DocumentAggregateStatus = "UPLOADED"
	DocumentsApproved DocumentAggregateStatus = "APPROVED"
)

// KYCStatus is the terminal aggregate flag for the whole onboarding flow.
type KYCStatus string

const (
	KYCIncomplete KYCStatus = "INCOMPLETE"
	KYCCompleted  KYCStatus = "COMPLETED"
)

// DocumentType is one of the five accepted document kinds.
type DocumentType string

const (
	DocAadhaarFront  DocumentType = "AADHAAR_FRONT"
	DocAadhaarBack   DocumentType = "AADHAAR_BACK"
	DocPANCard       DocumentType = "PAN_CARD"
	DocSalarySlip    DocumentType = "SALARY_SLIP"
	DocBankStatement DocumentType = "BANK_STATEMENT"
)

// RequiredIdentityDocuments must all be verified or approved before the
// document set can be approved.
var RequiredIdentityDocuments = []DocumentType{DocAadhaarFront, DocAadhaarBack, DocPANCard}

// IncomeProofDocuments: at least one must be verified or approved.
var IncomeProofDocuments = []DocumentType{DocSalarySlip, DocBankStatement}

// IsValid checks if the document type is one of the supported enum values.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocAadhaarFront, DocAadhaarBack, DocPANCard, DocSalarySlip, DocBankStatement:
		return true
	}
	return false
}

// IsIdentityProof reports whether the kind belongs to the identity set.
func (t DocumentType) IsIdentityProof() bool {
	for _, req := range RequiredIdentityDocuments {
		if t == req {
			return true
		}
	}
	return false
}

// IsIncomeProof reports whether the kind belongs to the income set.
func (t DocumentType) IsIncomeProof() bool {
	for _, inc := range IncomeProofDocuments {
		if t == inc {
			return true
		}
	}
	return false
}

func (t DocumentType) String() string { return string(t) }

// DocumentStatus is the per-document review state.
type DocumentStatus string

const (
	DocUploaded    DocumentStatus = "UPLOADED"
	DocUnderReview DocumentStatus = "UNDER_REVIEW"
	DocVerified    DocumentStatus = "VERIFIED"
	DocApproved    DocumentStatus = "APPROVED"
	DocRejected    DocumentStatus = "REJECTED"
)

// IsValid checks if the document status is one of the supported enum values.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocUploaded, DocUnderReview, DocVerified, DocApproved, DocRejected:
		return true
	}
	return false
}

// IsAccepted reports whether the document counts toward approval.
func (s DocumentStatus) IsAccepted() bool {
	return s == DocVerified || s == DocApproved
}

// CanTransition reports whether s → to is legal. APPROVED is terminal;
// REJECTED can only re-enter the flow through a fresh upload.
func (s DocumentStatus) CanTransition(to DocumentStatus) bool {
	if !to.IsValid() {
		return false
	}
	switch s {
	case DocUploaded:
		return to == DocUnderReview || to == DocVerified || to == DocApproved || to == DocRejected
	case DocUnderReview, DocVerified:
		return to == DocApproved || to == DocRejected
	case DocRejected:
		return to == DocUploaded
	case DocApproved:
		return false
	}
	return false
}
