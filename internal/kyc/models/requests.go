package models

import "time"

// RegisterProfileRequest creates the subject's profile. UserID is the
// platform account the KYC profile attaches to.
type RegisterProfileRequest struct {
	UserID         int64     `json:"user_id"`
	FullName       string    `json:"full_name"`
	DOB            time.Time `json:"dob"`
	Email          string    `json:"email"`
	Address        string    `json:"address"`
	EmploymentType string    `json:"employment_type"`
	MonthlyIncome  float64   `json:"monthly_income"`
	PANNumber      string    `json:"pan_number"`
	AadhaarNumber  string    `json:"aadhaar_number"`
}

// UpdateProfileRequest edits profile fields. Zero values mean "leave
// unchanged"; locked fields reject any change.
type UpdateProfileRequest struct {
	FullName       string    `json:"full_name,omitempty"`
	DOB            time.Time `json:"dob,omitempty"`
	Address        string    `json:"address,omitempty"`
	EmploymentType string    `json:"employment_type,omitempty"`
	MonthlyIncome  *float64  `json:"monthly_income,omitempty"`
	PANNumber      string    `json:"pan_number,omitempty"`
	AadhaarNumber  string    `json:"aadhaar_number,omitempty"`
}

// VerifyBankRequest carries the account details for a bank attempt.
type VerifyBankRequest struct {
	AccountNumber     string `json:"account_number"`
	AccountHolderName string `json:"account_holder_name"`
	BankName          string `json:"bank_name"`
	IFSC              string `json:"ifsc"`
}

// VerifyNationalIDRequest completes an Aadhaar session.
type VerifyNationalIDRequest struct {
	SessionToken string `json:"session_token"`
	AuthCode     string `json:"auth_code,omitempty"`
}

// ReviewDocumentRequest is an admin approve/reject decision.
type ReviewDocumentRequest struct {
	DocumentID   string `json:"document_id"`
	Action       string `json:"action"` // APPROVE or REJECT
	AdminRemarks string `json:"admin_remarks,omitempty"`
	ReviewedBy   string `json:"reviewed_by"`
}
