// Package providers abstracts the verification back ends. Local
// providers answer from the reference registry; external providers call
// the real verification APIs. Both report business failures (no such
// PAN, name mismatch) inside the result, and reserve the error return
// for the provider itself being unreachable, which callers detect via
// sentinel.ErrUnavailable and refund the consumed attempt.
package providers

import (
	"context"
	"time"

	"kycd/internal/kyc/models"
)

// PANResult is the outcome of a tax-ID check.
type PANResult struct {
	Success       bool
	VerifiedName  string
	MatchScore    float64
	FailureReason string
}

// AadhaarResult is the outcome of a national-ID check.
type AadhaarResult struct {
	Success       bool
	VerifiedDOB   string
	FailureReason string
}

// BankResult is the outcome of a bank account check.
type BankResult struct {
	Success       bool
	VerifiedName  string
	MatchScore    float64
	IsActive      bool
	FailureReason string
}

// DocumentResult is the outcome of a document OCR check. Local mode
// extracts nothing and leaves review to an admin.
type DocumentResult struct {
	Success           bool
	ExtractedName     string
	ExtractedIDNumber string
	MatchScore        *float64
	Remarks           string
}

type PANProvider interface {
	Verify(ctx context.Context, panNumber, fullName string) (*PANResult, error)
}

type AadhaarProvider interface {
	// AuthURL returns the consent redirect for the external flow; local
	// mode returns an inert placeholder.
	AuthURL(state string) string
	Verify(ctx context.Context, aadhaarNumber string, dob time.Time, authCode string) (*AadhaarResult, error)
}

type BankProvider interface {
	Verify(ctx context.Context, accountNumber, holderName, bankName, ifsc string) (*BankResult, error)
}

type DocumentProvider interface {
	Verify(ctx context.Context, docType models.DocumentType, blobPath, registeredName string) (*DocumentResult, error)
}

// Set bundles one provider per verification concern.
type Set struct {
	PAN      PANProvider
	Aadhaar  AadhaarProvider
	Bank     BankProvider
	Document DocumentProvider
}
