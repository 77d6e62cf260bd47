package providers

import (
	"context"
	"errors"
	"strings"
	"time"

	"kycd/internal/kyc/models"
	"kycd/internal/kyc/namematch"
	"kycd/internal/refdata"
	"kycd/pkg/platform/sentinel"
)

// LocalPANProvider answers tax-ID checks from the reference registry.
type LocalPANProvider struct {
	registry  refdata.Store
	threshold float64
}

func NewLocalPAN(registry refdata.Store, threshold float64) *LocalPANProvider {
	return &LocalPANProvider{registry: registry, threshold: threshold}
}

func (p *LocalPANProvider) Verify(ctx context.Context, panNumber, fullName string) (*PANResult, error) {
	record, err := p.registry.GetByPAN(ctx, panNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &PANResult{FailureReason: "PAN not found in records"}, nil
		}
		return nil, err
	}

	score := namematch.Score(fullName, record.FullName)
	if score < p.threshold {
		return &PANResult{
			VerifiedName:  record.FullName,
			MatchScore:    score,
			FailureReason: "Name mismatch",
		}, nil
	}
	return &PANResult{Success: true, VerifiedName: record.FullName, MatchScore: score}, nil
}

// LocalAadhaarProvider answers national-ID checks from the reference
// registry. No consent redirect exists locally, so AuthURL is inert.
type LocalAadhaarProvider struct {
	registry refdata.Store
}

func NewLocalAadhaar(registry refdata.Store) *LocalAadhaarProvider {
	return &LocalAadhaarProvider{registry: registry}
}

// AuthURL returns empty: no consent redirect exists in local mode.
func (p *LocalAadhaarProvider) AuthURL(string) string {
	return ""
}

func (p *LocalAadhaarProvider) Verify(ctx context.Context, aadhaarNumber string, dob time.Time, _ string) (*AadhaarResult, error) {
	record, err := p.registry.GetByAadhaar(ctx, aadhaarNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &AadhaarResult{FailureReason: "Aadhaar number not found in records"}, nil
		}
		return nil, err
	}

	if !sameDate(record.DOB, dob) {
		return &AadhaarResult{
			VerifiedDOB:   record.DOB.Format("2006-01-02"),
			FailureReason: "Date of birth does not match Aadhaar records",
		}, nil
	}
	return &AadhaarResult{Success: true, VerifiedDOB: record.DOB.Format("2006-01-02")}, nil
}

// LocalBankProvider answers bank account checks from the reference
// registry, validating IFSC, bank name, holder name and account state.
type LocalBankProvider struct {
	registry  refdata.Store
	threshold float64
}

func NewLocalBank(registry refdata.Store, threshold float64) *LocalBankProvider {
	return &LocalBankProvider{registry: registry, threshold: threshold}
}

func (p *LocalBankProvider) Verify(ctx context.Context, accountNumber, holderName, bankName, ifsc string) (*BankResult, error) {
	record, err := p.registry.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &BankResult{FailureReason: "Bank account number not found in records"}, nil
		}
		return nil, err
	}

	if !strings.EqualFold(record.IFSC, ifsc) {
		return &BankResult{
			VerifiedName:  record.AccountHolderName,
			IsActive:      record.IsActive,
			FailureReason: "IFSC code mismatch",
		}, nil
	}
	if !strings.EqualFold(strings.TrimSpace(record.BankName), strings.TrimSpace(bankName)) {
		return &BankResult{
			VerifiedName:  record.AccountHolderName,
			IsActive:      record.IsActive,
			FailureReason: "Bank name mismatch",
		}, nil
	}

	score := namematch.Score(holderName, record.AccountHolderName)
	if score < p.threshold {
		return &BankResult{
			VerifiedName:  record.AccountHolderName,
			MatchScore:    score,
			IsActive:      record.IsActive,
			FailureReason: "Account holder name mismatch",
		}, nil
	}
	if !record.IsActive {
		return &BankResult{
			VerifiedName:  record.AccountHolderName,
			MatchScore:    score,
			FailureReason: "Bank account is inactive or closed",
		}, nil
	}
	return &BankResult{
		Success:      true,
		VerifiedName: record.AccountHolderName,
		MatchScore:   score,
		IsActive:     true,
	}, nil
}

// LocalDocumentProvider performs no OCR: the upload succeeds as-is and
// waits for admin review.
type LocalDocumentProvider struct{}

func NewLocalDocument() *LocalDocumentProvider {
	return &LocalDocumentProvider{}
}

func (p *LocalDocumentProvider) Verify(context.Context, models.DocumentType, string, string) (*DocumentResult, error) {
	return &DocumentResult{Success: true}, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
