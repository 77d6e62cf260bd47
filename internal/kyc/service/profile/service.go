// Package profile manages registration and edits of the subject
// aggregate. Fields that participated in a successful verification are
// locked and reject any further change.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"kycd/internal/kyc/models"
	"kycd/internal/kyc/ports"
	dErrors "kycd/pkg/domain-errors"
	"kycd/pkg/platform/sentinel"
	"kycd/pkg/requestcontext"
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

type Service struct {
	profiles ports.ProfileStore
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(profiles ports.ProfileStore, opts ...Option) (*Service, error) {
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}
	svc := &Service{profiles: profiles, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a fresh profile with every verification state at its
// starting value. User ID, email and PAN must all be unclaimed.
func (s *Service) Register(ctx context.Context, req models.RegisterProfileRequest) (*models.Profile, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByUserID(ctx, req.UserID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "KYC profile already exists for user %d", req.UserID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing profile")
	}
	if _, err := s.profiles.GetByEmail(ctx, req.Email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing email")
	}
	if _, err := s.profiles.GetByPANNumber(ctx, req.PANNumber); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "PAN number already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing PAN")
	}

	now := requestcontext.Now(ctx)
	p := &models.Profile{
		UserID:         req.UserID,
		FullName:       req.FullName,
		DOB:            req.DOB,
		Email:          strings.ToLower(req.Email),
		Address:        req.Address,
		EmploymentType: req.EmploymentType,
		MonthlyIncome:  req.MonthlyIncome,
		AadhaarNumber:  req.AadhaarNumber,
		PANNumber:      req.PANNumber,
		PANStatus:      models.StatusPending,
		AadhaarStatus:  models.StatusPending,
		BankStatus:     models.StatusPending,
		IdentityStatus: models.IdentityPending,
		DocumentStatus: models.DocumentsPending,
		KYCStatus:      models.KYCIncomplete,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "profile already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create profile")
	}

	s.logger.Info("profile registered", "user_id", p.UserID, "email", p.Email)
	return p, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	return p, nil
}

// Update applies a partial edit. Zero values leave fields unchanged;
// a change to any locked field is rejected outright.
func (s *Service) Update(ctx context.Context, userID int64, req models.UpdateProfileRequest) (*models.ProfileUpdateResult, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if field := p.LockedFieldChanged(req.FullName, req.PANNumber, req.AadhaarNumber, req.DOB); field != "" {
		return nil, dErrors.Newf(dErrors.CodeForbidden,
			"%s cannot be changed after verification", field)
	}

	var updated []string
	if req.FullName != "" && req.FullName != p.FullName {
		p.FullName = req.FullName
		updated = append(updated, "full_name")
	}
	if req.PANNumber != "" && req.PANNumber != p.PANNumber {
		if !panPattern.MatchString(req.PANNumber) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "PAN number format is invalid")
		}
		if _, err := s.profiles.GetByPANNumber(ctx, req.PANNumber); err == nil {
			return nil, dErrors.New(dErrors.CodeConflict, "PAN number already in use by another account")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing PAN")
		}
		p.PANNumber = req.PANNumber
		updated = append(updated, "pan_number")
	}
	if req.AadhaarNumber != "" && req.AadhaarNumber != p.AadhaarNumber {
		if len(req.AadhaarNumber) != 12 {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "Aadhaar number must be 12 digits")
		}
		p.AadhaarNumber = req.AadhaarNumber
		updated = append(updated, "aadhaar_number")
	}
	if !req.DOB.IsZero() && !req.DOB.Equal(p.DOB) {
		p.DOB = req.DOB
		updated = append(updated, "dob")
	}
	if req.Address != "" && req.Address != p.Address {
		p.Address = req.Address
		updated = append(updated, "address")
	}
	if req.EmploymentType != "" && req.EmploymentType != p.EmploymentType {
		p.EmploymentType = req.EmploymentType
		updated = append(updated, "employment_type")
	}
	if req.MonthlyIncome != nil && *req.MonthlyIncome != p.MonthlyIncome {
		p.MonthlyIncome = *req.MonthlyIncome
		updated = append(updated, "monthly_income")
	}

	if len(updated) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no fields provided for update")
	}

	p.UpdatedAt = requestcontext.Now(ctx)
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist profile update")
	}

	s.logger.Info("profile updated", "user_id", userID, "fields", updated)
	return &models.ProfileUpdateResult{
		Message:       "Profile updated successfully",
		UserID:        p.UserID,
		Email:         p.Email,
		UpdatedFields: updated,
	}, nil
}

func validateRegistration(req models.RegisterProfileRequest) error {
	switch {
	case req.UserID <= 0:
		return dErrors.New(dErrors.CodeInvalidInput, "user_id must be positive")
	case strings.TrimSpace(req.FullName) == "":
		return dErrors.New(dErrors.CodeInvalidInput, "full_name is required")
	case !strings.Contains(req.Email, "@"):
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	case req.DOB.IsZero():
		return dErrors.New(dErrors.CodeInvalidInput, "dob is required")
	case !panPattern.MatchString(req.PANNumber):
		return dErrors.New(dErrors.CodeInvalidInput, "PAN number format is invalid")
	case len(req.AadhaarNumber) != 12:
		return dErrors.New(dErrors.CodeInvalidInput, "Aadhaar number must be 12 digits")
	}
	return nil
}
