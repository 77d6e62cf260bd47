package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"kycd/internal/kyc/models"
	dErrors "kycd/pkg/domain-errors"
	"kycd/pkg/requestcontext"
)

// The national ID check is a two-phase protocol: initiate opens a
// short-lived session and charges the attempt, verify completes it.
// Each initiate displaces the previous token, so at most one session is
// live per profile. A failed verify clears the session; the next try
// must re-initiate and is charged then.

// InitiateNationalID opens an Aadhaar session. Requires PAN VERIFIED
// first, consumes one attempt, and returns a fresh session token.
func (s *Service) InitiateNationalID(ctx context.Context, userID int64) (*models.SessionStart, error) {
	ctx, span := s.tracer.Start(ctx, "verification.initiate_national_id")
	defer span.End()

	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.PANStatus != models.StatusVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "complete PAN verification before Aadhaar verification")
	}
	if p.AadhaarStatus == models.StatusVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "Aadhaar is already verified")
	}

	now := requestcontext.Now(ctx)
	policy := s.cfg.Aadhaar

	tracker, err := s.trackers.BeginAttempt(ctx, p.Email, models.TypeAadhaar, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "begin initiate attempt")
	}
	if tracker.IsLockedAt(now) {
		return nil, s.lockedError(models.TypeAadhaar, tracker, policy, now)
	}
	s.metrics.IncrementAttempts(string(models.TypeAadhaar))

	if tracker.AttemptsCount > policy.MaxAttempts {
		if err := s.trackers.Lock(ctx, p.Email, models.TypeAadhaar, now.Add(policy.Cooldown)); err != nil {
			s.logger.Error("lock after over-budget initiate", "user_id", userID, "error", err)
		}
		s.metrics.IncrementLockouts(string(models.TypeAadhaar))
		p.ClearSession()
		p.UpdatedAt = now
		if err := s.profiles.Update(ctx, p); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "clear session after lock")
		}
		return nil, dErrors.Newf(dErrors.CodeLocked,
			"Maximum attempts (%d) exceeded. Aadhaar verification blocked for %.0f hours.",
			policy.MaxAttempts, policy.Cooldown.Hours())
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate session token")
	}
	p.StartSession(token, now)
	p.UpdatedAt = now
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist session")
	}

	used := tracker.AttemptsCount
	remaining := policy.MaxAttempts - used
	s.logger.Info("aadhaar session started",
		"user_id", userID, "attempt", used, "max", policy.MaxAttempts)

	start := &models.SessionStart{
		Message: fmt.Sprintf(
			"Aadhaar session started. Token valid for %.0f minutes. Attempt %d/%d. %d attempt(s) remaining before block.",
			s.cfg.SessionTokenTTL.Minutes(), used, policy.MaxAttempts, remaining),
		SessionToken:      token,
		TokenExpiresIn:    fmt.Sprintf("%.0f minutes", s.cfg.SessionTokenTTL.Minutes()),
		AttemptsUsed:      used,
		AttemptsRemaining: remaining,
	}
	if authURL := s.providers.Aadhaar.AuthURL(fmt.Sprintf("%d", userID)); authURL != "" {
		start.AuthURL = authURL
	}
	return start, nil
}

// VerifyNationalID completes the session opened by InitiateNationalID.
// The attempt was charged at initiate; verify only validates the session
// and consults the provider. Any failure clears the session.
func (s *Service) VerifyNationalID(ctx context.Context, userID int64, req models.VerifyNationalIDRequest) (*models.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.verify_national_id")
	defer span.End()

	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.PANStatus != models.StatusVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "complete PAN verification first")
	}
	if p.AadhaarStatus == models.StatusVerified {
		return &models.VerificationResult{
			Message:        "Aadhaar already verified",
			Status:         models.StatusVerified,
			IdentityStatus: p.IdentityStatus,
			KYCStatus:      p.KYCStatus,
			NextStep:       "Proceed to bank account verification",
		}, nil
	}

	now := requestcontext.Now(ctx)
	policy := s.cfg.Aadhaar

	tracker, err := s.trackers.GetOrCreate(ctx, p.Email, models.TypeAadhaar, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load tracker")
	}
	if tracker.IsLockedAt(now) {
		return nil, s.lockedError(models.TypeAadhaar, tracker, policy, now)
	}

	if err := s.validateSession(ctx, p, req.SessionToken, now); err != nil {
		return nil, err
	}

	// Spend the token before calling the provider. The conditional
	// consume is the only winner selection: of two concurrent verifies
	// with the same token, exactly one proceeds.
	consumed, err := s.profiles.ConsumeSession(ctx, p.UserID, req.SessionToken)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "consume session token")
	}
	if !consumed {
		return nil, dErrors.New(dErrors.CodeSessionInvalid,
			"invalid or expired session token, initiate again")
	}
	p.ClearSession()

	if len(p.AadhaarNumber) != 12 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid Aadhaar number in profile")
	}

	// Attempt number comes from the initiate that opened this session.
	attemptNumber := tracker.AttemptsCount
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	return s.run(ctx, p, attempt{
		vtype:         models.TypeAadhaar,
		identifier:    p.AadhaarNumber,
		preCharged:    true,
		attemptNumber: attemptNumber,
		call: func(ctx context.Context) (*outcome, error) {
			res, err := s.providers.Aadhaar.Verify(ctx, p.AadhaarNumber, p.DOB, req.AuthCode)
			if err != nil {
				return nil, err
			}
			return &outcome{
				success:       res.Success,
				failureReason: res.FailureReason,
				verifiedDOB:   res.VerifiedDOB,
			}, nil
		},
		applySuccess: func(p *models.Profile, out *outcome, now time.Time) {
			p.AadhaarLocked = true
			p.DOBLocked = true
			verifiedAt := now
			p.AadhaarVerifiedAt = &verifiedAt
			p.ClearSession()
		},
		decorateLog: func(l *models.VerificationLog, out *outcome) {
			l.SubmittedDOB = p.DOB.Format("2006-01-02")
		},
		// A used session never survives a failure: the next try must
		// re-initiate and is charged then.
		onFailure: func(p *models.Profile) {
			p.ClearSession()
		},
		nextStep: "Proceed to bank account verification",
	})
}

// validateSession checks the token chain: a session must exist, be
// within TTL, and match the presented token. Expiry clears the stale
// session so the profile is clean for the next initiate.
func (s *Service) validateSession(ctx context.Context, p *models.Profile, token string, now time.Time) error {
	if p.SessionToken == "" {
		return dErrors.New(dErrors.CodeSessionInvalid,
			"no active Aadhaar session, initiate first")
	}
	if p.SessionExpired(now, s.cfg.SessionTokenTTL) {
		p.ClearSession()
		p.UpdatedAt = now
		if err := s.profiles.Update(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "clear expired session")
		}
		return dErrors.Newf(dErrors.CodeSessionInvalid,
			"session token expired (valid %.0f minutes), initiate again",
			s.cfg.SessionTokenTTL.Minutes())
	}
	if p.SessionToken != token {
		return dErrors.New(dErrors.CodeSessionInvalid,
			"invalid or expired session token, initiate again")
	}
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
