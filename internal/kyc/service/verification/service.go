// Package verification implements the staged identity checks: tax ID,
// national ID (via a two-phase session) and bank account. One generic
// attempt pipeline drives all three types; the per-type operations
// supply the identifier, the provider call and the success side
// effects.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kycd/internal/kyc/config"
	"kycd/internal/kyc/models"
	"kycd/internal/kyc/ports"
	"kycd/internal/kyc/providers"
	"kycd/internal/platform/metrics"
	dErrors "kycd/pkg/domain-errors"
	"kycd/pkg/platform/sentinel"
	"kycd/pkg/requestcontext"
)

type Service struct {
	profiles  ports.ProfileStore
	trackers  ports.TrackerStore
	logs      ports.VerificationLogStore
	providers *providers.Set

	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(profiles ports.ProfileStore, trackers ports.TrackerStore, logs ports.VerificationLogStore, providerSet *providers.Set, opts ...Option) (*Service, error) {
	if profiles == nil || trackers == nil || logs == nil || providerSet == nil {
		return nil, errors.New("profile store, tracker store, log store and providers are required")
	}

	defaultCfg := config.DefaultConfig()
	svc := &Service{
		profiles:  profiles,
		trackers:  trackers,
		logs:      logs,
		providers: providerSet,
		cfg:       &defaultCfg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("kycd/verification"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

func (s *Service) policyFor(t models.VerificationType) config.AttemptPolicy {
	switch t {
	case models.TypeAadhaar:
		return s.cfg.Aadhaar
	case models.TypeBank:
		return s.cfg.Bank
	default:
		return s.cfg.PAN
	}
}

// outcome is the provider's verdict, normalized across types.
type outcome struct {
	success       bool
	failureReason string
	verifiedName  string
	verifiedDOB   string
	matchScore    float64
}

// attempt parameterizes the generic pipeline for one verification type.
type attempt struct {
	vtype      models.VerificationType
	identifier string

	// preCharged marks flows where the attempt was already consumed
	// earlier (national ID charges at initiate, not at verify).
	preCharged    bool
	attemptNumber int

	call         func(ctx context.Context) (*outcome, error)
	applySuccess func(p *models.Profile, out *outcome, now time.Time)
	decorateLog  func(l *models.VerificationLog, out *outcome)
	onFailure    func(p *models.Profile)
	nextStep     string
}

// run executes the shared attempt pipeline: uniqueness, lock check,
// attempt accounting, provider call, and outcome application. The
// profile passed in is mutated and persisted.
func (s *Service) run(ctx context.Context, p *models.Profile, a attempt) (*models.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.run",
		trace.WithAttributes(attribute.String("verification.type", string(a.vtype))))
	defer span.End()

	now := requestcontext.Now(ctx)
	policy := s.policyFor(a.vtype)
	log := s.logger.With("user_id", p.UserID, "verification_type", a.vtype)

	if err := s.checkUniqueness(ctx, a.vtype, a.identifier, p.UserID); err != nil {
		return nil, err
	}

	attemptNumber := a.attemptNumber
	if !a.preCharged {
		tracker, err := s.trackers.BeginAttempt(ctx, p.Email, a.vtype, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "begin verification attempt")
		}
		if tracker.IsLockedAt(now) {
			return nil, s.lockedError(a.vtype, tracker, policy, now)
		}
		attemptNumber = tracker.AttemptsCount
		s.metrics.IncrementAttempts(string(a.vtype))
	}
	log.Info("verification attempt", "attempt", attemptNumber, "max", policy.MaxAttempts)

	// The atomic increment should make this unreachable, but a lock that
	// failed to apply on a previous BLOCKED outcome could leave the count
	// above budget. Lock now rather than calling the provider again.
	if attemptNumber > policy.MaxAttempts {
		if err := s.trackers.Lock(ctx, p.Email, a.vtype, now.Add(policy.Cooldown)); err != nil {
			log.Error("lock after over-budget attempt", "error", err)
		}
		s.metrics.IncrementLockouts(string(a.vtype))
		return nil, dErrors.Newf(dErrors.CodeLocked,
			"Maximum attempts (%d) exceeded. Blocked for %.0f hours.",
			policy.MaxAttempts, policy.Cooldown.Hours())
	}

	out, err := a.call(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			// The provider never saw the request in a chargeable way;
			// refund the attempt and write no log.
			if !a.preCharged {
				if _, derr := s.trackers.Decrement(ctx, p.Email, a.vtype); derr != nil {
					log.Error("refund attempt after provider outage", "error", derr)
				}
			}
			log.Warn("verification provider unavailable", "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable,
				"verification service temporarily unavailable, attempt not counted")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification provider call")
	}

	if !out.success {
		return nil, s.applyFailure(ctx, p, a, out, attemptNumber, policy, now)
	}
	return s.applySuccess(ctx, p, a, out, attemptNumber, now)
}

// checkUniqueness rejects identifiers already verified by another
// subject. The check reads the append-only log, not profile fields, so
// it holds even after the other profile's edits.
func (s *Service) checkUniqueness(ctx context.Context, vtype models.VerificationType, identifier string, userID int64) error {
	existing, err := s.logs.GetVerifiedByIdentifier(ctx, vtype, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "uniqueness check")
	}
	if existing.UserID != userID {
		return dErrors.Newf(dErrors.CodeConflict,
			"this %s is already linked to another account", vtype)
	}
	return nil
}

func (s *Service) lockedError(vtype models.VerificationType, tracker *models.AttemptTracker, policy config.AttemptPolicy, now time.Time) error {
	remaining := tracker.RemainingLock(now)
	return dErrors.Newf(dErrors.CodeLocked,
		"%s verification is blocked for %.1f more hour(s) due to too many failed attempts",
		vtype, remaining.Hours())
}

// applyFailure records the failed attempt, moves the profile status to
// FAILED or BLOCKED, and locks the tracker when the budget is spent.
// The returned error carries the caller-facing message.
func (s *Service) applyFailure(ctx context.Context, p *models.Profile, a attempt, out *outcome, attemptNumber int, policy config.AttemptPolicy, now time.Time) error {
	log := s.logger.With("user_id", p.UserID, "verification_type", a.vtype)

	status := models.StatusFailed
	blocked := attemptNumber >= policy.MaxAttempts
	if blocked {
		status = models.StatusBlocked
		if err := s.trackers.Lock(ctx, p.Email, a.vtype, now.Add(policy.Cooldown)); err != nil {
			log.Error("lock tracker after final failure", "error", err)
		}
		s.metrics.IncrementLockouts(string(a.vtype))
	}

	row, err := models.NewVerificationLog(p.UserID, a.vtype, a.identifier, status, attemptNumber, now)
	if err != nil {
		return err
	}
	row.VerifiedName = out.verifiedName
	row.VerifiedDOB = out.verifiedDOB
	row.MatchScore = out.matchScore
	row.FailureReason = out.failureReason
	if a.decorateLog != nil {
		a.decorateLog(row, out)
	}
	if err := s.logs.Append(ctx, row); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append failure log")
	}

	if err := p.SetStatusFor(a.vtype, status); err != nil {
		return err
	}
	if a.onFailure != nil {
		a.onFailure(p)
	}
	p.UpdatedAt = now
	if err := s.profiles.Update(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist failed verification")
	}

	s.metrics.IncrementResult(string(a.vtype), string(status))
	log.Warn("verification failed", "reason", out.failureReason, "attempt", attemptNumber, "blocked", blocked)

	if blocked {
		return dErrors.Newf(dErrors.CodeLocked,
			"%s. Maximum attempts (%d) reached. Blocked for %.0f hours.",
			out.failureReason, policy.MaxAttempts, policy.Cooldown.Hours())
	}
	remaining := policy.MaxAttempts - attemptNumber
	return dErrors.Newf(dErrors.CodeVerificationFailed,
		"%s. %d attempt(s) remaining.", out.failureReason, remaining)
}

// applySuccess flips the type status to VERIFIED, applies the per-type
// side effects (field locks, verified names), resets the tracker, and
// recomputes the derived statuses.
func (s *Service) applySuccess(ctx context.Context, p *models.Profile, a attempt, out *outcome, attemptNumber int, now time.Time) (*models.VerificationResult, error) {
	log := s.logger.With("user_id", p.UserID, "verification_type", a.vtype)

	if err := p.SetStatusFor(a.vtype, models.StatusVerified); err != nil {
		return nil, err
	}
	if a.applySuccess != nil {
		a.applySuccess(p, out, now)
	}
	p.RecomputeIdentityStatus()
	completed := p.RecomputeKYCStatus()

	row, err := models.NewVerificationLog(p.UserID, a.vtype, a.identifier, models.StatusVerified, attemptNumber, now)
	if err != nil {
		return nil, err
	}
	row.VerifiedName = out.verifiedName
	row.VerifiedDOB = out.verifiedDOB
	row.MatchScore = out.matchScore
	if a.decorateLog != nil {
		a.decorateLog(row, out)
	}
	if err := s.logs.Append(ctx, row); err != nil {
		// The partial unique index on verified rows catches a racing
		// verify of the same identifier that the earlier lookup missed.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict,
				"this %s is already linked to another account", a.vtype)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "append success log")
	}

	if err := s.trackers.Reset(ctx, p.Email, a.vtype); err != nil {
		log.Error("reset tracker after success", "error", err)
	}

	p.UpdatedAt = now
	if err := s.profiles.Update(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist verified profile")
	}

	s.metrics.IncrementResult(string(a.vtype), string(models.StatusVerified))
	if completed {
		s.metrics.IncrementKYCCompleted()
		log.Info("kyc completed")
	}
	log.Info("verification succeeded", "attempt", attemptNumber)

	return &models.VerificationResult{
		Message:        fmt.Sprintf("%s verified successfully", a.vtype),
		Status:         models.StatusVerified,
		VerifiedName:   out.verifiedName,
		MatchScore:     out.matchScore,
		IdentityStatus: p.IdentityStatus,
		KYCStatus:      p.KYCStatus,
		NextStep:       a.nextStep,
	}, nil
}

func (s *Service) loadProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load profile")
	}
	return p, nil
}

// VerifyTaxID runs a PAN attempt against the profile's registered PAN
// number and full name. Idempotent once VERIFIED.
func (s *Service) VerifyTaxID(ctx context.Context, userID int64) (*models.VerificationResult, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.PANStatus == models.StatusVerified {
		return &models.VerificationResult{
			Message:        "PAN already verified",
			Status:         models.StatusVerified,
			VerifiedName:   p.VerifiedName,
			IdentityStatus: p.IdentityStatus,
			KYCStatus:      p.KYCStatus,
			NextStep:       "Proceed to Aadhaar verification",
		}, nil
	}
	if p.PANNumber == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no PAN number on profile")
	}

	return s.run(ctx, p, attempt{
		vtype:      models.TypePAN,
		identifier: p.PANNumber,
		call: func(ctx context.Context) (*outcome, error) {
			res, err := s.providers.PAN.Verify(ctx, p.PANNumber, p.FullName)
			if err != nil {
				return nil, err
			}
			return &outcome{
				success:       res.Success,
				failureReason: res.FailureReason,
				verifiedName:  res.VerifiedName,
				matchScore:    res.MatchScore,
			}, nil
		},
		applySuccess: func(p *models.Profile, out *outcome, now time.Time) {
			p.VerifiedName = out.verifiedName
			p.PANLocked = true
			p.NameLocked = true
			verifiedAt := now
			p.PANVerifiedAt = &verifiedAt
		},
		decorateLog: func(l *models.VerificationLog, out *outcome) {
			l.SubmittedName = p.FullName
		},
		nextStep: "Proceed to Aadhaar verification",
	})
}

// VerifyBank runs a bank account attempt with caller-supplied account
// details.
func (s *Service) VerifyBank(ctx context.Context, userID int64, req models.VerifyBankRequest) (*models.VerificationResult, error) {
	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.BankStatus == models.StatusVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "bank account already verified")
	}
	if p.IdentityStatus != models.IdentityVerified {
		return nil, dErrors.New(dErrors.CodePrecondition, "complete identity verification (PAN and Aadhaar) before bank verification")
	}
	if req.AccountNumber == "" || req.AccountHolderName == "" || req.IFSC == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account number, holder name and IFSC are required")
	}

	return s.run(ctx, p, attempt{
		vtype:      models.TypeBank,
		identifier: req.AccountNumber,
		call: func(ctx context.Context) (*outcome, error) {
			res, err := s.providers.Bank.Verify(ctx, req.AccountNumber, req.AccountHolderName, req.BankName, req.IFSC)
			if err != nil {
				return nil, err
			}
			return &outcome{
				success:       res.Success,
				failureReason: res.FailureReason,
				verifiedName:  res.VerifiedName,
				matchScore:    res.MatchScore,
			}, nil
		},
		applySuccess: func(p *models.Profile, out *outcome, now time.Time) {
			p.BankLocked = true
			verifiedAt := now
			p.BankVerifiedAt = &verifiedAt
		},
		decorateLog: func(l *models.VerificationLog, out *outcome) {
			l.SubmittedName = req.AccountHolderName
			l.BankName = req.BankName
			l.IFSC = req.IFSC
		},
		nextStep: "Proceed to document upload",
	})
}

// Status returns the profile's verification surface.
func (s *Service) Status(ctx context.Context, userID int64) (*models.Profile, error) {
	return s.loadProfile(ctx, userID)
}
