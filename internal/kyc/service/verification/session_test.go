package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycd/internal/kyc/config"
	"kycd/internal/kyc/models"
	dErrors "kycd/pkg/domain-errors"
)

func configForTest() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

type SessionSuite struct {
	ServiceSuite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) verifyPANFor(p *models.Profile) {
	_, err := s.svc.VerifyTaxID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)
}

func (s *SessionSuite) TestInitiate_RequiresTaxIDFirst() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))

	_, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
}

func (s *SessionSuite) TestInitiateThenVerify_Succeeds() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	start, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)
	s.NotEmpty(start.SessionToken)
	s.Equal(1, start.AttemptsUsed)
	s.Equal(2, start.AttemptsRemaining)

	res, err := s.svc.VerifyNationalID(s.ctxAt(s.now.Add(time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, res.Status)
	s.Equal(models.IdentityVerified, res.IdentityStatus)

	stored, perr := s.profiles.GetByUserID(context.Background(), p.UserID)
	s.Require().NoError(perr)
	s.True(stored.AadhaarLocked)
	s.True(stored.DOBLocked)
	s.Empty(stored.SessionToken, "session must be cleared on success")

	tracker, terr := s.trackers.Get(context.Background(), p.Email, models.TypeAadhaar)
	s.Require().NoError(terr)
	s.Equal(0, tracker.AttemptsCount)

	// Attempt number in the log comes from the initiate charge.
	logs, lerr := s.logs.ListByUser(context.Background(), p.UserID, models.TypeAadhaar)
	s.Require().NoError(lerr)
	s.Require().Len(logs, 1)
	s.Equal(1, logs[0].AttemptNumber)
}

func (s *SessionSuite) TestVerify_RequiresActiveSession() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	_, err := s.svc.VerifyNationalID(s.ctxAt(s.now), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: "anything"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *SessionSuite) TestVerify_WrongTokenRejected() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	_, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)

	_, err = s.svc.VerifyNationalID(s.ctxAt(s.now), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: "not-the-token"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))

	// The session survives a wrong-token presentation; no attempt is
	// consumed beyond the initiate.
	tracker, terr := s.trackers.Get(context.Background(), p.Email, models.TypeAadhaar)
	s.Require().NoError(terr)
	s.Equal(1, tracker.AttemptsCount)
}

func (s *SessionSuite) TestVerify_ExpiredTokenClearsSession() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	start, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)

	late := s.now.Add(11 * time.Minute)
	_, err = s.svc.VerifyNationalID(s.ctxAt(late), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
	s.Contains(err.Error(), "expired")

	stored, perr := s.profiles.GetByUserID(context.Background(), p.UserID)
	s.Require().NoError(perr)
	s.Empty(stored.SessionToken)
}

func (s *SessionSuite) TestVerify_FailureClearsSessionAndTokenIsSingleUse() {
	// Wrong DOB on the profile makes every verify fail.
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	start, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)

	_, err = s.svc.VerifyNationalID(s.ctxAt(s.now.Add(time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
	s.Contains(err.Error(), "2 attempt(s) remaining")

	// Replaying the same token finds no session.
	_, err = s.svc.VerifyNationalID(s.ctxAt(s.now.Add(2*time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *SessionSuite) TestThirdFailedCycleBlocks() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1991, 1, 1, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	at := s.now
	for i := 1; i <= 2; i++ {
		start, err := s.svc.InitiateNationalID(s.ctxAt(at), p.UserID)
		s.Require().NoError(err)
		_, err = s.svc.VerifyNationalID(s.ctxAt(at.Add(time.Minute)), p.UserID,
			models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
		at = at.Add(5 * time.Minute)
	}

	start, err := s.svc.InitiateNationalID(s.ctxAt(at), p.UserID)
	s.Require().NoError(err)
	s.Equal(3, start.AttemptsUsed)

	_, err = s.svc.VerifyNationalID(s.ctxAt(at.Add(time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))

	stored, perr := s.profiles.GetByUserID(context.Background(), p.UserID)
	s.Require().NoError(perr)
	s.Equal(models.StatusBlocked, stored.AadhaarStatus)

	// Further initiates are rejected while the cooldown holds.
	_, err = s.svc.InitiateNationalID(s.ctxAt(at.Add(2*time.Minute)), p.UserID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeLocked))
}

func (s *SessionSuite) TestTokenConsumedAtMostOnce() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	start, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)

	// The conditional consume admits exactly one spender per token,
	// regardless of interleaving.
	consumed, err := s.profiles.ConsumeSession(context.Background(), p.UserID, start.SessionToken)
	s.Require().NoError(err)
	s.True(consumed)

	consumed, err = s.profiles.ConsumeSession(context.Background(), p.UserID, start.SessionToken)
	s.Require().NoError(err)
	s.False(consumed)

	_, err = s.svc.VerifyNationalID(s.ctxAt(s.now.Add(time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: start.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))
}

func (s *SessionSuite) TestFreshInitiateDisplacesPreviousToken() {
	p := s.seedProfile(1, seedName, seedPAN, seedAadhaar, time.Date(1990, 3, 12, 0, 0, 0, 0, time.UTC))
	s.verifyPANFor(p)

	first, err := s.svc.InitiateNationalID(s.ctxAt(s.now), p.UserID)
	s.Require().NoError(err)
	second, err := s.svc.InitiateNationalID(s.ctxAt(s.now.Add(time.Minute)), p.UserID)
	s.Require().NoError(err)
	s.NotEqual(first.SessionToken, second.SessionToken)

	_, err = s.svc.VerifyNationalID(s.ctxAt(s.now.Add(2*time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: first.SessionToken})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeSessionInvalid))

	res, err := s.svc.VerifyNationalID(s.ctxAt(s.now.Add(3*time.Minute)), p.UserID,
		models.VerifyNationalIDRequest{SessionToken: second.SessionToken})
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, res.Status)
}
