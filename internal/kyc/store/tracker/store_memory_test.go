package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) TestGet() {
	ctx := context.Background()

	s.Run("missing tracker returns not found", func() {
		_, err := s.store.Get(ctx, "unknown@example.com", models.TypePAN)
		s.True(errors.Is(err, sentinel.ErrNotFound))
	})

	s.Run("trackers are keyed per type", func() {
		_, err := s.store.BeginAttempt(ctx, "user@example.com", models.TypePAN, s.now)
		s.Require().NoError(err)

		_, err = s.store.Get(ctx, "user@example.com", models.TypeBank)
		s.True(errors.Is(err, sentinel.ErrNotFound))

		t, err := s.store.Get(ctx, "user@example.com", models.TypePAN)
		s.Require().NoError(err)
		s.Equal(1, t.AttemptsCount)
	})
}

func (s *InMemoryStoreSuite) TestBeginAttempt() {
	ctx := context.Background()

	s.Run("first attempt creates tracker with count one", func() {
		t, err := s.store.BeginAttempt(ctx, "first@example.com", models.TypePAN, s.now)
		s.Require().NoError(err)
		s.Equal(1, t.AttemptsCount)
		s.Nil(t.LockedUntil)
		s.Equal(s.now, t.FirstAttemptAt)
	})

	s.Run("subsequent attempts increment", func() {
		email := "repeat@example.com"
		for i := 1; i <= 3; i++ {
			t, err := s.store.BeginAttempt(ctx, email, models.TypeAadhaar, s.now.Add(time.Duration(i)*time.Minute))
			s.Require().NoError(err)
			s.Equal(i, t.AttemptsCount)
		}
	})

	s.Run("active lock leaves the tracker untouched", func() {
		email := "locked@example.com"
		_, err := s.store.BeginAttempt(ctx, email, models.TypePAN, s.now)
		s.Require().NoError(err)
		until := s.now.Add(24 * time.Hour)
		s.Require().NoError(s.store.Lock(ctx, email, models.TypePAN, until))

		t, err := s.store.BeginAttempt(ctx, email, models.TypePAN, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Equal(1, t.AttemptsCount)
		s.True(t.IsLockedAt(s.now.Add(time.Hour)))
	})

	s.Run("expired lock resets count to one and clears the lock", func() {
		email := "expired@example.com"
		for i := 0; i < 3; i++ {
			_, err := s.store.BeginAttempt(ctx, email, models.TypePAN, s.now)
			s.Require().NoError(err)
		}
		until := s.now.Add(24 * time.Hour)
		s.Require().NoError(s.store.Lock(ctx, email, models.TypePAN, until))

		after := until.Add(time.Minute)
		t, err := s.store.BeginAttempt(ctx, email, models.TypePAN, after)
		s.Require().NoError(err)
		s.Equal(1, t.AttemptsCount)
		s.Nil(t.LockedUntil)
		s.Equal(after, t.FirstAttemptAt)
	})
}

func (s *InMemoryStoreSuite) TestDecrement() {
	ctx := context.Background()

	s.Run("refunds one attempt", func() {
		email := "refund@example.com"
		_, err := s.store.BeginAttempt(ctx, email, models.TypeBank, s.now)
		s.Require().NoError(err)
		_, err = s.store.BeginAttempt(ctx, email, models.TypeBank, s.now)
		s.Require().NoError(err)

		t, err := s.store.Decrement(ctx, email, models.TypeBank)
		s.Require().NoError(err)
		s.Equal(1, t.AttemptsCount)
	})

	s.Run("floors at zero", func() {
		email := "floor@example.com"
		_, err := s.store.GetOrCreate(ctx, email, models.TypeBank, s.now)
		s.Require().NoError(err)

		t, err := s.store.Decrement(ctx, email, models.TypeBank)
		s.Require().NoError(err)
		s.Equal(0, t.AttemptsCount)
	})
}

func (s *InMemoryStoreSuite) TestReset() {
	ctx := context.Background()
	email := "reset@example.com"

	_, err := s.store.BeginAttempt(ctx, email, models.TypePAN, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Lock(ctx, email, models.TypePAN, s.now.Add(time.Hour)))

	s.Require().NoError(s.store.Reset(ctx, email, models.TypePAN))

	t, err := s.store.Get(ctx, email, models.TypePAN)
	s.Require().NoError(err)
	s.Equal(0, t.AttemptsCount)
	s.Nil(t.LockedUntil)
}

func (s *InMemoryStoreSuite) TestSweepDeletes() {
	ctx := context.Background()

	s.Run("expired locks past cutoff are removed, active locks survive", func() {
		_, err := s.store.BeginAttempt(ctx, "old@example.com", models.TypePAN, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Lock(ctx, "old@example.com", models.TypePAN, s.now.Add(-72*time.Hour)))

		_, err = s.store.BeginAttempt(ctx, "fresh@example.com", models.TypePAN, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Lock(ctx, "fresh@example.com", models.TypePAN, s.now.Add(time.Hour)))

		deleted, err := s.store.DeleteExpiredLocked(ctx, s.now.Add(-48*time.Hour))
		s.Require().NoError(err)
		s.Equal(int64(1), deleted)

		_, err = s.store.Get(ctx, "old@example.com", models.TypePAN)
		s.True(errors.Is(err, sentinel.ErrNotFound))
		_, err = s.store.Get(ctx, "fresh@example.com", models.TypePAN)
		s.NoError(err)
	})

	s.Run("idle trackers are removed, in-flight trackers survive", func() {
		_, err := s.store.GetOrCreate(ctx, "idle@example.com", models.TypeBank, s.now)
		s.Require().NoError(err)
		_, err = s.store.BeginAttempt(ctx, "busy@example.com", models.TypeBank, s.now)
		s.Require().NoError(err)

		deleted, err := s.store.DeleteIdle(ctx)
		s.Require().NoError(err)
		s.Equal(int64(1), deleted)

		_, err = s.store.Get(ctx, "idle@example.com", models.TypeBank)
		s.True(errors.Is(err, sentinel.ErrNotFound))
		_, err = s.store.Get(ctx, "busy@example.com", models.TypeBank)
		s.NoError(err)
	})
}
