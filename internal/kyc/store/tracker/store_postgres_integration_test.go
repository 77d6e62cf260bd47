//go:build integration

package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycd/internal/kyc/models"
	"kycd/internal/kyc/store/tracker"
	"kycd/pkg/platform/sentinel"
	"kycd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *tracker.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = tracker.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "attempt_trackers"))
}

func (s *PostgresStoreSuite) TestBeginAttemptCounts() {
	ctx := context.Background()

	t, err := s.store.BeginAttempt(ctx, "user@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)
	s.Equal(1, t.AttemptsCount)
	s.Nil(t.LockedUntil)
	s.WithinDuration(s.now, t.FirstAttemptAt, time.Second)

	t, err = s.store.BeginAttempt(ctx, "user@example.com", models.TypePAN, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(2, t.AttemptsCount)

	other, err := s.store.BeginAttempt(ctx, "user@example.com", models.TypeBank, s.now)
	s.Require().NoError(err)
	s.Equal(1, other.AttemptsCount, "trackers are keyed per verification type")
}

func (s *PostgresStoreSuite) TestBeginAttemptHonorsActiveLock() {
	ctx := context.Background()

	_, err := s.store.BeginAttempt(ctx, "locked@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)

	until := s.now.Add(time.Hour)
	s.Require().NoError(s.store.Lock(ctx, "locked@example.com", models.TypePAN, until))

	t, err := s.store.BeginAttempt(ctx, "locked@example.com", models.TypePAN, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(1, t.AttemptsCount, "active lock leaves the count untouched")
	s.Require().NotNil(t.LockedUntil)
	s.WithinDuration(until, *t.LockedUntil, time.Second)
}

func (s *PostgresStoreSuite) TestBeginAttemptRestartsAfterLockExpiry() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.store.BeginAttempt(ctx, "expired@example.com", models.TypePAN, s.now)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Lock(ctx, "expired@example.com", models.TypePAN, s.now.Add(time.Hour)))

	later := s.now.Add(2 * time.Hour)
	t, err := s.store.BeginAttempt(ctx, "expired@example.com", models.TypePAN, later)
	s.Require().NoError(err)
	s.Equal(1, t.AttemptsCount, "expired lock restarts the count")
	s.Nil(t.LockedUntil)
	s.WithinDuration(later, t.FirstAttemptAt, time.Second)
}

func (s *PostgresStoreSuite) TestDecrementFloorsAtZero() {
	ctx := context.Background()

	_, err := s.store.Decrement(ctx, "missing@example.com", models.TypePAN)
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.BeginAttempt(ctx, "refund@example.com", models.TypeAadhaar, s.now)
	s.Require().NoError(err)

	t, err := s.store.Decrement(ctx, "refund@example.com", models.TypeAadhaar)
	s.Require().NoError(err)
	s.Equal(0, t.AttemptsCount)

	t, err = s.store.Decrement(ctx, "refund@example.com", models.TypeAadhaar)
	s.Require().NoError(err)
	s.Equal(0, t.AttemptsCount)
}

func (s *PostgresStoreSuite) TestResetClearsCountAndLock() {
	ctx := context.Background()

	_, err := s.store.BeginAttempt(ctx, "reset@example.com", models.TypeBank, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Lock(ctx, "reset@example.com", models.TypeBank, s.now.Add(time.Hour)))

	s.Require().NoError(s.store.Reset(ctx, "reset@example.com", models.TypeBank))

	t, err := s.store.Get(ctx, "reset@example.com", models.TypeBank)
	s.Require().NoError(err)
	s.Equal(0, t.AttemptsCount)
	s.Nil(t.LockedUntil)
}

func (s *PostgresStoreSuite) TestSweeperDeletes() {
	ctx := context.Background()

	_, err := s.store.BeginAttempt(ctx, "stale@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Lock(ctx, "stale@example.com", models.TypePAN, s.now.Add(-48*time.Hour)))

	_, err = s.store.BeginAttempt(ctx, "active@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)

	_, err = s.store.GetOrCreate(ctx, "idle@example.com", models.TypePAN, s.now)
	s.Require().NoError(err)

	deleted, err := s.store.DeleteExpiredLocked(ctx, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	deleted, err = s.store.DeleteIdle(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), deleted)

	_, err = s.store.Get(ctx, "active@example.com", models.TypePAN)
	s.Require().NoError(err, "in-flight trackers survive the sweep")
}
