package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerLockState(t *testing.T) {
	now := time.Now()

	t.Run("no lock", func(t *testing.T) {
		tr := NewAttemptTracker("a@b.c", TypePAN, now)
		assert.False(t, tr.IsLockedAt(now))
		assert.False(t, tr.LockExpiredAt(now))
		assert.Zero(t, tr.RemainingLock(now))
		assert.True(t, tr.IsIdle())
	})

	t.Run("active lock", func(t *testing.T) {
		tr := NewAttemptTracker("a@b.c", TypePAN, now)
		until := now.Add(time.Hour)
		tr.LockedUntil = &until
		assert.True(t, tr.IsLockedAt(now))
		assert.False(t, tr.LockExpiredAt(now))
		assert.Equal(t, time.Hour, tr.RemainingLock(now))
		assert.False(t, tr.IsIdle())
	})

	t.Run("expired lock", func(t *testing.T) {
		tr := NewAttemptTracker("a@b.c", TypePAN, now)
		until := now.Add(-time.Minute)
		tr.LockedUntil = &until
		assert.False(t, tr.IsLockedAt(now))
		assert.True(t, tr.LockExpiredAt(now))
		assert.Zero(t, tr.RemainingLock(now))
	})
}

func TestTrackerRemainingAttempts(t *testing.T) {
	tr := NewAttemptTracker("a@b.c", TypeBank, time.Now())
	assert.Equal(t, 3, tr.RemainingAttempts(3))
	tr.AttemptsCount = 2
	assert.Equal(t, 1, tr.RemainingAttempts(3))
	tr.AttemptsCount = 5
	assert.Equal(t, 0, tr.RemainingAttempts(3), "never negative")
}
