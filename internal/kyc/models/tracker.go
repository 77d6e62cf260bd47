package models

import "time"

// AttemptTracker is the per (email, verification type) retry counter and
// lock state. Created lazily on the first attempt; deleted by the sweeper
// once it is idle or long past lock expiry.
//
// Trackers carry no concurrency guard of their own: the store's
// check-and-increment primitives make the lock-check → increment sequence
// atomic per key (see store/tracker).
type AttemptTracker struct {
	Email          string           `json:"email"`
	Type           VerificationType `json:"verification_type"`
	AttemptsCount  int              `json:"attempts_count"`
	LockedUntil    *time.Time       `json:"locked_until,omitempty"`
	FirstAttemptAt time.Time        `json:"first_attempt_at"`
	LastAttemptAt  time.Time        `json:"last_attempt_at"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewAttemptTracker creates a zero-count tracker.
func NewAttemptTracker(email string, verificationType VerificationType, now time.Time) *AttemptTracker {
	return &AttemptTracker{
		Email:          email,
		Type:           verificationType,
		AttemptsCount:  0,
		FirstAttemptAt: now,
		LastAttemptAt:  now,
		CreatedAt:      now,
	}
}

// IsLockedAt reports whether the tracker has a lock that is still active.
func (t *AttemptTracker) IsLockedAt(now time.Time) bool {
	return t.LockedUntil != nil && t.LockedUntil.After(now)
}

// LockExpiredAt reports whether the tracker carries a lock whose window has
// already elapsed. Locks expire lazily: the next attempt resets the tracker
// rather than a timer clearing it.
func (t *AttemptTracker) LockExpiredAt(now time.Time) bool {
	return t.LockedUntil != nil && !t.LockedUntil.After(now)
}

// RemainingLock returns how much of the cooldown is left at now.
func (t *AttemptTracker) RemainingLock(now time.Time) time.Duration {
	if t.LockedUntil == nil {
		return 0
	}
	if remaining := t.LockedUntil.Sub(now); remaining > 0 {
		return remaining
	}
	return 0
}

// RemainingAttempts returns how many attempts are left under the budget.
func (t *AttemptTracker) RemainingAttempts(maxAttempts int) int {
	if remaining := maxAttempts - t.AttemptsCount; remaining > 0 {
		return remaining
	}
	return 0
}

// IsIdle reports whether the tracker is dead weight for the sweeper: no
// attempts consumed and no lock.
func (t *AttemptTracker) IsIdle() bool {
	return t.AttemptsCount == 0 && t.LockedUntil == nil
}
