// Package tracker persists attempt trackers. Both store variants are
// pure I/O with one exception: BeginAttempt folds the lock-check,
// expired-lock reset and increment into a single atomic operation so
// concurrent attempts can never both pass an unlocked check.
package tracker

import (
	"context"
	"sync"
	"time"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

type key struct {
	email string
	vtype models.VerificationType
}

// InMemoryStore keeps trackers in a mutex-guarded map. The mutex is
// what makes BeginAttempt atomic here; the PostgreSQL variant relies on
// a single UPDATE statement instead.
type InMemoryStore struct {
	mu       sync.Mutex
	trackers map[key]*models.AttemptTracker
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{trackers: make(map[key]*models.AttemptTracker)}
}

func (s *InMemoryStore) Get(_ context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[key{email, verificationType}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) GetOrCreate(_ context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *s.getOrCreateLocked(email, verificationType, now)
	return &copied, nil
}

func (s *InMemoryStore) BeginAttempt(_ context.Context, email string, verificationType models.VerificationType, now time.Time) (*models.AttemptTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.getOrCreateLocked(email, verificationType, now)
	switch {
	case t.IsLockedAt(now):
		// Active lock: leave the row untouched.
	case t.LockExpiredAt(now):
		t.AttemptsCount = 1
		t.LockedUntil = nil
		t.FirstAttemptAt = now
		t.LastAttemptAt = now
	default:
		t.AttemptsCount++
		t.LastAttemptAt = now
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) Decrement(_ context.Context, email string, verificationType models.VerificationType) (*models.AttemptTracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[key{email, verificationType}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if t.AttemptsCount > 0 {
		t.AttemptsCount--
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) Reset(_ context.Context, email string, verificationType models.VerificationType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[key{email, verificationType}]
	if !ok {
		return nil
	}
	t.AttemptsCount = 0
	t.LockedUntil = nil
	return nil
}

func (s *InMemoryStore) Lock(_ context.Context, email string, verificationType models.VerificationType, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trackers[key{email, verificationType}]
	if !ok {
		return sentinel.ErrNotFound
	}
	t.LockedUntil = &until
	return nil
}

func (s *InMemoryStore) DeleteExpiredLocked(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for k, t := range s.trackers {
		if t.LockedUntil != nil && t.LockedUntil.Before(cutoff) {
			delete(s.trackers, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) DeleteIdle(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for k, t := range s.trackers {
		if t.IsIdle() {
			delete(s.trackers, k)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) getOrCreateLocked(email string, verificationType models.VerificationType, now time.Time) *models.AttemptTracker {
	k := key{email, verificationType}
	t, ok := s.trackers[k]
	if !ok {
		t = models.NewAttemptTracker(email, verificationType, now)
		s.trackers[k] = t
	}
	return t
}
