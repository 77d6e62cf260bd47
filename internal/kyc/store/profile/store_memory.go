// Package profile persists the subject aggregate.
package profile

import (
	"context"
	"sync"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[int64]*models.Profile
	byEmail map[string]int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[int64]*models.Profile),
		byEmail: make(map[string]int64),
	}
}

func (s *InMemoryStore) GetByUserID(_ context.Context, userID int64) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.byID[id]
	return &copied, nil
}

func (s *InMemoryStore) ConsumeSession(_ context.Context, userID int64, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[userID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	if token == "" || p.SessionToken != token {
		return false, nil
	}
	p.ClearSession()
	return true, nil
}

func (s *InMemoryStore) GetByPANNumber(_ context.Context, panNumber string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.byID {
		if p.PANNumber == panNumber {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Create(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[profile.UserID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byEmail[profile.Email]; exists {
		return sentinel.ErrConflict
	}
	copied := *profile
	s.byID[copied.UserID] = &copied
	s.byEmail[copied.Email] = copied.UserID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[profile.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Email != profile.Email {
		delete(s.byEmail, existing.Email)
		s.byEmail[profile.Email] = profile.UserID
	}
	copied := *profile
	s.byID[copied.UserID] = &copied
	return nil
}
