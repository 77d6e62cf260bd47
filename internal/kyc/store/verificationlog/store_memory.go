// Package verificationlog persists the append-only attempt audit trail.
package verificationlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"kycd/internal/kyc/models"
	"kycd/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	logs []*models.VerificationLog
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, log *models.VerificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// At most one verified row per identifier and type, same rule as
	// the partial unique index in the SQL schema.
	if log.Status == models.StatusVerified {
		for _, l := range s.logs {
			if l.Type == log.Type && l.Identifier == log.Identifier && l.Status == models.StatusVerified {
				return sentinel.ErrConflict
			}
		}
	}

	copied := *log
	s.logs = append(s.logs, &copied)
	return nil
}

func (s *InMemoryStore) GetVerifiedByIdentifier(_ context.Context, verificationType models.VerificationType, identifier string) (*models.VerificationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.logs {
		if l.Type == verificationType && l.Identifier == identifier && l.Status == models.StatusVerified {
			copied := *l
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID int64, verificationType models.VerificationType) ([]*models.VerificationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VerificationLog
	for _, l := range s.logs {
		if l.UserID == userID && l.Type == verificationType {
			copied := *l
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) DeletePrunableBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*models.VerificationLog
	var deleted int64
	for _, l := range s.logs {
		if l.IsPrunable(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return deleted, nil
}
