// Package document persists per-document workflow rows.
package document

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
	docs map[string]*models.Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string]*models.Document)}
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *InMemoryStore) GetByUserAndType(_ context.Context, userID int64, docType models.DocumentType) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.docs {
		if d.UserID == userID && d.Type == docType {
			copied := *d
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID int64) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sortByUploadedAt(out)
	return out, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status models.DocumentStatus) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, d := range s.docs {
		if d.Status == status {
			copied := *d
			out = append(out, &copied)
		}
	}
	sortByUploadedAt(out)
	return out, nil
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, d := range s.docs {
		if d.UserID == doc.UserID && d.Type == doc.Type {
			return sentinel.ErrConflict
		}
	}
	copied := *doc
	s.docs[copied.ID] = &copied
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *doc
	s.docs[copied.ID] = &copied
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *InMemoryStore) ListRejectedBefore(_ context.Context, cutoff time.Time) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, d := range s.docs {
		if d.Status == models.DocRejected && rejectionTime(d).Before(cutoff) {
			copied := *d
			out = append(out, &copied)
		}
	}
	sortByUploadedAt(out)
	return out, nil
}

func (s *InMemoryStore) DeleteIfRejectedBefore(_ context.Context, id string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	if d.Status != models.DocRejected || !rejectionTime(d).Before(cutoff) {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

// rejectionTime is the moment the retention clock starts: the review
// that rejected the document, falling back to upload time.
func rejectionTime(d *models.Document) time.Time {
	if d.ReviewedAt != nil {
		return *d.ReviewedAt
	}
	return d.UploadedAt
}

func sortByUploadedAt(docs []*models.Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
}
