package refdata

import (
	"context"
	"sync"

	"kycd/pkg/platform/sentinel"
)

// InMemoryStore serves the reference registry from process memory. Used
// in local mode and in tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	pans      map[string]*PANRecord
	byAadhaar map[string]*PANRecord
	accounts  map[string]*BankAccountRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		pans:      make(map[string]*PANRecord),
		byAadhaar: make(map[string]*PANRecord),
		accounts:  make(map[string]*BankAccountRecord),
	}
}

func (s *InMemoryStore) GetByPAN(_ context.Context, panNumber string) (*PANRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.pans[panNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) GetByAadhaar(_ context.Context, aadhaarNumber string) (*PANRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byAadhaar[aadhaarNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) GetByAccountNumber(_ context.Context, accountNumber string) (*BankAccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[accountNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) PutPAN(_ context.Context, record *PANRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.pans[copied.PANNumber] = &copied
	s.byAadhaar[copied.AadhaarNumber] = &copied
	return nil
}

func (s *InMemoryStore) PutBankAccount(_ context.Context, record *BankAccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.accounts[copied.AccountNumber] = &copied
	return nil
}
