package credential

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "memberd/pkg/domain-errors"
)

// MemoryStore is the in-memory credential store used by unit tests.
type MemoryStore struct {
	mu       sync.RWMutex
	byMember map[uuid.UUID]*Credential
	byDigest map[string]uuid.UUID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byMember: make(map[uuid.UUID]*Credential),
		byDigest: make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Insert(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byMember[cred.MemberID]; exists {
		return dErrors.New(dErrors.CodeDuplicateCredential, "member already has a credential")
	}
	if _, exists := s.byDigest[cred.KeyDigest]; exists {
		return dErrors.New(dErrors.CodeConflict, "key digest already in use")
	}
	clone := *cred
	s.byMember[cred.MemberID] = &clone
	s.byDigest[cred.KeyDigest] = cred.MemberID
	return nil
}

func (s *MemoryStore) FindByDigest(_ context.Context, digest string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memberID, ok := s.byDigest[digest]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	clone := *s.byMember[memberID]
	return &clone, nil
}

func (s *MemoryStore) FindByMember(_ context.Context, memberID uuid.UUID) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.byMember[memberID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	clone := *cred
	return &clone, nil
}

func (s *MemoryStore) ReplaceDigest(_ context.Context, memberID uuid.UUID, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byMember[memberID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	}
	delete(s.byDigest, cred.KeyDigest)
	cred.KeyDigest = digest
	s.byDigest[digest] = memberID
	return nil
}

// Count reports how many credentials a member holds; test helper for the
// exactly-once issuance property.
func (s *MemoryStore) Count(memberID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.byMember[memberID]; ok {
		return 1
	}
	return 0
}

// MemoryRevocationList is the in-memory RevocationList twin for unit tests.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, digest string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[digest] = time.Now().Add(ttl)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, digest string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.entries[digest]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(l.entries, digest)
		return false, nil
	}
	return true, nil
}
