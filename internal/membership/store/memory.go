package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"memberd/internal/membership"
	dErrors "memberd/pkg/domain-errors"
)

// MemoryTypes is the in-memory membership-type store used by unit tests.
type MemoryTypes struct {
	mu    sync.RWMutex
	types map[uuid.UUID]*membership.MembershipType
}

func NewMemoryTypes() *MemoryTypes {
	return &MemoryTypes{types: make(map[uuid.UUID]*membership.MembershipType)}
}

func (s *MemoryTypes) Insert(_ context.Context, t *membership.MembershipType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if existing.Name == t.Name {
			return dErrors.New(dErrors.CodeConflict, "membership type name already in use")
		}
	}
	clone := *t
	s.types[t.ID] = &clone
	return nil
}

func (s *MemoryTypes) Get(_ context.Context, id uuid.UUID) (*membership.MembershipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "membership type not found")
	}
	clone := *t
	return &clone, nil
}

func (s *MemoryTypes) List(_ context.Context) ([]*membership.MembershipType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*membership.MembershipType, 0, len(s.types))
	for _, t := range s.types {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryTypes) Update(_ context.Context, t *membership.MembershipType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.types[t.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "membership type not found")
	}
	for _, existing := range s.types {
		if existing.ID != t.ID && existing.Name == t.Name {
			return dErrors.New(dErrors.CodeConflict, "membership type name already in use")
		}
	}
	clone := *t
	s.types[t.ID] = &clone
	return nil
}

// MemoryMemberships is the in-memory membership store used by unit tests. It
// enforces the one-membership-per-payment rule like the SQL unique index.
type MemoryMemberships struct {
	mu          sync.RWMutex
	memberships map[uuid.UUID]*membership.Membership
	byPayment   map[uuid.UUID]uuid.UUID
}

func NewMemoryMemberships() *MemoryMemberships {
	return &MemoryMemberships{
		memberships: make(map[uuid.UUID]*membership.Membership),
		byPayment:   make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryMemberships) Insert(_ context.Context, m *membership.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.PaymentID != nil {
		if _, taken := s.byPayment[*m.PaymentID]; taken {
			return dErrors.New(dErrors.CodeConflict, "payment already backs a membership")
		}
		s.byPayment[*m.PaymentID] = m.ID
	}
	clone := cloneMembership(m)
	s.memberships[m.ID] = clone
	return nil
}

func (s *MemoryMemberships) Get(_ context.Context, id uuid.UUID) (*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "membership not found")
	}
	return cloneMembership(m), nil
}

func (s *MemoryMemberships) ListByMember(_ context.Context, memberID uuid.UUID) ([]*membership.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*membership.Membership
	for _, m := range s.memberships {
		if m.MemberID == memberID {
			out = append(out, cloneMembership(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate.Time) })
	return out, nil
}

func cloneMembership(m *membership.Membership) *membership.Membership {
	clone := *m
	if m.PaymentID != nil {
		v := *m.PaymentID
		clone.PaymentID = &v
	}
	return &clone
}
