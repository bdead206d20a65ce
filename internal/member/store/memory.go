package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"memberd/internal/member"
	dErrors "memberd/pkg/domain-errors"
)

// Memory is the in-memory member store used by unit tests. It enforces the
// same uniqueness rules as the SQL schema so service tests see the same
// conflicts.
type Memory struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*member.Member
}

func NewMemory() *Memory {
	return &Memory{members: make(map[uuid.UUID]*member.Member)}
}

func (s *Memory) Create(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members {
		if existing.Username == m.Username {
			return dErrors.New(dErrors.CodeConflict, "create account: constraint violated")
		}
		if existing.Email == m.Email {
			return dErrors.New(dErrors.CodeConflict, "create account: constraint violated")
		}
		if m.PhoneNumber != nil && existing.PhoneNumber != nil && *existing.PhoneNumber == *m.PhoneNumber {
			return dErrors.New(dErrors.CodeConflict, "create member: constraint violated")
		}
		if m.LegacyID != nil && existing.LegacyID != nil && *existing.LegacyID == *m.LegacyID {
			return dErrors.New(dErrors.CodeConflict, "create member: constraint violated")
		}
	}
	clone := cloneMember(m)
	s.members[m.ID] = clone
	return nil
}

func (s *Memory) Get(_ context.Context, id uuid.UUID) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	return cloneMember(m), nil
}

func (s *Memory) GetByUsername(_ context.Context, username string) (*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.Username == username {
			return cloneMember(m), nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
}

func (s *Memory) Update(_ context.Context, m *member.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	s.members[m.ID] = cloneMember(m)
	return nil
}

func (s *Memory) ListByAccountFields(_ context.Context, filters map[string]string) ([]*member.Member, error) {
	return s.listWhere(func(m *member.Member) bool {
		for field, value := range filters {
			var got string
			switch field {
			case "username":
				got = m.Username
			case "email":
				got = m.Email
			case "first_name":
				got = m.FirstName
			case "last_name":
				got = m.LastName
			default:
				return false
			}
			if got != value {
				return false
			}
		}
		return true
	})
}

func (s *Memory) ListByExtensionFields(_ context.Context, filters map[string]string) ([]*member.Member, error) {
	return s.listWhere(func(m *member.Member) bool {
		for field, value := range filters {
			if field != "phone_number" {
				return false
			}
			if m.PhoneNumber == nil || *m.PhoneNumber != value {
				return false
			}
		}
		return true
	})
}

func (s *Memory) UpdateLastLogin(_ context.Context, id uuid.UUID, at sql.NullTime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	if at.Valid {
		t := at.Time
		m.LastLogin = &t
	} else {
		m.LastLogin = nil
	}
	return nil
}

func (s *Memory) listWhere(match func(*member.Member) bool) ([]*member.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*member.Member
	for _, m := range s.members {
		if match(m) {
			out = append(out, cloneMember(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func cloneMember(m *member.Member) *member.Member {
	clone := *m
	if m.PhoneNumber != nil {
		v := *m.PhoneNumber
		clone.PhoneNumber = &v
	}
	if m.DateOfBirth != nil {
		v := *m.DateOfBirth
		clone.DateOfBirth = &v
	}
	if m.LegacyID != nil {
		v := *m.LegacyID
		clone.LegacyID = &v
	}
	if m.AddressID != nil {
		v := *m.AddressID
		clone.AddressID = &v
	}
	if m.LastLogin != nil {
		v := *m.LastLogin
		clone.LastLogin = &v
	}
	clone.PlacesOfStudy = append([]uuid.UUID(nil), m.PlacesOfStudy...)
	return &clone
}
