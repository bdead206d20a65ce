package resource

import (
	"context"
	"sync"

	"github.com/google/uuid"

	dErrors "memberd/pkg/domain-errors"
)

// MemoryStore is the map-backed Store used by unit tests and as the memory
// twin for simple entities. ID extracts the key; Match evaluates one
// exact-match filter; Conflict, when set, vets a candidate against each
// existing object so uniqueness rules mirror the SQL schema.
type MemoryStore[T any] struct {
	ID       func(T) uuid.UUID
	Match    func(obj T, field, value string) bool
	Conflict func(existing, candidate T) error

	mu      sync.RWMutex
	objects map[uuid.UUID]T
}

func NewMemoryStore[T any](
	id func(T) uuid.UUID,
	match func(obj T, field, value string) bool,
	conflict func(existing, candidate T) error,
) *MemoryStore[T] {
	return &MemoryStore[T]{
		ID:       id,
		Match:    match,
		Conflict: conflict,
		objects:  make(map[uuid.UUID]T),
	}
}

func (s *MemoryStore[T]) Insert(_ context.Context, obj T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Conflict != nil {
		for _, existing := range s.objects {
			if err := s.Conflict(existing, obj); err != nil {
				return err
			}
		}
	}
	s.objects[s.ID(obj)] = obj
	return nil
}

func (s *MemoryStore[T]) Get(_ context.Context, id uuid.UUID) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		var zero T
		return zero, dErrors.New(dErrors.CodeNotFound, "not found")
	}
	return obj, nil
}

func (s *MemoryStore[T]) List(_ context.Context, filters map[string]string) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, obj := range s.objects {
		include := true
		for field, value := range filters {
			if s.Match == nil || !s.Match(obj, field, value) {
				include = false
				break
			}
		}
		if include {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (s *MemoryStore[T]) Update(_ context.Context, obj T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ID(obj)
	if _, ok := s.objects[id]; !ok {
		return dErrors.New(dErrors.CodeNotFound, "not found")
	}
	if s.Conflict != nil {
		for existingID, existing := range s.objects {
			if existingID == id {
				continue
			}
			if err := s.Conflict(existing, obj); err != nil {
				return err
			}
		}
	}
	s.objects[id] = obj
	return nil
}
