package provider

import (
	"github.com/google/uuid"

	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
)

func NewMemory() *resource.MemoryStore[*Token] {
	return resource.NewMemoryStore(
		func(t *Token) uuid.UUID { return t.ID },
		func(t *Token, field, value string) bool {
			switch field {
			case "provider":
				return string(t.Provider) == value
			case "member_id":
				return t.MemberID != nil && t.MemberID.String() == value
			}
			return false
		},
		func(existing, candidate *Token) error {
			if existing.Provider != candidate.Provider {
				return nil
			}
			if existing.Token != nil && candidate.Token != nil && *existing.Token == *candidate.Token {
				return dErrors.New(dErrors.CodeConflict, "provider account already linked")
			}
			if existing.MemberID != nil && candidate.MemberID != nil && *existing.MemberID == *candidate.MemberID {
				return dErrors.New(dErrors.CodeConflict, "member already linked to this provider")
			}
			return nil
		},
	)
}
