// Package credential issues and verifies the per-member API keys. A member
// has exactly one credential, created in the same transaction as the member
// itself.
package credential

import (
	"time"

	"github.com/google/uuid"
)

// Credential is the stored form of a member's API key. Only the SHA-256
// digest is persisted; the raw key is returned once at issuance and cannot be
// recovered afterwards.
type Credential struct {
	MemberID  uuid.UUID `json:"member_id"`
	KeyDigest string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
