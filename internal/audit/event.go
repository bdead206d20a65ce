// Package audit emits domain events for the things operators and the
// member-care team need to trace: creations, profile changes, logins and
// credential rotations. Recording is best-effort; an audit outage must never
// fail the request that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names an auditable action.
type Kind string

const (
	KindMemberCreated     Kind = "member.created"
	KindMemberUpdated     Kind = "member.updated"
	KindMemberLogin       Kind = "member.login"
	KindMembershipCreated Kind = "membership.created"
	KindCredentialRotated Kind = "credential.rotated"
	KindCredentialRevoked Kind = "credential.revoked"
	KindProviderLinked    Kind = "provider.linked"
)

// Event is one auditable action. MemberID is the subject, ActorID the
// authenticated caller (uuid.Nil for anonymous self-registration).
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Kind      Kind              `json:"kind"`
	MemberID  uuid.UUID         `json:"member_id"`
	ActorID   uuid.UUID         `json:"actor_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	At        time.Time         `json:"at"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// NewEvent stamps an event with an ID and timestamp.
func NewEvent(kind Kind, memberID uuid.UUID, at time.Time) Event {
	return Event{
		ID:       uuid.New(),
		Kind:     kind,
		MemberID: memberID,
		At:       at,
	}
}

// Recorder accepts events without blocking the caller. Implementations drop
// rather than stall when their buffer is full.
type Recorder interface {
	Record(ctx context.Context, event Event)
}
