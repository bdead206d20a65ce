// Package provider tracks external login providers linked to members. The
// token itself is write-only through the API: it is stored for backend
// verification but never serialized back out.
package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
)

// Provider names a supported external identity provider.
type Provider string

const (
	Facebook Provider = "facebook"
	Google   Provider = "google"
)

func (p Provider) valid() bool {
	return p == Facebook || p == Google
}

// Token links a member to one provider account. A provider token and a
// provider/member pair are each unique, so one external account maps to at
// most one member and vice versa.
type Token struct {
	ID           uuid.UUID  `json:"id"`
	Provider     Provider   `json:"provider"`
	Token        *string    `json:"-"`
	TokenExpires *time.Time `json:"token_expires,omitempty"`
	MemberID     *uuid.UUID `json:"member_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TokenDescriptor declares the provider-token resource.
func TokenDescriptor() resource.Descriptor[*Token] {
	return resource.Descriptor[*Token]{
		Name:       "providertoken",
		Operations: resource.ReadCreate,
		Filterable: []string{"provider", "member_id"},
		New: func(_ context.Context, body json.RawMessage, now time.Time) (*Token, error) {
			var in struct {
				Provider     Provider   `json:"provider"`
				Token        *string    `json:"token"`
				TokenExpires *time.Time `json:"token_expires"`
				MemberID     *uuid.UUID `json:"member_id"`
			}
			if err := json.Unmarshal(body, &in); err != nil {
				return nil, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
			}
			if !in.Provider.valid() {
				return nil, dErrors.Newf(dErrors.CodeBadRequest, "unknown provider %q", in.Provider)
			}
			if in.Token != nil && *in.Token == "" {
				in.Token = nil
			}
			return &Token{
				ID:           uuid.New(),
				Provider:     in.Provider,
				Token:        in.Token,
				TokenExpires: in.TokenExpires,
				MemberID:     in.MemberID,
				CreatedAt:    now,
				UpdatedAt:    now,
			}, nil
		},
	}
}
