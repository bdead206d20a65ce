// Package member holds the member aggregate: the account base (login
// identity) composed with the member extension (contact and study fields).
// The two field groups live in separate tables; list filters are evaluated
// per side and intersected, never assumed pushable as one combined query.
package member

import (
	"time"

	"github.com/google/uuid"

	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
)

// Account is the base identity shared with the admin site. The hash, the
// join/last-login timestamps and the staff flags are internal: they are never
// serialized in API payloads, in either direction.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"-"`
	IsStaff      bool       `json:"-"`
	IsSuperuser  bool       `json:"-"`
	LastLogin    *time.Time `json:"-"`
	DateJoined   time.Time  `json:"-"`
}

// Member composes the account base with the member extension fields.
//
// Invariants:
//   - Username is immutable after creation
//   - PhoneNumber and LegacyID are globally unique when present
//   - Exactly one credential exists per member, issued in the same
//     transaction that creates the member
type Member struct {
	Account
	PhoneNumber   *string      `json:"phone_number,omitempty"`
	DateOfBirth   *domain.Date `json:"date_of_birth,omitempty"`
	LegacyID      *int64       `json:"legacy_id,omitempty"`
	AddressID     *uuid.UUID   `json:"address_id,omitempty"`
	PlacesOfStudy []uuid.UUID  `json:"places_of_study,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// accountFilterFields are the list filters that live on the account base.
var accountFilterFields = map[string]bool{
	"username":   true,
	"email":      true,
	"first_name": true,
	"last_name":  true,
}

// extensionFilterFields are the list filters that live on the member
// extension.
var extensionFilterFields = map[string]bool{
	"phone_number": true,
}

// FilterableFields lists every exact-match filter the member collection
// supports.
func FilterableFields() []string {
	return []string{"username", "email", "first_name", "last_name", "phone_number"}
}

// SplitFilters partitions exact-match filters into the account side and the
// extension side. Unknown fields are rejected rather than ignored so typos
// don't silently return the full collection.
func SplitFilters(filters map[string]string) (account, extension map[string]string, err error) {
	account = make(map[string]string)
	extension = make(map[string]string)
	for field, value := range filters {
		switch {
		case accountFilterFields[field]:
			account[field] = value
		case extensionFilterFields[field]:
			extension[field] = value
		default:
			return nil, nil, dErrors.Newf(dErrors.CodeBadRequest, "cannot filter member by %q", field)
		}
	}
	return account, extension, nil
}

// NewMember validates and builds a member with its account base. The password
// hash must already be computed; this constructor never sees raw passwords.
func NewMember(username, email, firstName, lastName, passwordHash string, now time.Time) (*Member, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "username cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "email cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "password cannot be empty")
	}
	return &Member{
		Account: Account{
			ID:           uuid.New(),
			Username:     username,
			Email:        email,
			FirstName:    firstName,
			LastName:     lastName,
			PasswordHash: passwordHash,
			IsActive:     true,
			DateJoined:   now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
