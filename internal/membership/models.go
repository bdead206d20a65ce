// Package membership holds the membership aggregate: membership types with
// their expiry policies, and the memberships that reference them.
package membership

import (
	"time"

	"github.com/google/uuid"

	"memberd/internal/membership/policy"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
)

// MembershipType is a named policy governing how long a membership lasts.
//
// Invariants:
//   - Name is non-empty and unique
//   - The (CutoffDay, CutoffMonth) pair exists in every calendar year,
//     enforced at construction so expiry computation can never fail
type MembershipType struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	DurationMonths int        `json:"duration_months"`
	CutoffDay      int        `json:"cutoff_day"`
	CutoffMonth    time.Month `json:"cutoff_month"`
	IsActive       bool       `json:"is_active"`
	DoesNotExpire  bool       `json:"does_not_expire"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewMembershipType validates and builds a membership type. An unsatisfiable
// cutoff is rejected here with an invalid_policy error.
func NewMembershipType(name string, durationMonths, cutoffDay int, cutoffMonth time.Month, doesNotExpire bool, now time.Time) (*MembershipType, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership type name cannot be empty")
	}
	if !doesNotExpire {
		if _, err := policy.NewRecurringCutoff(durationMonths, cutoffDay, cutoffMonth); err != nil {
			return nil, err
		}
	}
	return &MembershipType{
		ID:             uuid.New(),
		Name:           name,
		DurationMonths: durationMonths,
		CutoffDay:      cutoffDay,
		CutoffMonth:    cutoffMonth,
		IsActive:       true,
		DoesNotExpire:  doesNotExpire,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Policy materializes the type's expiry policy. Types flagged does-not-expire
// evaluate as perpetual regardless of their cutoff fields.
func (t *MembershipType) Policy() (policy.Policy, error) {
	if t.DoesNotExpire {
		return policy.Perpetual{}, nil
	}
	return policy.NewRecurringCutoff(t.DurationMonths, t.CutoffDay, t.CutoffMonth)
}

// Membership ties a member to a membership type from a start date, optionally
// backed by a payment. A payment backs at most one membership.
type Membership struct {
	ID               uuid.UUID   `json:"id"`
	StartDate        domain.Date `json:"start_date"`
	MembershipTypeID uuid.UUID   `json:"membership_type_id"`
	PaymentID        *uuid.UUID  `json:"payment_id,omitempty"`
	MemberID         uuid.UUID   `json:"member_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewMembership validates and builds a membership.
func NewMembership(memberID, membershipTypeID uuid.UUID, paymentID *uuid.UUID, startDate domain.Date, now time.Time) (*Membership, error) {
	if memberID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership requires a member")
	}
	if membershipTypeID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership requires a membership type")
	}
	if startDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership requires a start date")
	}
	return &Membership{
		ID:               uuid.New(),
		StartDate:        startDate,
		MembershipTypeID: membershipTypeID,
		PaymentID:        paymentID,
		MemberID:         memberID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
