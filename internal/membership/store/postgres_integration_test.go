//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"memberd/internal/membership"
	"memberd/internal/membership/store"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/testutil/containers"
)

type PostgresMembershipSuite struct {
	suite.Suite

	pg          *containers.PostgresContainer
	types       *store.PostgresTypes
	memberships *store.PostgresMemberships
	memberID    uuid.UUID
	paymentID   uuid.UUID
}

func TestPostgresMembershipSuite(t *testing.T) {
	suite.Run(t, new(PostgresMembershipSuite))
}

func (s *PostgresMembershipSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
}

func (s *PostgresMembershipSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateAll(ctx))

	s.types = store.NewPostgresTypes(s.pg.DB)
	s.memberships = store.NewPostgresMemberships(s.pg.DB)

	// Memberships reference a member and optionally a payment.
	s.memberID = uuid.New()
	_, err := s.pg.DB.ExecContext(ctx,
		`INSERT INTO accounts (id, username, email, password_hash) VALUES ($1, 'ola', 'ola@example.org', 'x')`,
		s.memberID)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(ctx,
		`INSERT INTO members (account_id) VALUES ($1)`, s.memberID)
	s.Require().NoError(err)

	paymentTypeID := uuid.New()
	s.paymentID = uuid.New()
	_, err = s.pg.DB.ExecContext(ctx,
		`INSERT INTO payment_types (id, name) VALUES ($1, 'card')`, paymentTypeID)
	s.Require().NoError(err)
	_, err = s.pg.DB.ExecContext(ctx,
		`INSERT INTO payments (id, payment_type_id, value) VALUES ($1, $2, 25000)`,
		s.paymentID, paymentTypeID)
	s.Require().NoError(err)
}

func (s *PostgresMembershipSuite) newType(name string) *membership.MembershipType {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t := &membership.MembershipType{
		ID:             uuid.New(),
		Name:           name,
		DurationMonths: 12,
		CutoffDay:      31,
		CutoffMonth:    time.July,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.types.Insert(context.Background(), t))
	return t
}

func (s *PostgresMembershipSuite) TestTypeRoundTrip() {
	created := s.newType("Annual")

	got, err := s.types.Get(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal("Annual", got.Name)
	s.Equal(time.July, got.CutoffMonth)
	s.Equal(31, got.CutoffDay)
}

func (s *PostgresMembershipSuite) TestDuplicateTypeNameConflicts() {
	s.newType("Annual")

	dup := &membership.MembershipType{ID: uuid.New(), Name: "Annual", DurationMonths: 6, CutoffDay: 1, CutoffMonth: time.January}
	err := s.types.Insert(context.Background(), dup)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *PostgresMembershipSuite) TestPaymentBacksAtMostOneMembership() {
	ctx := context.Background()
	mt := s.newType("Annual")

	first := &membership.Membership{
		ID:               uuid.New(),
		StartDate:        domain.NewDate(2024, time.February, 1),
		MembershipTypeID: mt.ID,
		PaymentID:        &s.paymentID,
		MemberID:         s.memberID,
	}
	s.Require().NoError(s.memberships.Insert(ctx, first))

	second := &membership.Membership{
		ID:               uuid.New(),
		StartDate:        domain.NewDate(2024, time.March, 1),
		MembershipTypeID: mt.ID,
		PaymentID:        &s.paymentID,
		MemberID:         s.memberID,
	}
	err := s.memberships.Insert(ctx, second)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *PostgresMembershipSuite) TestListByMemberNewestFirst() {
	ctx := context.Background()
	mt := s.newType("Annual")

	for _, month := range []time.Month{time.January, time.June} {
		m := &membership.Membership{
			ID:               uuid.New(),
			StartDate:        domain.NewDate(2024, month, 1),
			MembershipTypeID: mt.ID,
			MemberID:         s.memberID,
		}
		s.Require().NoError(s.memberships.Insert(ctx, m))
	}

	listed, err := s.memberships.ListByMember(ctx, s.memberID)
	s.Require().NoError(err)
	s.Require().Len(listed, 2)
	s.Equal("2024-06-01", listed[0].StartDate.String())
	s.Equal("2024-01-01", listed[1].StartDate.String())
}
