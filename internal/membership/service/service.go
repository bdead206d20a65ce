// Package service implements membership-type administration and membership
// purchases.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"memberd/internal/audit"
	"memberd/internal/membership"
	"memberd/internal/platform/metrics"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mock.go -package=mocks

// TypeStore persists membership types.
type TypeStore interface {
	Insert(ctx context.Context, t *membership.MembershipType) error
	Get(ctx context.Context, id uuid.UUID) (*membership.MembershipType, error)
	List(ctx context.Context) ([]*membership.MembershipType, error)
	Update(ctx context.Context, t *membership.MembershipType) error
}

// MembershipStore persists memberships. Insert must surface a conflict when
// the payment already backs another membership.
type MembershipStore interface {
	Insert(ctx context.Context, m *membership.Membership) error
	Get(ctx context.Context, id uuid.UUID) (*membership.Membership, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]*membership.Membership, error)
}

// Service orchestrates membership operations.
type Service struct {
	types       TypeStore
	memberships MembershipStore
	metrics     *metrics.Metrics
	auditor     audit.Recorder
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewService(
	types TypeStore,
	memberships MembershipStore,
	m *metrics.Metrics,
	auditor audit.Recorder,
	logger *slog.Logger,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		types:       types,
		memberships: memberships,
		metrics:     m,
		auditor:     auditor,
		logger:      logger,
		tracer:      otel.Tracer("memberd/membership"),
	}
}

// CreateTypeRequest carries a new membership type.
type CreateTypeRequest struct {
	Name           string     `json:"name"`
	DurationMonths int        `json:"duration_months"`
	CutoffDay      int        `json:"cutoff_day"`
	CutoffMonth    time.Month `json:"cutoff_month"`
	DoesNotExpire  bool       `json:"does_not_expire"`
}

// CreateType validates and stores a membership type. Unsatisfiable cutoffs are
// rejected before anything is written.
func (s *Service) CreateType(ctx context.Context, req CreateTypeRequest) (*membership.MembershipType, error) {
	now := requestcontext.Now(ctx)
	t, err := membership.NewMembershipType(req.Name, req.DurationMonths, req.CutoffDay, req.CutoffMonth, req.DoesNotExpire, now)
	if err != nil {
		return nil, err
	}
	if err := s.types.Insert(ctx, t); err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.IncrementConstraintConflict()
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "membership type created", "membership_type_id", t.ID, "name", t.Name)
	return t, nil
}

// TypePatch carries a partial membership-type update. Nil means "not
// provided". Policy fields are revalidated as a whole after applying.
type TypePatch struct {
	Name           *string     `json:"name"`
	DurationMonths *int        `json:"duration_months"`
	CutoffDay      *int        `json:"cutoff_day"`
	CutoffMonth    *time.Month `json:"cutoff_month"`
	IsActive       *bool       `json:"is_active"`
	DoesNotExpire  *bool       `json:"does_not_expire"`
}

// UpdateType applies a partial update and revalidates the resulting policy.
func (s *Service) UpdateType(ctx context.Context, id uuid.UUID, patch TypePatch) (*membership.MembershipType, error) {
	t, err := s.types.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, dErrors.New(dErrors.CodeBadRequest, "membership type name cannot be empty")
		}
		t.Name = *patch.Name
	}
	if patch.DurationMonths != nil {
		t.DurationMonths = *patch.DurationMonths
	}
	if patch.CutoffDay != nil {
		t.CutoffDay = *patch.CutoffDay
	}
	if patch.CutoffMonth != nil {
		t.CutoffMonth = *patch.CutoffMonth
	}
	if patch.IsActive != nil {
		t.IsActive = *patch.IsActive
	}
	if patch.DoesNotExpire != nil {
		t.DoesNotExpire = *patch.DoesNotExpire
	}

	if _, err := t.Policy(); err != nil {
		return nil, err
	}

	t.UpdatedAt = requestcontext.Now(ctx)
	if err := s.types.Update(ctx, t); err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.IncrementConstraintConflict()
		}
		return nil, err
	}
	return t, nil
}

// GetType loads one membership type.
func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*membership.MembershipType, error) {
	return s.types.Get(ctx, id)
}

// ListTypes lists every membership type.
func (s *Service) ListTypes(ctx context.Context) ([]*membership.MembershipType, error) {
	return s.types.List(ctx)
}

// CreateRequest carries a membership purchase. StartDate defaults to today.
type CreateRequest struct {
	MemberID         uuid.UUID    `json:"member_id"`
	MembershipTypeID uuid.UUID    `json:"membership_type_id"`
	PaymentID        *uuid.UUID   `json:"payment_id"`
	StartDate        *domain.Date `json:"start_date"`
}

// Create records a membership. The referenced type must be active; a payment
// that already backs a membership yields a conflict from the store's unique
// constraint.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*membership.Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.Create",
		trace.WithAttributes(attribute.String("membership.member_id", req.MemberID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)

	t, err := s.types.Get(ctx, req.MembershipTypeID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown membership type")
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, dErrors.New(dErrors.CodeBadRequest, "membership type is not active")
	}

	startDate := domain.DateOf(now)
	if req.StartDate != nil && !req.StartDate.IsZero() {
		startDate = *req.StartDate
	}

	m, err := membership.NewMembership(req.MemberID, req.MembershipTypeID, req.PaymentID, startDate, now)
	if err != nil {
		return nil, err
	}

	if err := s.memberships.Insert(ctx, m); err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.IncrementConstraintConflict()
		}
		return nil, err
	}

	s.metrics.IncrementMembershipsCreated()
	s.logger.InfoContext(ctx, "membership created",
		"membership_id", m.ID,
		"member_id", m.MemberID,
		"membership_type", t.Name,
	)

	event := audit.NewEvent(audit.KindMembershipCreated, m.MemberID, now)
	event.ActorID = requestcontext.MemberID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.Detail = map[string]string{"membership_type": t.Name}
	s.auditor.Record(ctx, event)

	return m, nil
}

// Get loads one membership.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*membership.Membership, error) {
	return s.memberships.Get(ctx, id)
}

// ListByMember lists a member's memberships.
func (s *Service) ListByMember(ctx context.Context, memberID uuid.UUID) ([]*membership.Membership, error) {
	return s.memberships.ListByMember(ctx, memberID)
}

// ExpiryOf computes when a membership lapses. The policy is evaluated at the
// membership's start date, so a stored membership's expiry never drifts as
// wall-clock time passes. The second return is false for perpetual types.
func (s *Service) ExpiryOf(ctx context.Context, m *membership.Membership) (domain.Date, bool, error) {
	t, err := s.types.Get(ctx, m.MembershipTypeID)
	if err != nil {
		return domain.Date{}, false, err
	}
	p, err := t.Policy()
	if err != nil {
		return domain.Date{}, false, err
	}
	if !p.Expires() {
		return domain.Date{}, false, nil
	}
	return domain.DateOf(p.ComputeExpiry(m.StartDate.Time)), true, nil
}
