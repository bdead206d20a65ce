// Package service implements member lifecycle operations: registration with
// credential issuance, profile updates, filtered listing and password
// authentication.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"memberd/internal/audit"
	"memberd/internal/member"
	"memberd/internal/platform/metrics"
	"memberd/pkg/domain"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/email"
	"memberd/pkg/platform/tx"
	"memberd/pkg/requestcontext"
	"memberd/pkg/secrets"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mock.go -package=mocks

// Store persists the member aggregate. List methods each evaluate filters for
// one side of the account/extension split.
type Store interface {
	Create(ctx context.Context, m *member.Member) error
	Get(ctx context.Context, id uuid.UUID) (*member.Member, error)
	GetByUsername(ctx context.Context, username string) (*member.Member, error)
	Update(ctx context.Context, m *member.Member) error
	ListByAccountFields(ctx context.Context, filters map[string]string) ([]*member.Member, error)
	ListByExtensionFields(ctx context.Context, filters map[string]string) ([]*member.Member, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at sql.NullTime) error
}

// CredentialIssuer issues and rotates API keys. Issue runs inside the
// member-creation transaction.
type CredentialIssuer interface {
	Issue(ctx context.Context, memberID uuid.UUID, now time.Time) (string, error)
	Rotate(ctx context.Context, memberID uuid.UUID) (string, error)
}

// Service orchestrates member operations.
type Service struct {
	store       Store
	credentials CredentialIssuer
	runner      tx.Runner
	metrics     *metrics.Metrics
	auditor     audit.Recorder
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewService(
	store Store,
	credentials CredentialIssuer,
	runner tx.Runner,
	m *metrics.Metrics,
	auditor audit.Recorder,
	logger *slog.Logger,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		store:       store,
		credentials: credentials,
		runner:      runner,
		metrics:     m,
		auditor:     auditor,
		logger:      logger,
		tracer:      otel.Tracer("memberd/member"),
	}
}

// CreateRequest carries the fields a caller may set at registration. Password
// arrives raw and is hashed before anything is stored.
type CreateRequest struct {
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	FirstName     string       `json:"first_name"`
	LastName      string       `json:"last_name"`
	Password      string       `json:"password"`
	PhoneNumber   *string      `json:"phone_number"`
	DateOfBirth   *domain.Date `json:"date_of_birth"`
	LegacyID      *int64       `json:"legacy_id"`
	AddressID     *uuid.UUID   `json:"address_id"`
	PlacesOfStudy []uuid.UUID  `json:"places_of_study"`
}

// Create registers a member and issues its API key in one transaction, so a
// member is never visible without exactly one credential. The raw key is
// returned once and never stored.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*member.Member, string, error) {
	ctx, span := s.tracer.Start(ctx, "member.Create",
		trace.WithAttributes(attribute.String("member.username", req.Username)))
	defer span.End()

	now := requestcontext.Now(ctx)

	passwordHash, err := secrets.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}

	firstName, lastName := req.FirstName, req.LastName
	if firstName == "" && lastName == "" {
		firstName, lastName = email.DeriveNameFromEmail(req.Email)
	}

	m, err := member.NewMember(req.Username, req.Email, firstName, lastName, passwordHash, now)
	if err != nil {
		return nil, "", err
	}
	m.PhoneNumber = req.PhoneNumber
	m.DateOfBirth = req.DateOfBirth
	m.LegacyID = req.LegacyID
	m.AddressID = req.AddressID
	m.PlacesOfStudy = req.PlacesOfStudy

	var apiKey string
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, m); err != nil {
			return err
		}
		key, err := s.credentials.Issue(ctx, m.ID, now)
		if err != nil {
			return err
		}
		apiKey = key
		return nil
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.IncrementConstraintConflict()
		}
		return nil, "", err
	}

	s.metrics.IncrementMembersCreated()
	s.metrics.IncrementCredentialsIssued()
	s.logger.InfoContext(ctx, "member created", "member_id", m.ID, "username", m.Username)
	s.audit(ctx, audit.KindMemberCreated, m.ID, now, map[string]string{"username": m.Username})

	return m, apiKey, nil
}

// Get loads one member.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	return s.store.Get(ctx, id)
}

// List returns members matching every exact-match filter. Account-side and
// extension-side filters are evaluated against their own tables and the two
// result sets intersected, so a combined filter never has to be expressible
// as one query.
func (s *Service) List(ctx context.Context, filters map[string]string) ([]*member.Member, error) {
	ctx, span := s.tracer.Start(ctx, "member.List",
		trace.WithAttributes(attribute.Int("member.filter_count", len(filters))))
	defer span.End()

	accountFilters, extensionFilters, err := member.SplitFilters(filters)
	if err != nil {
		return nil, err
	}

	if len(extensionFilters) == 0 {
		return s.store.ListByAccountFields(ctx, accountFilters)
	}
	if len(accountFilters) == 0 {
		return s.store.ListByExtensionFields(ctx, extensionFilters)
	}

	var accountSide, extensionSide []*member.Member
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accountSide, err = s.store.ListByAccountFields(gctx, accountFilters)
		return err
	})
	g.Go(func() error {
		var err error
		extensionSide, err = s.store.ListByExtensionFields(gctx, extensionFilters)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matched := make(map[uuid.UUID]bool, len(extensionSide))
	for _, m := range extensionSide {
		matched[m.ID] = true
	}
	var out []*member.Member
	for _, m := range accountSide {
		if matched[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

// Patch carries a partial update. Nil means "not provided".
type Patch struct {
	Username      *string      `json:"username"`
	Password      *string      `json:"password"`
	Email         *string      `json:"email"`
	FirstName     *string      `json:"first_name"`
	LastName      *string      `json:"last_name"`
	PhoneNumber   *string      `json:"phone_number"`
	DateOfBirth   *domain.Date `json:"date_of_birth"`
	LegacyID      *int64       `json:"legacy_id"`
	AddressID     *uuid.UUID   `json:"address_id"`
	PlacesOfStudy *[]uuid.UUID `json:"places_of_study"`
}

// Update applies a partial update. Two fields get special treatment: a
// username differing from the stored one is rejected outright, and a password
// is hashed before it replaces the stored hash. The raw password never
// reaches the store.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*member.Member, error) {
	m, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil && *patch.Username != m.Username {
		return nil, dErrors.New(dErrors.CodeForbidden, "username cannot be changed")
	}
	if patch.Password != nil {
		hash, err := secrets.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		m.PasswordHash = hash
	}
	if patch.Email != nil {
		m.Email = *patch.Email
	}
	if patch.FirstName != nil {
		m.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		m.LastName = *patch.LastName
	}
	if patch.PhoneNumber != nil {
		m.PhoneNumber = patch.PhoneNumber
	}
	if patch.DateOfBirth != nil {
		m.DateOfBirth = patch.DateOfBirth
	}
	if patch.LegacyID != nil {
		m.LegacyID = patch.LegacyID
	}
	if patch.AddressID != nil {
		m.AddressID = patch.AddressID
	}
	if patch.PlacesOfStudy != nil {
		m.PlacesOfStudy = *patch.PlacesOfStudy
	}

	now := requestcontext.Now(ctx)
	m.UpdatedAt = now

	if err := s.store.Update(ctx, m); err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.metrics.IncrementConstraintConflict()
		}
		return nil, err
	}

	s.audit(ctx, audit.KindMemberUpdated, m.ID, now, nil)
	return m, nil
}

// Authenticate checks a username/password pair and stamps last_login.
// Failures are indistinguishable to the caller whether the username or the
// password was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*member.Member, error) {
	m, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, err
	}
	if !m.IsActive {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}
	if err := secrets.Verify(password, m.PasswordHash); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.UpdateLastLogin(ctx, m.ID, sql.NullTime{Time: now, Valid: true}); err != nil {
		// Login still succeeds; the stamp is advisory.
		s.logger.WarnContext(ctx, "failed to stamp last login", "member_id", m.ID, "error", err)
	}
	m.LastLogin = &now

	s.audit(ctx, audit.KindMemberLogin, m.ID, now, nil)
	return m, nil
}

// RotateCredential replaces a member's API key and returns the new raw key.
func (s *Service) RotateCredential(ctx context.Context, memberID uuid.UUID) (string, error) {
	key, err := s.credentials.Rotate(ctx, memberID)
	if err != nil {
		return "", err
	}
	s.audit(ctx, audit.KindCredentialRotated, memberID, requestcontext.Now(ctx), nil)
	return key, nil
}

func (s *Service) audit(ctx context.Context, kind audit.Kind, memberID uuid.UUID, at time.Time, detail map[string]string) {
	event := audit.NewEvent(kind, memberID, at)
	event.ActorID = requestcontext.MemberID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	event.Detail = detail
	s.auditor.Record(ctx, event)
}
