//go:build integration

package store_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"memberd/internal/audit"
	"memberd/internal/credential"
	memberservice "memberd/internal/member/service"
	"memberd/internal/member/store"
	"memberd/internal/platform/metrics"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/platform/tx"
	"memberd/pkg/requestcontext"
	"memberd/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite

	pg      *containers.PostgresContainer
	store   *store.Postgres
	service *memberservice.Service
	creds   *credential.Service
	now     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s.store = store.NewPostgres(s.pg.DB)
	s.creds = credential.NewService(credential.NewPostgres(s.pg.DB), credential.NewPostgresRevocationList(s.pg.DB), logger)
	s.service = memberservice.NewService(
		s.store, s.creds, tx.NewManager(s.pg.DB),
		metrics.NewWithRegistry(prometheus.NewRegistry()), audit.Nop{}, logger,
	)
}

func (s *PostgresStoreSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *PostgresStoreSuite) TestCreateRoundTrip() {
	phone := "+4712345678"
	created, apiKey, err := s.service.Create(s.ctx(), memberservice.CreateRequest{
		Username:    "ola",
		Email:       "ola@example.org",
		FirstName:   "Ola",
		LastName:    "Nordmann",
		Password:    "hunter2",
		PhoneNumber: &phone,
	})
	s.Require().NoError(err)
	s.NotEmpty(apiKey)

	got, err := s.store.Get(s.ctx(), created.ID)
	s.Require().NoError(err)
	s.Equal("ola", got.Username)
	s.Require().NotNil(got.PhoneNumber)
	s.Equal(phone, *got.PhoneNumber)

	memberID, err := s.creds.VerifyKey(s.ctx(), apiKey)
	s.Require().NoError(err)
	s.Equal(created.ID, memberID)
}

func (s *PostgresStoreSuite) TestConcurrentDuplicateCreatesExactlyOne() {
	req := memberservice.CreateRequest{
		Username: "kari",
		Email:    "kari@example.org",
		Password: "secret",
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := req
			if i == 1 {
				// Same username, different email: only the username collides.
				r.Email = "kari.other@example.org"
			}
			_, _, errs[i] = s.service.Create(s.ctx(), r)
		}(i)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case dErrors.Is(err, dErrors.CodeConflict):
			conflicts++
		default:
			s.FailNowf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, successes)
	s.Equal(1, conflicts)

	var accounts, credentials int
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&accounts))
	s.Require().NoError(s.pg.DB.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&credentials))
	s.Equal(1, accounts)
	s.Equal(1, credentials)
}

func (s *PostgresStoreSuite) TestListFiltersAcrossBothTables() {
	phoneOla := "+4711111111"
	phoneKari := "+4722222222"
	for _, r := range []memberservice.CreateRequest{
		{Username: "ola", Email: "ola@example.org", FirstName: "Ola", Password: "x1", PhoneNumber: &phoneOla},
		{Username: "kari", Email: "kari@example.org", FirstName: "Kari", Password: "x2", PhoneNumber: &phoneKari},
	} {
		_, _, err := s.service.Create(s.ctx(), r)
		s.Require().NoError(err)
	}

	listed, err := s.service.List(s.ctx(), map[string]string{
		"first_name":   "Ola",
		"phone_number": phoneOla,
	})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal("ola", listed[0].Username)

	// Account filter matches but the extension filter does not.
	listed, err = s.service.List(s.ctx(), map[string]string{
		"first_name":   "Ola",
		"phone_number": phoneKari,
	})
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *PostgresStoreSuite) TestAuthenticateStampsLastLogin() {
	created, _, err := s.service.Create(s.ctx(), memberservice.CreateRequest{
		Username: "per", Email: "per@example.org", Password: "secret",
	})
	s.Require().NoError(err)

	authed, err := s.service.Authenticate(s.ctx(), "per", "secret")
	s.Require().NoError(err)
	s.Equal(created.ID, authed.ID)
	s.Require().NotNil(authed.LastLogin)
	s.True(authed.LastLogin.Equal(s.now))

	var lastLogin time.Time
	s.Require().NoError(s.pg.DB.QueryRow(
		`SELECT last_login FROM accounts WHERE id = $1`, created.ID).Scan(&lastLogin))
	s.True(lastLogin.Equal(s.now))
}

func (s *PostgresStoreSuite) TestRotateInvalidatesOldKey() {
	_, apiKey, err := s.service.Create(s.ctx(), memberservice.CreateRequest{
		Username: "ida", Email: "ida@example.org", Password: "secret",
	})
	s.Require().NoError(err)

	memberID, err := s.creds.VerifyKey(s.ctx(), apiKey)
	s.Require().NoError(err)

	newKey, err := s.service.RotateCredential(s.ctx(), memberID)
	s.Require().NoError(err)
	s.NotEqual(apiKey, newKey)

	_, err = s.creds.VerifyKey(s.ctx(), apiKey)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	got, err := s.creds.VerifyKey(s.ctx(), newKey)
	s.Require().NoError(err)
	s.Equal(memberID, got)
}
