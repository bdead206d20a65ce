package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	jwttoken "memberd/internal/jwt_token"
	"memberd/internal/member"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/requestcontext"
)

type fakeAuthenticator struct {
	member   *member.Member
	password string
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, username, password string) (*member.Member, error) {
	if f.member != nil && username == f.member.Username && password == f.password {
		return f.member, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
}

type HandlerSuite struct {
	suite.Suite

	router  *chi.Mux
	tokens  *jwttoken.JWTService
	now     time.Time
	ola     *member.Member
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	s.tokens = jwttoken.NewJWTService("test-signing-key", "test-issuer")

	s.ola = &member.Member{Account: member.Account{ID: uuid.New(), Username: "ola"}}
	members := &fakeAuthenticator{member: s.ola, password: "hunter2"}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	s.router = chi.NewRouter()
	New(members, s.tokens, logger).Register(s.router)
}

func (s *HandlerSuite) login(body string, at time.Time) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login/", strings.NewReader(body))
	req = req.WithContext(requestcontext.WithTime(req.Context(), at))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *HandlerSuite) TestLoginReturnsValidSessionToken() {
	rr := s.login(`{"username":"ola","password":"hunter2"}`, s.now)
	require.Equal(s.T(), http.StatusOK, rr.Code)

	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(s.T(), resp.Token)

	claims, err := s.tokens.ValidateToken(resp.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.ola.ID.String(), claims.MemberID)
	assert.WithinDuration(s.T(), time.Now().Add(24*time.Hour), resp.ExpiresAt, time.Minute)
}

func (s *HandlerSuite) TestLoginRejectsWrongPassword() {
	rr := s.login(`{"username":"ola","password":"wrong"}`, s.now)
	assert.Equal(s.T(), http.StatusUnauthorized, rr.Code)
}

func (s *HandlerSuite) TestLoginRequiresBothFields() {
	rr := s.login(`{"username":"ola"}`, s.now)
	assert.Equal(s.T(), http.StatusBadRequest, rr.Code)
}

func (s *HandlerSuite) TestRepeatedFailuresLockTheAccount() {
	for i := 0; i < 5; i++ {
		rr := s.login(`{"username":"ola","password":"wrong"}`, s.now)
		require.Equal(s.T(), http.StatusUnauthorized, rr.Code)
	}

	// Even the correct password is refused while locked out.
	rr := s.login(`{"username":"ola","password":"hunter2"}`, s.now.Add(time.Minute))
	assert.Equal(s.T(), http.StatusTooManyRequests, rr.Code)

	// The lock expires.
	rr = s.login(`{"username":"ola","password":"hunter2"}`, s.now.Add(16*time.Minute))
	assert.Equal(s.T(), http.StatusOK, rr.Code)
}

func (s *HandlerSuite) TestSuccessfulLoginClearsFailures() {
	for i := 0; i < 4; i++ {
		s.login(`{"username":"ola","password":"wrong"}`, s.now)
	}
	rr := s.login(`{"username":"ola","password":"hunter2"}`, s.now)
	require.Equal(s.T(), http.StatusOK, rr.Code)

	// The counter restarted, so four more failures do not lock.
	for i := 0; i < 4; i++ {
		s.login(`{"username":"ola","password":"wrong"}`, s.now)
	}
	rr = s.login(`{"username":"ola","password":"hunter2"}`, s.now)
	assert.Equal(s.T(), http.StatusOK, rr.Code)
}
