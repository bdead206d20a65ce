package handler

import (
	"encoding/json"
	"io"
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
	"go.uber.org/mock/gomock"

	"memberd/internal/member"
	"memberd/internal/member/handler/mocks"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/requestcontext"
)

type MemberHandlerSuite struct {
	suite.Suite
}

func TestMemberHandlerSuite(t *testing.T) {
	suite.Run(t, new(MemberHandlerSuite))
}

func (s *MemberHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, logger)
	r := chi.NewRouter()
	h.Register(r)
	return mockService, r
}

func (s *MemberHandlerSuite) do(t *testing.T, router *chi.Mux, method, path, body string, memberID uuid.UUID) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if memberID != uuid.Nil {
		req = req.WithContext(requestcontext.WithMemberID(req.Context(), memberID))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	raw, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return rr.Code, raw
}

func sampleMember(id uuid.UUID) *member.Member {
	now := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	return &member.Member{
		Account: member.Account{
			ID:        id,
			Username:  "olanord",
			Email:     "ola@example.org",
			FirstName: "Ola",
			LastName:  "Nordmann",
			// Internal fields; must never surface in responses.
			PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
			IsActive:     true,
			IsStaff:      true,
			DateJoined:   now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *MemberHandlerSuite) TestCreateReturnsKeyOnceAndHidesInternalFields() {
	t := s.T()
	mockService, router := s.newHandler(t)

	id := uuid.New()
	mockService.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(sampleMember(id), "raw-api-key", nil)

	status, raw := s.do(t, router, http.MethodPost, "/member/",
		`{"username":"olanord","email":"ola@example.org","password":"pw-one-two"}`, uuid.Nil)

	assert.Equal(t, http.StatusCreated, status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "raw-api-key", body["api_key"])
	assert.Equal(t, "olanord", body["username"])

	// Internal account fields stay internal.
	for _, hidden := range []string{"password", "password_hash", "is_active", "is_staff", "is_superuser", "last_login", "date_joined"} {
		_, present := body[hidden]
		assert.False(t, present, "field %q must not be serialized", hidden)
	}
}

func (s *MemberHandlerSuite) TestCreateRejectsMalformedBody() {
	t := s.T()
	_, router := s.newHandler(t)

	status, raw := s.do(t, router, http.MethodPost, "/member/", `{"username":`, uuid.Nil)

	assert.Equal(t, http.StatusBadRequest, status)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, string(dErrors.CodeBadRequest), errBody["error"])
}

func (s *MemberHandlerSuite) TestCreateConflictMapsTo409() {
	t := s.T()
	mockService, router := s.newHandler(t)

	mockService.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, "", dErrors.New(dErrors.CodeConflict, "username already taken"))

	status, raw := s.do(t, router, http.MethodPost, "/member/",
		`{"username":"olanord","email":"ola@example.org","password":"pw"}`, uuid.Nil)

	assert.Equal(t, http.StatusConflict, status)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, string(dErrors.CodeConflict), errBody["error"])
	assert.Equal(t, "username already taken", errBody["error_description"])
}

func (s *MemberHandlerSuite) TestListRequiresAuthentication() {
	t := s.T()
	_, router := s.newHandler(t)

	status, _ := s.do(t, router, http.MethodGet, "/member/", "", uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func (s *MemberHandlerSuite) TestListPassesWhitelistedFilters() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	mockService.EXPECT().
		List(gomock.Any(), map[string]string{"first_name": "Ola", "phone_number": "+4745678901"}).
		Return([]*member.Member{sampleMember(uuid.New())}, nil)

	status, raw := s.do(t, router, http.MethodGet,
		"/member/?first_name=Ola&phone_number=%2B4745678901&page=2", "", caller)

	assert.Equal(t, http.StatusOK, status)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body, 1)
}

func (s *MemberHandlerSuite) TestGetUnknownMemberMapsTo404() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	target := uuid.New()
	mockService.EXPECT().
		Get(gomock.Any(), target).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "member not found"))

	status, _ := s.do(t, router, http.MethodGet, "/member/"+target.String()+"/", "", caller)
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *MemberHandlerSuite) TestUpdateForbiddenUsernameChangeMapsTo403() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	target := uuid.New()
	mockService.EXPECT().
		Update(gomock.Any(), target, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeForbidden, "username cannot be changed"))

	status, raw := s.do(t, router, http.MethodPatch, "/member/"+target.String()+"/",
		`{"username":"other"}`, caller)

	assert.Equal(t, http.StatusForbidden, status)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, string(dErrors.CodeForbidden), errBody["error"])
}

func (s *MemberHandlerSuite) TestMeReturnsCaller() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	mockService.EXPECT().
		Get(gomock.Any(), caller).
		Return(sampleMember(caller), nil)

	status, raw := s.do(t, router, http.MethodGet, "/member/me/", "", caller)

	assert.Equal(t, http.StatusOK, status)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, caller.String(), body["id"])
}

func (s *MemberHandlerSuite) TestRotateKeyReturnsNewKey() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	mockService.EXPECT().
		RotateCredential(gomock.Any(), caller).
		Return("fresh-key", nil)

	status, raw := s.do(t, router, http.MethodPost, "/member/me/rotate-key/", "", caller)

	assert.Equal(t, http.StatusOK, status)
	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "fresh-key", body["api_key"])
}

func (s *MemberHandlerSuite) TestInternalErrorOmitsDescription() {
	t := s.T()
	mockService, router := s.newHandler(t)

	caller := uuid.New()
	mockService.EXPECT().
		Get(gomock.Any(), caller).
		Return(nil, dErrors.New(dErrors.CodeInternal, "driver: bad connection"))

	status, raw := s.do(t, router, http.MethodGet, "/member/me/", "", caller)

	assert.Equal(t, http.StatusInternalServerError, status)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, string(dErrors.CodeInternal), errBody["error"])
	_, present := errBody["error_description"]
	assert.False(t, present)
}
