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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"memberd/internal/membership/service"
	"memberd/internal/membership/store"
	"memberd/internal/platform/metrics"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/requestcontext"
)

// The handler is exercised against the real service on memory stores; the
// wire format and status mapping are what is under test here.
type MembershipHandlerSuite struct {
	suite.Suite

	now    time.Time
	caller uuid.UUID
	router *chi.Mux
}

func (s *MembershipHandlerSuite) SetupTest() {
	s.now = time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	s.caller = uuid.New()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	svc := service.NewService(
		store.NewMemoryTypes(),
		store.NewMemoryMemberships(),
		metrics.NewWithRegistry(prometheus.NewRegistry()),
		nil,
		logger,
	)
	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestMembershipHandlerSuite(t *testing.T) {
	suite.Run(t, new(MembershipHandlerSuite))
}

func (s *MembershipHandlerSuite) do(method, path, body string, authenticated bool) (int, []byte) {
	s.T().Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	ctx := requestcontext.WithTime(req.Context(), s.now)
	if authenticated {
		ctx = requestcontext.WithMemberID(ctx, s.caller)
	}
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	raw, err := io.ReadAll(rr.Body)
	require.NoError(s.T(), err)
	return rr.Code, raw
}

func (s *MembershipHandlerSuite) createStandardType() string {
	status, raw := s.do(http.MethodPost, "/membershiptype/",
		`{"name":"Standard","duration_months":12,"cutoff_day":31,"cutoff_month":7}`, true)
	require.Equal(s.T(), http.StatusCreated, status)

	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	return body["id"].(string)
}

func (s *MembershipHandlerSuite) TestRoutesRequireAuthentication() {
	status, _ := s.do(http.MethodGet, "/membership/", "", false)
	assert.Equal(s.T(), http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/membershiptype/", "", false)
	assert.Equal(s.T(), http.StatusUnauthorized, status)
}

func (s *MembershipHandlerSuite) TestUnsatisfiableCutoffMapsTo422() {
	status, raw := s.do(http.MethodPost, "/membershiptype/",
		`{"name":"Broken","duration_months":12,"cutoff_day":31,"cutoff_month":2}`, true)

	assert.Equal(s.T(), http.StatusUnprocessableEntity, status)
	var errBody map[string]string
	require.NoError(s.T(), json.Unmarshal(raw, &errBody))
	assert.Equal(s.T(), string(dErrors.CodeInvalidPolicy), errBody["error"])
}

func (s *MembershipHandlerSuite) TestSelfPurchaseSerializesExpiry() {
	typeID := s.createStandardType()

	status, raw := s.do(http.MethodPost, "/membership/",
		`{"membership_type_id":"`+typeID+`"}`, true)

	require.Equal(s.T(), http.StatusCreated, status)
	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	assert.Equal(s.T(), s.caller.String(), body["member_id"])
	assert.Equal(s.T(), "2023-03-01", body["start_date"])
	assert.Equal(s.T(), "2023-07-31", body["expires"])
}

func (s *MembershipHandlerSuite) TestPerpetualTypeOmitsExpiry() {
	status, raw := s.do(http.MethodPost, "/membershiptype/",
		`{"name":"Honorary","does_not_expire":true}`, true)
	require.Equal(s.T(), http.StatusCreated, status)
	var created map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &created))

	status, raw = s.do(http.MethodPost, "/membership/",
		`{"membership_type_id":"`+created["id"].(string)+`"}`, true)
	require.Equal(s.T(), http.StatusCreated, status)

	var body map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	_, present := body["expires"]
	assert.False(s.T(), present)
}

func (s *MembershipHandlerSuite) TestPaymentReuseMapsTo409() {
	typeID := s.createStandardType()
	paymentID := uuid.New().String()

	status, _ := s.do(http.MethodPost, "/membership/",
		`{"membership_type_id":"`+typeID+`","payment_id":"`+paymentID+`"}`, true)
	require.Equal(s.T(), http.StatusCreated, status)

	status, raw := s.do(http.MethodPost, "/membership/",
		`{"membership_type_id":"`+typeID+`","payment_id":"`+paymentID+`"}`, true)

	assert.Equal(s.T(), http.StatusConflict, status)
	var errBody map[string]string
	require.NoError(s.T(), json.Unmarshal(raw, &errBody))
	assert.Equal(s.T(), string(dErrors.CodeConflict), errBody["error"])
}

func (s *MembershipHandlerSuite) TestListReturnsCallersMemberships() {
	typeID := s.createStandardType()

	status, _ := s.do(http.MethodPost, "/membership/",
		`{"membership_type_id":"`+typeID+`"}`, true)
	require.Equal(s.T(), http.StatusCreated, status)

	status, raw := s.do(http.MethodGet, "/membership/", "", true)
	require.Equal(s.T(), http.StatusOK, status)

	var body []map[string]any
	require.NoError(s.T(), json.Unmarshal(raw, &body))
	require.Len(s.T(), body, 1)
	assert.Equal(s.T(), s.caller.String(), body[0]["member_id"])
}
