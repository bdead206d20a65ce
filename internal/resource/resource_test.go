package resource_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberd/internal/directory"
	"memberd/internal/provider"
	"memberd/internal/resource"
	dErrors "memberd/pkg/domain-errors"
	"memberd/pkg/testutil"
)

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	r := chi.NewRouter()
	resource.NewHandler(directory.CountryDescriptor(), directory.NewMemoryCountries(), logger).Register(r)
	resource.NewHandler(directory.AddressDescriptor(), directory.NewMemoryAddresses(), logger).Register(r)
	resource.NewHandler(provider.TokenDescriptor(), provider.NewMemory(), logger).Register(r)
	return r
}

func do(t *testing.T, router *chi.Mux, method, path, body string, authenticated bool) (int, []byte) {
	t.Helper()
	req := testutil.NewRequestWithBody(t, method, path, body)
	req = testutil.WithRequestTime(req, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if authenticated {
		req = testutil.WithMemberID(req, uuid.NewString())
	}

	rr := testutil.DoRequest(router, req)
	return rr.Code, testutil.ReadBody(t, rr)
}

func TestResourceRequiresAuthentication(t *testing.T) {
	router := newRouter(t)
	status, _ := do(t, router, http.MethodGet, "/country/", "", false)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestResourceCreateGetListFilter(t *testing.T) {
	router := newRouter(t)

	status, raw := do(t, router, http.MethodPost, "/country/", `{"name":"Norway","code":"NO"}`, true)
	require.Equal(t, http.StatusCreated, status)
	var created map[string]any
	require.NoError(t, json.Unmarshal(raw, &created))
	id := created["id"].(string)

	status, _ = do(t, router, http.MethodPost, "/country/", `{"name":"Sweden","code":"SE"}`, true)
	require.Equal(t, http.StatusCreated, status)

	status, raw = do(t, router, http.MethodGet, "/country/"+id+"/", "", true)
	require.Equal(t, http.StatusOK, status)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Norway", got["name"])

	status, raw = do(t, router, http.MethodGet, "/country/?code=SE", "", true)
	require.Equal(t, http.StatusOK, status)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Sweden", list[0]["name"])
}

func TestResourceDuplicateMapsTo409(t *testing.T) {
	router := newRouter(t)

	status, _ := do(t, router, http.MethodPost, "/country/", `{"name":"Norway","code":"NO"}`, true)
	require.Equal(t, http.StatusCreated, status)

	status, raw := do(t, router, http.MethodPost, "/country/", `{"name":"Norway","code":"NO"}`, true)
	assert.Equal(t, http.StatusConflict, status)
	var errBody map[string]string
	require.NoError(t, json.Unmarshal(raw, &errBody))
	assert.Equal(t, string(dErrors.CodeConflict), errBody["error"])
}

func TestResourceUnknownIDMapsTo404(t *testing.T) {
	router := newRouter(t)
	status, _ := do(t, router, http.MethodGet, "/country/"+uuid.NewString()+"/", "", true)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestResourceUndeclaredOperationIsRejected(t *testing.T) {
	router := newRouter(t)

	status, _ := do(t, router, http.MethodPost, "/country/", `{"name":"Norway","code":"NO"}`, true)
	require.Equal(t, http.StatusCreated, status)

	// Countries declare no patch operation.
	status, _ = do(t, router, http.MethodPatch, "/country/"+uuid.NewString()+"/", `{"name":"X"}`, true)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

func TestResourcePatchAppliesDeclaredHook(t *testing.T) {
	router := newRouter(t)

	countryID := uuid.New()
	status, raw := do(t, router, http.MethodPost, "/address/",
		`{"street_address":"Storgata 1","city":"Trondheim","postal_code":"7030","country_id":"`+countryID.String()+`"}`, true)
	require.Equal(t, http.StatusCreated, status)
	var created map[string]any
	require.NoError(t, json.Unmarshal(raw, &created))
	id := created["id"].(string)

	status, raw = do(t, router, http.MethodPatch, "/address/"+id+"/", `{"city":"Oslo"}`, true)
	require.Equal(t, http.StatusOK, status)
	var patched map[string]any
	require.NoError(t, json.Unmarshal(raw, &patched))
	assert.Equal(t, "Oslo", patched["city"])
	assert.Equal(t, "Storgata 1", patched["street_address"])
}

func TestProviderTokenNeverSerialized(t *testing.T) {
	router := newRouter(t)

	memberID := uuid.New()
	status, raw := do(t, router, http.MethodPost, "/providertoken/",
		`{"provider":"facebook","token":"fb-secret-token","member_id":"`+memberID.String()+`"}`, true)
	require.Equal(t, http.StatusCreated, status)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "facebook", body["provider"])
	_, present := body["token"]
	assert.False(t, present)

	status, raw = do(t, router, http.MethodGet, "/providertoken/?member_id="+memberID.String(), "", true)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(raw), "fb-secret-token")
}

func TestProviderRejectsUnknownProvider(t *testing.T) {
	router := newRouter(t)
	status, _ := do(t, router, http.MethodPost, "/providertoken/", `{"provider":"myspace"}`, true)
	assert.Equal(t, http.StatusBadRequest, status)
}
