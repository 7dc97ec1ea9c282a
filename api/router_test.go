package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/database"
	"privacyguard/models"
)

// testEnv wires the router against a temp database and one live session,
// the same shape the start command assembles.
func setupTestEnv(t *testing.T) (http.Handler, *core.SessionContext) {
	t.Helper()

	require.NoError(t, database.InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(database.CloseDB)

	config.AppConfig.Cookies.Policy = string(models.PolicyBlockThirdParty)

	matcher, err := core.LoadMatcher([]string{"doubleclick.net", "google-analytics.com"})
	require.NoError(t, err)
	core.SetActiveBlocklist(matcher)

	session, err := core.NewSessionContext(core.SessionConfig{
		Matcher: matcher,
		Pools:   core.DefaultPools(),
		Policy:  models.PolicyBlockThirdParty,
		Store:   database.OverrideStore{},
	})
	require.NoError(t, err)
	t.Cleanup(session.Close)

	return NewRouter(), session
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]bool
	decodeBody(t, rec, &body)
	assert.True(t, body["ok"])
}

func TestBlocklistCheckEndpoint(t *testing.T) {
	router, _ := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/blocklist/check?host=ads.doubleclick.net", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, true, body["blocked"])
	assert.Equal(t, "doubleclick.net", body["matched_entry"])

	rec = doRequest(t, router, http.MethodGet, "/blocklist/check?host=example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, false, body["blocked"])

	rec = doRequest(t, router, http.MethodGet, "/blocklist/check", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBlocklistStatsEndpoint(t *testing.T) {
	router, _ := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/blocklist/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.EqualValues(t, 2, body["entries"])
}

func TestPolicyEndpoints(t *testing.T) {
	router, session := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "block_third_party", body["policy"], "config fallback before anything is persisted")

	rec = doRequest(t, router, http.MethodPut, "/policy", map[string]string{"policy": "block_all"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &body)
	assert.Equal(t, "block_all", body["policy"])

	// The live session picked the new policy up.
	assert.Equal(t, models.PolicyBlockAll, session.Cookies().Policy())

	rec = doRequest(t, router, http.MethodPut, "/policy", map[string]string{"policy": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOverrideEndpoints(t *testing.T) {
	router, session := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/policy/overrides", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PolicyOverride
	decodeBody(t, rec, &list)
	assert.Empty(t, list)

	rec = doRequest(t, router, http.MethodPost, "/policy/overrides",
		map[string]string{"origin": "https://Example.COM", "policy": "allow_all"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.PolicyOverride
	decodeBody(t, rec, &created)
	assert.Equal(t, "https://example.com", created.Origin, "origin must be normalized")
	assert.Equal(t, models.PolicyAllowAll, created.Policy)

	// Applied to the live session.
	assert.Equal(t, models.PolicyAllowAll, session.Cookies().Overrides()["https://example.com"])

	rec = doRequest(t, router, http.MethodGet, "/policy/overrides", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &list)
	require.Len(t, list, 1)

	rec = doRequest(t, router, http.MethodDelete, "/policy/overrides?origin=https://example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, session.Cookies().Overrides())

	rec = doRequest(t, router, http.MethodPost, "/policy/overrides",
		map[string]string{"origin": "not an origin", "policy": "allow_all"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/policy/overrides", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	router, session := setupTestEnv(t)

	rec := doRequest(t, router, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []map[string]interface{}
	decodeBody(t, rec, &sessions)

	found := false
	for _, s := range sessions {
		if s["id"] == session.ID {
			found = true
			assert.EqualValues(t, 2, s["blocklist_entries"])
		}
	}
	assert.True(t, found)

	rec = doRequest(t, router, http.MethodGet, "/sessions/"+session.ID+"/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile models.FingerprintProfile
	decodeBody(t, rec, &profile)
	assert.Equal(t, session.Profile().UserAgent, profile.UserAgent)

	rec = doRequest(t, router, http.MethodGet, "/sessions/nope/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecisionsEndpoint(t *testing.T) {
	router, _ := setupTestEnv(t)

	require.NoError(t, database.InsertDecisionRecord(&models.DecisionRecord{
		RequestURL:   models.NullString("https://ads.doubleclick.net/pixel"),
		Action:       string(models.ActionBlock),
		CookieAction: string(models.CookieReject),
		MatchedEntry: models.NullString("doubleclick.net"),
		IsThirdParty: true,
	}))

	rec := doRequest(t, router, http.MethodGet, "/decisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Page         int                     `json:"page"`
		Limit        int                     `json:"limit"`
		TotalRecords int64                   `json:"total_records"`
		Records      []models.DecisionRecord `json:"records"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 50, body.Limit)
	assert.EqualValues(t, 1, body.TotalRecords)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "block", body.Records[0].Action)

	rec = doRequest(t, router, http.MethodGet, "/decisions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/decisions?page=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	router, _ := setupTestEnv(t)
	rec := doRequest(t, router, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
