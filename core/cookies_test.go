package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"privacyguard/models"
)

// recordingStore captures persistence calls for assertions.
type recordingStore struct {
	saved   map[string]models.CookiePolicy
	deleted []string
	err     error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{saved: make(map[string]models.CookiePolicy)}
}

func (s *recordingStore) SaveOverride(origin string, policy models.CookiePolicy) error {
	if s.err != nil {
		return s.err
	}
	s.saved[origin] = policy
	return nil
}

func (s *recordingStore) DeleteOverride(origin string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, origin)
	return nil
}

func newEngine(t *testing.T, policy models.CookiePolicy) *CookiePolicyEngine {
	t.Helper()
	e, err := NewCookiePolicyEngine(policy, nil, nil)
	require.NoError(t, err)
	return e
}

func firstPartyRead() models.Request {
	return models.Request{
		URL:         "https://example.com/page",
		FrameOrigin: "https://example.com",
	}
}

func thirdPartyRead() models.Request {
	return models.Request{
		URL:         "https://tracker.net/px.gif",
		FrameOrigin: "https://example.com",
	}
}

func TestNewCookiePolicyEngineRejectsBadInputs(t *testing.T) {
	var cfgErr *models.ConfigError

	_, err := NewCookiePolicyEngine("sometimes_block", nil, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewCookiePolicyEngine(models.PolicyAllowAll,
		map[string]models.CookiePolicy{"not an origin": models.PolicyBlockAll}, nil)
	require.ErrorAs(t, err, &cfgErr)

	_, err = NewCookiePolicyEngine(models.PolicyAllowAll,
		map[string]models.CookiePolicy{"https://example.com": "bogus"}, nil)
	require.ErrorAs(t, err, &cfgErr)
}

func TestDecideGlobalPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy models.CookiePolicy
		req    models.Request
		op     models.CookieOp
		want   models.CookieAction
	}{
		{"allow_all first-party read", models.PolicyAllowAll, firstPartyRead(), models.CookieOpRead, models.CookieAccept},
		{"allow_all third-party set", models.PolicyAllowAll, thirdPartyRead(), models.CookieOpSet, models.CookieAccept},
		{"block_all read strips", models.PolicyBlockAll, firstPartyRead(), models.CookieOpRead, models.CookieStrip},
		{"block_all set rejects", models.PolicyBlockAll, firstPartyRead(), models.CookieOpSet, models.CookieReject},
		{"block_third_party first-party accepted", models.PolicyBlockThirdParty, firstPartyRead(), models.CookieOpRead, models.CookieAccept},
		{"block_third_party third-party read strips", models.PolicyBlockThirdParty, thirdPartyRead(), models.CookieOpRead, models.CookieStrip},
		{"block_third_party third-party set rejects", models.PolicyBlockThirdParty, thirdPartyRead(), models.CookieOpSet, models.CookieReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, tt.policy)
			assert.Equal(t, tt.want, e.Decide(tt.req, tt.op))
		})
	}
}

func TestDecideSubdomainIsFirstParty(t *testing.T) {
	e := newEngine(t, models.PolicyBlockThirdParty)
	req := models.Request{
		URL:         "https://cdn.example.com/app.js",
		FrameOrigin: "https://www.example.com",
	}
	assert.Equal(t, models.CookieAccept, e.Decide(req, models.CookieOpRead))
}

func TestDecideOpaqueFrameOriginFailsClosed(t *testing.T) {
	e := newEngine(t, models.PolicyBlockThirdParty)
	for _, origin := range []string{"", "about:blank", "data:text/html,x"} {
		req := models.Request{URL: "https://example.com/page", FrameOrigin: origin}
		assert.Equal(t, models.CookieStrip, e.Decide(req, models.CookieOpRead), "origin %q", origin)
		assert.Equal(t, models.CookieReject, e.Decide(req, models.CookieOpSet), "origin %q", origin)
	}
}

func TestOverrideBeatsGlobalPolicy(t *testing.T) {
	e := newEngine(t, models.PolicyBlockAll)
	require.NoError(t, e.SetOverride("https://example.com", models.PolicyAllowAll))

	// Read op keys the override on the frame origin.
	assert.Equal(t, models.CookieAccept, e.Decide(firstPartyRead(), models.CookieOpRead))

	// A frame without an override still gets the global policy.
	other := models.Request{URL: "https://other.com/p", FrameOrigin: "https://other.com"}
	assert.Equal(t, models.CookieStrip, e.Decide(other, models.CookieOpRead))
}

func TestOverrideKeyDependsOnOp(t *testing.T) {
	e := newEngine(t, models.PolicyBlockAll)
	require.NoError(t, e.SetOverride("https://tracker.net", models.PolicyAllowAll))

	req := thirdPartyRead()
	// Set keys on the target origin (tracker.net): override applies.
	assert.Equal(t, models.CookieAccept, e.Decide(req, models.CookieOpSet))
	// Read keys on the frame origin (example.com): no override there.
	assert.Equal(t, models.CookieStrip, e.Decide(req, models.CookieOpRead))
}

func TestClearOverrideRestoresGlobalPolicy(t *testing.T) {
	e := newEngine(t, models.PolicyBlockAll)
	require.NoError(t, e.SetOverride("https://example.com", models.PolicyAllowAll))
	assert.Equal(t, models.CookieAccept, e.Decide(firstPartyRead(), models.CookieOpRead))

	require.NoError(t, e.ClearOverride("https://example.com"))
	assert.Equal(t, models.CookieStrip, e.Decide(firstPartyRead(), models.CookieOpRead))

	// Clearing an absent override is a no-op.
	require.NoError(t, e.ClearOverride("https://example.com"))
}

func TestOverrideOriginNormalization(t *testing.T) {
	e := newEngine(t, models.PolicyBlockAll)
	require.NoError(t, e.SetOverride("https://Example.COM:443", models.PolicyAllowAll))

	overrides := e.Overrides()
	_, ok := overrides["https://example.com"]
	assert.True(t, ok, "override key must be the normalized origin, got %v", overrides)

	assert.Equal(t, models.CookieAccept, e.Decide(firstPartyRead(), models.CookieOpRead))
}

func TestSetOverrideRejectsBadInputs(t *testing.T) {
	e := newEngine(t, models.PolicyAllowAll)
	assert.Error(t, e.SetOverride("not an origin", models.PolicyBlockAll))
	assert.Error(t, e.SetOverride("ftp://example.com", models.PolicyBlockAll))
	assert.Error(t, e.SetOverride("https://example.com", "bogus"))
}

func TestOverridesArePersisted(t *testing.T) {
	store := newRecordingStore()
	e, err := NewCookiePolicyEngine(models.PolicyBlockThirdParty, nil, store)
	require.NoError(t, err)

	require.NoError(t, e.SetOverride("https://example.com", models.PolicyAllowAll))
	assert.Equal(t, models.PolicyAllowAll, store.saved["https://example.com"])

	require.NoError(t, e.ClearOverride("https://example.com"))
	assert.Equal(t, []string{"https://example.com"}, store.deleted)
}

func TestSetPolicySwapsAtRuntime(t *testing.T) {
	e := newEngine(t, models.PolicyAllowAll)
	assert.Equal(t, models.CookieAccept, e.Decide(thirdPartyRead(), models.CookieOpRead))

	require.NoError(t, e.SetPolicy(models.PolicyBlockAll))
	assert.Equal(t, models.PolicyBlockAll, e.Policy())
	assert.Equal(t, models.CookieStrip, e.Decide(thirdPartyRead(), models.CookieOpRead))

	assert.Error(t, e.SetPolicy("bogus"))
	assert.Equal(t, models.PolicyBlockAll, e.Policy())
}

func TestOverridesReturnsCopy(t *testing.T) {
	e := newEngine(t, models.PolicyBlockAll)
	require.NoError(t, e.SetOverride("https://example.com", models.PolicyAllowAll))

	snapshot := e.Overrides()
	delete(snapshot, "https://example.com")
	assert.Len(t, e.Overrides(), 1, "mutating the returned map must not affect the engine")
}
