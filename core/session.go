package core

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"privacyguard/logger"
	"privacyguard/models"
)

// SessionContext is the privacy state for one browsing window: it owns one
// FingerprintProfile and one CookiePolicyEngine, and shares the blocklist
// matcher by reference. The constructor fully initializes the profile
// before returning, so no request can ever observe a half-built session.
type SessionContext struct {
	ID        string
	CreatedAt time.Time

	profile     *models.FingerprintProfile
	cookies     *CookiePolicyEngine
	matcher     atomic.Pointer[DomainMatcher]
	interceptor *RequestInterceptor
	seed        int64
	closed      atomic.Bool
}

// SessionConfig carries everything a session needs at creation time. All
// loading (blocklist, pools, persisted overrides) happens before the
// session exists; nothing here is fetched on the decision path.
type SessionConfig struct {
	Matcher   *DomainMatcher
	Pools     models.ProfilePools
	Policy    models.CookiePolicy
	Overrides map[string]models.CookiePolicy
	Store     OverrideStore

	// Seed pins the fingerprint draw for reproducible sessions (tests,
	// debugging). Zero means a fresh unpredictable seed.
	Seed int64
}

// NewSessionContext creates and registers a session. Any ConfigError
// (empty pool, bad policy, nil matcher) aborts creation; a session never
// starts with degraded protection.
func NewSessionContext(cfg SessionConfig) (*SessionContext, error) {
	if cfg.Matcher == nil {
		return nil, models.NewConfigError("session", "no blocklist matcher provided")
	}

	cookies, err := NewCookiePolicyEngine(cfg.Policy, cfg.Overrides, cfg.Store)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = unpredictableSeed()
	}
	profile, err := GenerateProfile(cfg.Pools, mathrand.New(mathrand.NewSource(seed)))
	if err != nil {
		return nil, err
	}

	s := &SessionContext{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		profile:   profile,
		cookies:   cookies,
		seed:      seed,
	}
	s.matcher.Store(cfg.Matcher)
	s.interceptor = &RequestInterceptor{
		matcher: &s.matcher,
		profile: profile,
		cookies: cookies,
	}

	registerSession(s)
	logger.Info("Session %s created (blocklist entries: %d, policy: %s)", s.ID, cfg.Matcher.Len(), cookies.Policy())
	return s, nil
}

// unpredictableSeed draws a session seed from the OS random source. The
// random source failing is a programming/environment error: falling back to
// a predictable fingerprint would defeat the protection, so it is fatal.
func unpredictableSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		logger.Fatal("System random source unavailable, cannot generate fingerprint seed: %v", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// OnRequest is the host-engine entry point for outbound requests. A closed
// session fails closed.
func (s *SessionContext) OnRequest(req models.Request) models.Decision {
	if s.closed.Load() {
		return models.Decision{Action: models.ActionBlock, CookieAction: models.CookieReject}
	}
	return s.interceptor.OnRequest(req)
}

// DecideCookie is the host-engine entry point for cookie set/read
// operations outside the request path (e.g. document.cookie).
func (s *SessionContext) DecideCookie(req models.Request, op models.CookieOp) models.CookieAction {
	if s.closed.Load() {
		return models.CookieReject
	}
	return s.cookies.Decide(req, op)
}

// Profile returns the session's immutable fingerprint profile.
func (s *SessionContext) Profile() *models.FingerprintProfile {
	return s.profile
}

// Cookies returns the session's cookie policy engine.
func (s *SessionContext) Cookies() *CookiePolicyEngine {
	return s.cookies
}

// Blocklist returns the currently active matcher.
func (s *SessionContext) Blocklist() *DomainMatcher {
	return s.matcher.Load()
}

// SwapBlocklist atomically replaces the matcher reference. Concurrent
// lookups finish against whichever snapshot they started with.
func (s *SessionContext) SwapBlocklist(m *DomainMatcher) {
	if m == nil {
		return
	}
	s.matcher.Store(m)
	logger.Info("Session %s blocklist swapped (%d entries)", s.ID, m.Len())
}

// Closed reports whether the session has been torn down.
func (s *SessionContext) Closed() bool {
	return s.closed.Load()
}

// Close tears the session down and removes it from the registry. Idempotent.
func (s *SessionContext) Close() {
	if s.closed.Swap(true) {
		return
	}
	unregisterSession(s.ID)
	logger.Info("Session %s closed", s.ID)
}

var (
	sessionsMu sync.RWMutex
	sessions   = make(map[string]*SessionContext)
)

func registerSession(s *SessionContext) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	sessions[s.ID] = s
}

func unregisterSession(id string) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	delete(sessions, id)
}

// GetSession looks up an active session by ID.
func GetSession(id string) (*SessionContext, bool) {
	sessionsMu.RLock()
	defer sessionsMu.RUnlock()
	s, ok := sessions[id]
	return s, ok
}

// ActiveSessions returns the active sessions ordered by creation time.
func ActiveSessions() []*SessionContext {
	sessionsMu.RLock()
	defer sessionsMu.RUnlock()
	out := make([]*SessionContext, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
