package core

import (
	"sync"
	"sync/atomic"

	"privacyguard/logger"
	"privacyguard/models"
)

// OverrideStore persists per-origin policy overrides so user exceptions
// survive restarts. The engine works without one (nil store).
type OverrideStore interface {
	SaveOverride(origin string, policy models.CookiePolicy) error
	DeleteOverride(origin string) error
}

// CookiePolicyEngine decides accept/reject/strip for every cookie
// operation. The global policy and the override map are both published via
// atomic snapshots: readers never lock, writers copy, replace, and swap.
type CookiePolicyEngine struct {
	mu        sync.Mutex   // serializes writers only
	policy    atomic.Value // models.CookiePolicy
	overrides atomic.Value // map[string]models.CookiePolicy, never mutated in place
	store     OverrideStore
}

// NewCookiePolicyEngine builds an engine with the given global policy and
// initial overrides (keys are normalized before storage). store may be nil.
func NewCookiePolicyEngine(policy models.CookiePolicy, overrides map[string]models.CookiePolicy, store OverrideStore) (*CookiePolicyEngine, error) {
	if _, err := models.ParseCookiePolicy(string(policy)); err != nil {
		return nil, models.NewConfigError("cookie_policy", "%v", err)
	}
	snapshot := make(map[string]models.CookiePolicy, len(overrides))
	for origin, p := range overrides {
		normalized := NormalizeOrigin(origin)
		if normalized == "" {
			return nil, models.NewConfigError("cookie_policy", "override origin %q is not a valid http(s) origin", origin)
		}
		if _, err := models.ParseCookiePolicy(string(p)); err != nil {
			return nil, models.NewConfigError("cookie_policy", "override for %q: %v", origin, err)
		}
		snapshot[normalized] = p
	}
	e := &CookiePolicyEngine{store: store}
	e.policy.Store(policy)
	e.overrides.Store(snapshot)
	return e, nil
}

// Policy returns the active global policy.
func (e *CookiePolicyEngine) Policy() models.CookiePolicy {
	return e.policy.Load().(models.CookiePolicy)
}

// SetPolicy swaps the global policy at runtime.
func (e *CookiePolicyEngine) SetPolicy(policy models.CookiePolicy) error {
	if _, err := models.ParseCookiePolicy(string(policy)); err != nil {
		return err
	}
	e.policy.Store(policy)
	logger.Info("Cookie policy set to %s", policy)
	return nil
}

// Overrides returns a copy of the current override map for inspection.
func (e *CookiePolicyEngine) Overrides() map[string]models.CookiePolicy {
	current := e.overrides.Load().(map[string]models.CookiePolicy)
	out := make(map[string]models.CookiePolicy, len(current))
	for origin, p := range current {
		out[origin] = p
	}
	return out
}

// SetOverride pins an origin to a policy that beats the global one. The
// snapshot is copied and swapped; in-flight readers keep the old map.
func (e *CookiePolicyEngine) SetOverride(origin string, policy models.CookiePolicy) error {
	if _, err := models.ParseCookiePolicy(string(policy)); err != nil {
		return err
	}
	normalized := NormalizeOrigin(origin)
	if normalized == "" {
		return models.NewConfigError("cookie_policy", "origin %q is not a valid http(s) origin", origin)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.overrides.Load().(map[string]models.CookiePolicy)
	next := make(map[string]models.CookiePolicy, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[normalized] = policy
	e.overrides.Store(next)

	if e.store != nil {
		if err := e.store.SaveOverride(normalized, policy); err != nil {
			logger.Error("Failed to persist cookie policy override for %s: %v", normalized, err)
			return err
		}
	}
	logger.Info("Cookie policy override set: %s -> %s", normalized, policy)
	return nil
}

// ClearOverride removes an origin's exception, restoring global-policy
// behavior for it.
func (e *CookiePolicyEngine) ClearOverride(origin string) error {
	normalized := NormalizeOrigin(origin)
	if normalized == "" {
		return models.NewConfigError("cookie_policy", "origin %q is not a valid http(s) origin", origin)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.overrides.Load().(map[string]models.CookiePolicy)
	if _, ok := current[normalized]; !ok {
		return nil
	}
	next := make(map[string]models.CookiePolicy, len(current))
	for k, v := range current {
		if k != normalized {
			next[k] = v
		}
	}
	e.overrides.Store(next)

	if e.store != nil {
		if err := e.store.DeleteOverride(normalized); err != nil {
			logger.Error("Failed to delete persisted cookie policy override for %s: %v", normalized, err)
			return err
		}
	}
	logger.Info("Cookie policy override cleared: %s", normalized)
	return nil
}

// Decide runs the policy state machine for one cookie operation.
//
// Override lookup uses the request target's origin for Set (the site
// storing the cookie) and the requesting frame's origin for Read. A
// rejecting outcome maps to Reject for Set and Strip for Read: a refused
// store is an outright rejection, while a refused read just removes the
// Cookie header and lets the request proceed.
func (e *CookiePolicyEngine) Decide(req models.Request, op models.CookieOp) models.CookieAction {
	policy := e.Policy()

	var overrideKey string
	switch op {
	case models.CookieOpSet:
		overrideKey = OriginOfURL(req.URL)
	case models.CookieOpRead:
		overrideKey = NormalizeOrigin(req.FrameOrigin)
	}
	if overrideKey != "" {
		if p, ok := e.overrides.Load().(map[string]models.CookiePolicy)[overrideKey]; ok {
			policy = p
		}
	}

	switch policy {
	case models.PolicyAllowAll:
		return models.CookieAccept
	case models.PolicyBlockAll:
		return rejectAction(op)
	case models.PolicyBlockThirdParty:
		if RequestIsThirdParty(req) {
			return rejectAction(op)
		}
		return models.CookieAccept
	}
	// Policies are validated on the way in; an unknown value here fails closed.
	return rejectAction(op)
}

func rejectAction(op models.CookieOp) models.CookieAction {
	if op == models.CookieOpRead {
		return models.CookieStrip
	}
	return models.CookieReject
}
