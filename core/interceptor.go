package core

import (
	"net/url"
	"sync/atomic"

	"privacyguard/logger"
	"privacyguard/models"
)

// RequestInterceptor is the per-session orchestrator: for every outbound
// request it consults the blocklist, then the fingerprint profile and the
// cookie engine, and folds the answers into one Decision. Decisions are
// pure functions of current state: no I/O, no blocking, no retries.
type RequestInterceptor struct {
	matcher *atomic.Pointer[DomainMatcher]
	profile *models.FingerprintProfile
	cookies *CookiePolicyEngine
}

// OnRequest evaluates a request. Order matters and short-circuits:
//
//  1. Unparseable URL: fail-closed Block. The only recoverable error.
//  2. Blocked host: Block with no fingerprint headers attached — a blocked
//     request never leaks identity overrides.
//  3. Otherwise Allow with the profile's header overrides and the cookie
//     engine's verdict for the outgoing Cookie header.
func (ri *RequestInterceptor) OnRequest(req models.Request) models.Decision {
	host, err := hostOfRequestURL(req.URL)
	if err != nil {
		logger.ProxyDebug("Blocking unparseable request URL: %v", err)
		return models.Decision{
			Action:       models.ActionBlock,
			CookieAction: models.CookieReject,
		}
	}

	if blocked, entry := ri.matcher.Load().Match(host); blocked {
		return models.Decision{
			Action:       models.ActionBlock,
			CookieAction: models.CookieReject,
			MatchedEntry: entry,
		}
	}

	return models.Decision{
		Action:          models.ActionAllow,
		HeaderOverrides: ri.profile.Headers(),
		CookieAction:    ri.cookies.Decide(req, models.CookieOpRead),
	}
}

// hostOfRequestURL extracts the host from a request URL, returning an
// InvalidURLError when the URL does not parse into scheme+host.
func hostOfRequestURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &models.InvalidURLError{RawURL: rawURL, Err: err}
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", &models.InvalidURLError{RawURL: rawURL}
	}
	return u.Hostname(), nil
}
