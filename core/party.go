package core

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"privacyguard/models"
)

// RegistrableDomain returns the effective top-level domain plus one label
// for a host ("sub.example.com" -> "example.com"), or "" when the host has
// none (IP literals, bare TLDs, empty strings).
func RegistrableDomain(host string) string {
	h := NormalizeHost(host)
	if net.ParseIP(h) != nil {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(h)
	if err != nil {
		return ""
	}
	return domain
}

// IsThirdParty reports whether targetHost and the top-level document origin
// belong to different registrable domains. Comparing eTLD+1 rather than
// raw hostnames keeps "sub.example.com" and "example.com" same-party while
// "example.com" and "example.org" are not. An unparseable or non-HTTP(S)
// frame origin is treated as third-party (fail closed).
func IsThirdParty(targetHost, frameOrigin string) bool {
	frame, err := url.Parse(strings.TrimSpace(frameOrigin))
	if err != nil || frame.Hostname() == "" {
		return true
	}
	if frame.Scheme != "http" && frame.Scheme != "https" {
		return true
	}
	targetDomain := RegistrableDomain(targetHost)
	frameDomain := RegistrableDomain(frame.Hostname())
	if targetDomain == "" || frameDomain == "" {
		// No registrable domain on one side (IP literals and the like):
		// fall back to exact host comparison.
		return NormalizeHost(targetHost) != NormalizeHost(frame.Hostname())
	}
	return targetDomain != frameDomain
}

// RequestIsThirdParty derives the third-party bit for a request. A request
// whose URL cannot yield a host is third-party (fail closed).
func RequestIsThirdParty(req models.Request) bool {
	u, err := url.Parse(req.URL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	return IsThirdParty(u.Hostname(), req.FrameOrigin)
}

// NormalizeOrigin canonicalizes an origin to scheme://host[:port] for use
// as an override-map key. Default ports are dropped. Non-HTTP(S) and
// hostless origins normalize to "" and never match an override.
func NormalizeOrigin(origin string) string {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	host := NormalizeHost(u.Hostname())
	if host == "" {
		return ""
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return scheme + "://" + host + ":" + port
	}
	return scheme + "://" + host
}

// OriginOfURL reduces a full URL to its normalized origin, or "" when the
// URL has no usable scheme+host.
func OriginOfURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return NormalizeOrigin(u.Scheme + "://" + u.Host)
}
