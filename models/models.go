package models

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// NullString is a helper function to create a sql.NullString from a string.
// If the input string is empty, it returns a NullString with Valid set to false.
func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// Action is the top-level verdict of the interceptor for a request.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

// CookieAction is the verdict for a single cookie operation.
type CookieAction string

const (
	CookieAccept CookieAction = "accept"
	CookieReject CookieAction = "reject"
	CookieStrip  CookieAction = "strip"
)

// CookieOp distinguishes a cookie being set by a response from a cookie
// being read (sent) by a request. The two use different origins for
// override lookup.
type CookieOp string

const (
	CookieOpSet  CookieOp = "set"
	CookieOpRead CookieOp = "read"
)

// CookiePolicy is the closed set of global cookie policies.
type CookiePolicy string

const (
	PolicyBlockAll        CookiePolicy = "block_all"
	PolicyBlockThirdParty CookiePolicy = "block_third_party"
	PolicyAllowAll        CookiePolicy = "allow_all"
)

// ParseCookiePolicy validates a policy string coming from config, the CLI,
// or the API.
func ParseCookiePolicy(s string) (CookiePolicy, error) {
	switch CookiePolicy(s) {
	case PolicyBlockAll, PolicyBlockThirdParty, PolicyAllowAll:
		return CookiePolicy(s), nil
	}
	return "", fmt.Errorf("unknown cookie policy %q (must be one of: %s, %s, %s)",
		s, PolicyBlockAll, PolicyBlockThirdParty, PolicyAllowAll)
}

// Request is what the host engine hands the interceptor for every outbound
// request. FrameOrigin is the origin of the top-level document the request
// was issued from; it is empty or non-HTTP(S) for opaque contexts.
type Request struct {
	URL         string       `json:"url"`
	Method      string       `json:"method"`
	FrameOrigin string       `json:"frame_origin,omitempty"`
	Headers     http.Header  `json:"headers,omitempty"`
}

// Decision is produced fresh for every request and never persisted as
// state. A header mapped to the empty string in HeaderOverrides means
// "delete this header".
type Decision struct {
	Action          Action            `json:"action"`
	HeaderOverrides map[string]string `json:"header_overrides,omitempty"`
	CookieAction    CookieAction      `json:"cookie_action"`
	MatchedEntry    string            `json:"matched_entry,omitempty"`
}

// PolicyOverride is a user exception: a normalized origin pinned to a
// policy that beats the global one.
type PolicyOverride struct {
	Origin    string       `json:"origin"`
	Policy    CookiePolicy `json:"policy"`
	CreatedAt time.Time    `json:"created_at,omitempty" readOnly:"true"`
}

// DecisionRecord is the audit row written for every proxied request. It is
// write-only on the decision path; readers are the API and CLI.
type DecisionRecord struct {
	ID            int64          `json:"id" readOnly:"true"`
	SessionID     sql.NullString `json:"session_id,omitempty"`
	Timestamp     time.Time      `json:"timestamp" readOnly:"true"`
	RequestMethod sql.NullString `json:"request_method" example:"GET"`
	RequestURL    sql.NullString `json:"request_url" example:"https://ads.doubleclick.net/pixel"`
	Action        string         `json:"action" example:"block"`
	CookieAction  string         `json:"cookie_action" example:"reject"`
	MatchedEntry  sql.NullString `json:"matched_entry,omitempty" example:"doubleclick.net"`
	IsThirdParty  bool           `json:"is_third_party"`
	IsHTTPS       bool           `json:"is_https"`
	ClientIP      sql.NullString `json:"client_ip,omitempty"`
	DurationMs    int64          `json:"duration_ms,omitempty"`
}
