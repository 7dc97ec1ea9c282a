package core

import (
	"strings"

	"privacyguard/logger"
	"privacyguard/models"
)

// DomainMatcher holds the normalized tracker blocklist and answers "is this
// host tracked?". It is immutable after LoadMatcher; concurrent lookups are
// plain map reads and need no locking. Reloading means building a new
// matcher and swapping the reference (see SessionContext.SwapBlocklist).
type DomainMatcher struct {
	entries map[string]struct{}
}

// LoadMatcher builds a matcher from blocklist entries.
//
// Normalization policy: entries are lowercased and a trailing dot is
// stripped, with a warning logged for anything that changed. Entries that
// carry a scheme, a path, or whitespace are rejected with a ConfigError —
// those indicate a mis-exported list, not a fixable formatting slip.
// Duplicates collapse silently; the blocklist is a set.
func LoadMatcher(rawEntries []string) (*DomainMatcher, error) {
	m := &DomainMatcher{entries: make(map[string]struct{}, len(rawEntries))}
	for _, raw := range rawEntries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			return nil, models.NewConfigError("blocklist", "empty entry")
		}
		if strings.Contains(entry, "://") {
			return nil, models.NewConfigError("blocklist", "entry %q contains a scheme", entry)
		}
		if strings.ContainsAny(entry, "/ \t") {
			return nil, models.NewConfigError("blocklist", "entry %q contains a path or whitespace", entry)
		}
		normalized := strings.TrimSuffix(strings.ToLower(entry), ".")
		if normalized == "" {
			return nil, models.NewConfigError("blocklist", "entry %q is empty after normalization", entry)
		}
		if normalized != entry {
			logger.Warn("Blocklist entry %q normalized to %q", entry, normalized)
		}
		m.entries[normalized] = struct{}{}
	}
	return m, nil
}

// Blocked reports whether host equals a blocklist entry or is a subdomain
// of one. Matching respects label boundaries: "ads.doubleclick.net"
// matches entry "doubleclick.net", "mydoubleclick.net" does not.
func (m *DomainMatcher) Blocked(host string) bool {
	blocked, _ := m.Match(host)
	return blocked
}

// Match is Blocked plus the entry that matched. The cost is one map lookup
// per label: the candidate suffix loses its leftmost label on every
// iteration, so the whole blocklist is never scanned.
func (m *DomainMatcher) Match(host string) (blocked bool, entry string) {
	candidate := NormalizeHost(host)
	for candidate != "" {
		if _, ok := m.entries[candidate]; ok {
			return true, candidate
		}
		dot := strings.IndexByte(candidate, '.')
		if dot < 0 {
			break
		}
		candidate = candidate[dot+1:]
	}
	return false, ""
}

// Len returns the number of distinct blocklist entries.
func (m *DomainMatcher) Len() int {
	return len(m.entries)
}

// NormalizeHost lowercases a host and strips surrounding whitespace, a
// trailing dot, IPv6 brackets, and any port. Lookup inputs are expected to
// arrive normalized already; this is the defensive pass for ones that are
// not.
func NormalizeHost(host string) string {
	h := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if strings.HasPrefix(h, "[") {
		if end := strings.IndexByte(h, ']'); end > 0 {
			return h[1:end]
		}
		return strings.TrimPrefix(h, "[")
	}
	// A single colon is host:port; more than one is a bare IPv6 literal.
	if strings.Count(h, ":") == 1 {
		h = h[:strings.IndexByte(h, ':')]
	}
	return h
}
