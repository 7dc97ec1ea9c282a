package core

import (
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"

	"privacyguard/logger"
	"privacyguard/models"
)

// DefaultTrackerDomains is the built-in blocklist used when no sources are
// configured: the usual social, analytics, and ad-network suspects.
// Subdomain coverage is implicit via suffix matching.
var DefaultTrackerDomains = []string{
	// Social media tracking
	"facebook.com", "facebook.net", "fbcdn.net",
	"instagram.com",
	"twitter.com", "twimg.com", "t.co",
	"linkedin.com", "licdn.com",
	"tiktok.com", "tiktokcdn.com",

	// Google tracking
	"google-analytics.com", "googletagmanager.com",
	"googleadservices.com", "doubleclick.net",
	"googlesyndication.com",

	// Other major trackers
	"amazon-adsystem.com",
	"hotjar.com", "mixpanel.com", "amplitude.com",
	"segment.com", "optimizely.com", "crazyegg.com",

	// Ad networks
	"adnxs.com", "adsystem.com", "adtech.com",
	"criteo.com", "taboola.com", "outbrain.com",
	"adroll.com", "adform.com", "pubmatic.com",
}

// DefaultJSONEntriesPath is the gjson path used to pull the domain array
// out of JSON-formatted blocklists when none is configured.
const DefaultJSONEntriesPath = "entries"

// remoteFetchTimeout bounds startup fetches. The decision path never does
// network I/O; sources are consumed exactly once, before any request.
const remoteFetchTimeout = 30 * time.Second

// LoadBlocklist reads every configured source (local files, optionally
// gzip- or brotli-compressed, plain text or JSON, or remote HTTP(S) lists),
// merges the entries, and builds the matcher. No sources means the built-in
// tracker list. Any unreadable source or malformed entry is a ConfigError:
// the blocklist never silently degrades to empty.
func LoadBlocklist(sources []string, jsonEntriesPath string) (*DomainMatcher, error) {
	if len(sources) == 0 {
		logger.Info("No blocklist sources configured, using built-in tracker list (%d entries)", len(DefaultTrackerDomains))
		return LoadMatcher(DefaultTrackerDomains)
	}
	if jsonEntriesPath == "" {
		jsonEntriesPath = DefaultJSONEntriesPath
	}

	var entries []string
	for _, source := range sources {
		data, err := readBlocklistSource(source)
		if err != nil {
			return nil, models.NewConfigError("blocklist", "source %s: %v", source, err)
		}
		parsed, err := parseBlocklistData(source, data, jsonEntriesPath)
		if err != nil {
			return nil, err
		}
		logger.Info("Blocklist source %s contributed %d entries", source, len(parsed))
		entries = append(entries, parsed...)
	}
	return LoadMatcher(entries)
}

func readBlocklistSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return fetchRemoteList(source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	switch {
	case strings.HasSuffix(source, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	case strings.HasSuffix(source, ".br"):
		reader = brotli.NewReader(f)
	}
	return io.ReadAll(reader)
}

func fetchRemoteList(listURL string) ([]byte, error) {
	client := &http.Client{
		Timeout: remoteFetchTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		},
	}
	resp, err := client.Get(listURL)
	if err != nil {
		return nil, fmt.Errorf("fetching remote list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote list: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func parseBlocklistData(source string, data []byte, jsonEntriesPath string) ([]string, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasSuffix(strings.TrimSuffix(strings.TrimSuffix(source, ".gz"), ".br"), ".json") ||
		strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return parseJSONList(source, trimmed, jsonEntriesPath)
	}
	return parseTextList(trimmed), nil
}

// parseJSONList extracts the domain array from a JSON list via a gjson
// path. A bare JSON array of strings works with path "@this".
func parseJSONList(source, data, jsonEntriesPath string) ([]string, error) {
	if strings.HasPrefix(data, "[") {
		jsonEntriesPath = "@this"
	}
	result := gjson.Get(data, jsonEntriesPath)
	if !result.Exists() || !result.IsArray() {
		return nil, models.NewConfigError("blocklist", "source %s: gjson path %q did not resolve to an array", source, jsonEntriesPath)
	}
	var entries []string
	for _, item := range result.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			entries = append(entries, s)
		}
	}
	return entries, nil
}

// parseTextList handles one-domain-per-line lists, including hosts-file
// style lines ("0.0.0.0 tracker.example"). Blank lines and #-comments are
// skipped.
func parseTextList(data string) []string {
	var entries []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		fields := strings.Fields(line)
		if len(fields) == 2 && (fields[0] == "0.0.0.0" || fields[0] == "127.0.0.1") {
			entries = append(entries, fields[1])
			continue
		}
		if len(fields) == 1 {
			entries = append(entries, fields[0])
		}
	}
	return entries
}

// The process-wide blocklist shared by all sessions: host-address-book
// data with no per-session mutation. Swapping it re-points every active
// session at the new snapshot.
var activeBlocklist atomic.Pointer[DomainMatcher]

// SetActiveBlocklist publishes a matcher process-wide and re-points all
// active sessions at it.
func SetActiveBlocklist(m *DomainMatcher) {
	if m == nil {
		return
	}
	activeBlocklist.Store(m)
	for _, s := range ActiveSessions() {
		s.SwapBlocklist(m)
	}
}

// ActiveBlocklist returns the process-wide matcher, or nil before startup
// loading has run.
func ActiveBlocklist() *DomainMatcher {
	return activeBlocklist.Load()
}
