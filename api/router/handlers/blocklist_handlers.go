package handlers

import (
	"net/http"
	"strings"

	"privacyguard/core"
	"privacyguard/database"
	"privacyguard/logger"
)

// CheckHostHandler answers the matcher's verdict for a single host.
func CheckHostHandler(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		respondError(w, http.StatusBadRequest, "host query parameter is required")
		return
	}

	matcher := core.ActiveBlocklist()
	if matcher == nil {
		respondError(w, http.StatusServiceUnavailable, "blocklist not loaded yet")
		return
	}

	blocked, entry := matcher.Match(host)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"host":          core.NormalizeHost(host),
		"blocked":       blocked,
		"matched_entry": entry,
	})
}

// BlocklistStatsHandler reports the blocklist size and the decision-log
// action counts.
func BlocklistStatsHandler(w http.ResponseWriter, r *http.Request) {
	matcher := core.ActiveBlocklist()
	if matcher == nil {
		respondError(w, http.StatusServiceUnavailable, "blocklist not loaded yet")
		return
	}

	stats := map[string]interface{}{
		"entries": matcher.Len(),
	}
	if database.DB != nil {
		counts, err := database.CountDecisionsByAction()
		if err != nil {
			logger.Error("BlocklistStatsHandler: Error counting decisions: %v", err)
		} else {
			stats["decisions"] = counts
		}
	}
	respondJSON(w, http.StatusOK, stats)
}
