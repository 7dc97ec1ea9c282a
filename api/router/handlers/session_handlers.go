package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"privacyguard/core"
)

type sessionSummary struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	CookiePolicy     string    `json:"cookie_policy"`
	BlocklistEntries int       `json:"blocklist_entries"`
}

// ListSessionsHandler lists the active browsing sessions.
func ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions := core.ActiveSessions()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:               s.ID,
			CreatedAt:        s.CreatedAt,
			CookiePolicy:     string(s.Cookies().Policy()),
			BlocklistEntries: s.Blocklist().Len(),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetSessionProfileHandler returns a session's page-visible fingerprint
// profile. Read-only; profiles are immutable for the session's lifetime.
func GetSessionProfileHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, ok := core.GetSession(sessionID)
	if !ok {
		respondError(w, http.StatusNotFound, "no active session with that ID")
		return
	}
	respondJSON(w, http.StatusOK, session.Profile())
}
