package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterBlocklistRoutes(r chi.Router) {
	r.Get("/blocklist/check", CheckHostHandler)
	r.Get("/blocklist/stats", BlocklistStatsHandler)
}
