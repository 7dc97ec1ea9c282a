package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterSessionRoutes(r chi.Router) {
	r.Get("/sessions", ListSessionsHandler)
	r.Get("/sessions/{sessionID}/profile", GetSessionProfileHandler)
}
