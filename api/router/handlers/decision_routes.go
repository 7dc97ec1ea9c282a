package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterDecisionRoutes(r chi.Router) {
	r.Get("/decisions", ListDecisionsHandler)
}
