package handlers

import (
	"github.com/go-chi/chi/v5"
)

func RegisterPolicyRoutes(r chi.Router) {
	r.Get("/policy", GetPolicyHandler)
	r.Put("/policy", SetPolicyHandler)
	r.Get("/policy/overrides", ListOverridesHandler)
	r.Post("/policy/overrides", SetOverrideHandler)
	r.Delete("/policy/overrides", ClearOverrideHandler)
}
