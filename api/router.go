package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"privacyguard/api/router/handlers"
	"privacyguard/logger"
)

// NewRouter creates and configures the management API router.
// All registered paths are relative to the /api base path.
func NewRouter() http.Handler {
	router := chi.NewRouter()

	handlers.RegisterHealthRoutes(router)
	handlers.RegisterBlocklistRoutes(router)
	handlers.RegisterPolicyRoutes(router)
	handlers.RegisterSessionRoutes(router)
	handlers.RegisterDecisionRoutes(router)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		logger.Error("API SUB-ROUTER CATCH-ALL: Unhandled route relative to /api: %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return router
}
