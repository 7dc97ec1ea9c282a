package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"privacyguard/config"
	"privacyguard/core"
	"privacyguard/database"
	"privacyguard/logger"
	"privacyguard/models"
)

type policyRequest struct {
	Policy string `json:"policy"`
}

type overrideRequest struct {
	Origin string `json:"origin"`
	Policy string `json:"policy"`
}

// GetPolicyHandler returns the active global cookie policy.
func GetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	fallback := models.CookiePolicy(config.AppConfig.Cookies.Policy)
	policy, err := database.GetCookiePolicySetting(fallback)
	if err != nil {
		logger.Error("GetPolicyHandler: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"policy": string(policy)})
}

// SetPolicyHandler persists a new global cookie policy and applies it to
// every active session.
func SetPolicyHandler(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("SetPolicyHandler: Error decoding request body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	policy, err := models.ParseCookiePolicy(strings.TrimSpace(req.Policy))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := database.SetCookiePolicySetting(policy); err != nil {
		logger.Error("SetPolicyHandler: Error persisting policy: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, session := range core.ActiveSessions() {
		if err := session.Cookies().SetPolicy(policy); err != nil {
			logger.Error("SetPolicyHandler: Error applying policy to session %s: %v", session.ID, err)
		}
	}

	logger.Info("Global cookie policy set to %s via API", policy)
	respondJSON(w, http.StatusOK, map[string]string{"policy": string(policy)})
}

// ListOverridesHandler lists the persisted per-origin overrides.
func ListOverridesHandler(w http.ResponseWriter, r *http.Request) {
	overrides, err := database.ListOverrides()
	if err != nil {
		logger.Error("ListOverridesHandler: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if overrides == nil { // Ensure an empty array is returned instead of null
		overrides = []models.PolicyOverride{}
	}
	respondJSON(w, http.StatusOK, overrides)
}

// SetOverrideHandler pins an origin to a policy, persists the exception,
// and applies it to every active session.
func SetOverrideHandler(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("SetOverrideHandler: Error decoding request body: %v", err)
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	policy, err := models.ParseCookiePolicy(strings.TrimSpace(req.Policy))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	origin := core.NormalizeOrigin(req.Origin)
	if origin == "" {
		respondError(w, http.StatusBadRequest, "origin must be a valid http(s) origin")
		return
	}

	if err := database.SaveOverride(origin, policy); err != nil {
		logger.Error("SetOverrideHandler: Error persisting override: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, session := range core.ActiveSessions() {
		if err := session.Cookies().SetOverride(origin, policy); err != nil {
			logger.Error("SetOverrideHandler: Error applying override to session %s: %v", session.ID, err)
		}
	}

	respondJSON(w, http.StatusCreated, models.PolicyOverride{Origin: origin, Policy: policy})
}

// ClearOverrideHandler removes an origin's exception everywhere.
func ClearOverrideHandler(w http.ResponseWriter, r *http.Request) {
	origin := core.NormalizeOrigin(r.URL.Query().Get("origin"))
	if origin == "" {
		respondError(w, http.StatusBadRequest, "origin query parameter must be a valid http(s) origin")
		return
	}

	if err := database.DeleteOverride(origin); err != nil {
		logger.Error("ClearOverrideHandler: Error deleting override: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, session := range core.ActiveSessions() {
		if err := session.Cookies().ClearOverride(origin); err != nil {
			logger.Error("ClearOverrideHandler: Error clearing override on session %s: %v", session.ID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"origin": origin, "status": "cleared"})
}
