package handlers

import (
	"net/http"
	"strconv"

	"privacyguard/database"
	"privacyguard/logger"
	"privacyguard/models"
)

const (
	defaultDecisionPageSize = 50
	maxDecisionPageSize     = 500
)

// ListDecisionsHandler serves the decision audit log, newest first.
func ListDecisionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultDecisionPageSize
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit parameter, must be a positive integer")
			return
		}
		limit = parsed
		if limit > maxDecisionPageSize {
			limit = maxDecisionPageSize
		}
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		parsed, err := strconv.Atoi(pageStr)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, "Invalid page parameter, must be a positive integer")
			return
		}
		page = parsed
	}

	records, total, err := database.GetDecisionRecordsPaginated(limit, (page-1)*limit)
	if err != nil {
		logger.Error("ListDecisionsHandler: Error querying decision log: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if records == nil { // Ensure an empty array is returned instead of null
		records = []models.DecisionRecord{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"page":          page,
		"limit":         limit,
		"total_records": total,
		"records":       records,
	})
}
