package database

import (
	"fmt"

	"privacyguard/models"
)

// InsertDecisionRecord appends one audit row to the decision log.
func InsertDecisionRecord(record *models.DecisionRecord) error {
	_, err := DB.Exec(`INSERT INTO decision_log (
		session_id, timestamp, request_method, request_url, action, cookie_action,
		matched_entry, is_third_party, is_https, client_ip, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.SessionID, record.Timestamp, record.RequestMethod, record.RequestURL,
		record.Action, record.CookieAction, record.MatchedEntry,
		record.IsThirdParty, record.IsHTTPS, record.ClientIP, record.DurationMs)
	if err != nil {
		return fmt.Errorf("inserting decision record: %w", err)
	}
	return nil
}

// GetDecisionRecordsPaginated returns a page of the decision log, newest
// first, plus the total row count.
func GetDecisionRecordsPaginated(limit, offset int) ([]models.DecisionRecord, int64, error) {
	var totalRecords int64
	if err := DB.QueryRow("SELECT COUNT(*) FROM decision_log").Scan(&totalRecords); err != nil {
		return nil, 0, fmt.Errorf("counting decision records: %w", err)
	}

	var records []models.DecisionRecord
	if totalRecords == 0 {
		return records, 0, nil
	}

	rows, err := DB.Query(`SELECT id, session_id, timestamp, request_method, request_url,
		action, cookie_action, matched_entry, is_third_party, is_https, client_ip, duration_ms
		FROM decision_log ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying decision records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.DecisionRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Timestamp, &r.RequestMethod, &r.RequestURL,
			&r.Action, &r.CookieAction, &r.MatchedEntry, &r.IsThirdParty, &r.IsHTTPS,
			&r.ClientIP, &r.DurationMs); err != nil {
			return nil, 0, fmt.Errorf("scanning decision record row: %w", err)
		}
		records = append(records, r)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating decision record rows: %w", err)
	}
	return records, totalRecords, nil
}

// CountDecisionsByAction aggregates the decision log by action for the
// stats surface.
func CountDecisionsByAction() (map[string]int64, error) {
	rows, err := DB.Query("SELECT action, COUNT(*) FROM decision_log GROUP BY action")
	if err != nil {
		return nil, fmt.Errorf("counting decisions by action: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("scanning decision count row: %w", err)
		}
		counts[action] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decision count rows: %w", err)
	}
	return counts, nil
}
