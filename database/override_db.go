package database

import (
	"fmt"

	"privacyguard/models"
)

// GetAllOverrides loads every persisted per-origin policy override, keyed
// by normalized origin.
func GetAllOverrides() (map[string]models.CookiePolicy, error) {
	rows, err := DB.Query("SELECT origin, policy FROM policy_overrides")
	if err != nil {
		return nil, fmt.Errorf("querying policy overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]models.CookiePolicy)
	for rows.Next() {
		var origin, policyStr string
		if err := rows.Scan(&origin, &policyStr); err != nil {
			return nil, fmt.Errorf("scanning policy override row: %w", err)
		}
		policy, err := models.ParseCookiePolicy(policyStr)
		if err != nil {
			return nil, fmt.Errorf("persisted override for %s: %w", origin, err)
		}
		overrides[origin] = policy
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating policy override rows: %w", err)
	}
	return overrides, nil
}

// ListOverrides returns the persisted overrides ordered by origin, for the
// API and CLI.
func ListOverrides() ([]models.PolicyOverride, error) {
	rows, err := DB.Query("SELECT origin, policy, created_at FROM policy_overrides ORDER BY origin ASC")
	if err != nil {
		return nil, fmt.Errorf("querying policy overrides: %w", err)
	}
	defer rows.Close()

	var overrides []models.PolicyOverride
	for rows.Next() {
		var o models.PolicyOverride
		var policyStr string
		if err := rows.Scan(&o.Origin, &policyStr, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning policy override row: %w", err)
		}
		o.Policy = models.CookiePolicy(policyStr)
		overrides = append(overrides, o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating policy override rows: %w", err)
	}
	return overrides, nil
}

// SaveOverride upserts a per-origin policy override.
func SaveOverride(origin string, policy models.CookiePolicy) error {
	_, err := DB.Exec("INSERT OR REPLACE INTO policy_overrides (origin, policy) VALUES (?, ?)", origin, string(policy))
	if err != nil {
		return fmt.Errorf("saving policy override for %s: %w", origin, err)
	}
	return nil
}

// DeleteOverride removes a per-origin policy override. Deleting a missing
// origin is not an error.
func DeleteOverride(origin string) error {
	_, err := DB.Exec("DELETE FROM policy_overrides WHERE origin = ?", origin)
	if err != nil {
		return fmt.Errorf("deleting policy override for %s: %w", origin, err)
	}
	return nil
}

// OverrideStore adapts this package to core.OverrideStore so the cookie
// engine can write exceptions through without importing database.
type OverrideStore struct{}

func (OverrideStore) SaveOverride(origin string, policy models.CookiePolicy) error {
	return SaveOverride(origin, policy)
}

func (OverrideStore) DeleteOverride(origin string) error {
	return DeleteOverride(origin)
}
