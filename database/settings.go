package database

import (
	"database/sql"
	"fmt"
	"strconv"

	"privacyguard/models"
)

// GetSetting retrieves a specific setting value from the app_settings table.
func GetSetting(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil // Not set yet, not an error
		}
		return "", fmt.Errorf("failed to get setting '%s': %w", key, err)
	}
	return value, nil
}

// SetSetting saves or updates a specific setting value in the app_settings table.
func SetSetting(key, value string) error {
	stmt, err := DB.Prepare("INSERT OR REPLACE INTO app_settings (key, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare set setting statement for key '%s': %w", key, err)
	}
	defer stmt.Close()

	if _, err = stmt.Exec(key, value); err != nil {
		return fmt.Errorf("failed to execute set setting for key '%s': %w", key, err)
	}
	return nil
}

// GetCookiePolicySetting reads the persisted global cookie policy. Returns
// the fallback when nothing has been persisted yet.
func GetCookiePolicySetting(fallback models.CookiePolicy) (models.CookiePolicy, error) {
	value, err := GetSetting(models.CookiePolicyKey)
	if err != nil {
		return "", err
	}
	if value == "" {
		return fallback, nil
	}
	policy, err := models.ParseCookiePolicy(value)
	if err != nil {
		return "", fmt.Errorf("persisted cookie policy is invalid: %w", err)
	}
	return policy, nil
}

// SetCookiePolicySetting persists the global cookie policy.
func SetCookiePolicySetting(policy models.CookiePolicy) error {
	if _, err := models.ParseCookiePolicy(string(policy)); err != nil {
		return err
	}
	return SetSetting(models.CookiePolicyKey, string(policy))
}

// GetFingerprintSeedSetting reads a pinned fingerprint seed. Returns the
// fallback (normally 0, meaning unpredictable per session) when nothing has
// been persisted.
func GetFingerprintSeedSetting(fallback int64) (int64, error) {
	value, err := GetSetting(models.FingerprintSeedKey)
	if err != nil {
		return 0, err
	}
	if value == "" {
		return fallback, nil
	}
	seed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("persisted fingerprint seed is invalid: %w", err)
	}
	return seed, nil
}
