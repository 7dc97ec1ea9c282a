package core

import (
	"encoding/json"
	"math/rand"
	"os"

	"privacyguard/models"
)

// GenerateProfile draws one value per fingerprint field, independently and
// uniformly, from the configured pools. The draw order is fixed, so a given
// seed always yields the same profile. Fields are deliberately not
// correlated with one another (a "Google" WebGL vendor may pair with a
// Safari-flavored user agent); correlated synthesis is a different problem
// and is not attempted here.
func GenerateProfile(pools models.ProfilePools, rng *rand.Rand) (*models.FingerprintProfile, error) {
	if err := ValidatePools(pools); err != nil {
		return nil, err
	}
	profile := &models.FingerprintProfile{
		UserAgent:           pools.UserAgents[rng.Intn(len(pools.UserAgents))],
		ScreenResolution:    pools.ScreenResolutions[rng.Intn(len(pools.ScreenResolutions))],
		Timezone:            pools.Timezones[rng.Intn(len(pools.Timezones))],
		WebGLVendor:         pools.WebGLVendors[rng.Intn(len(pools.WebGLVendors))],
		WebGLRenderer:       pools.WebGLRenderers[rng.Intn(len(pools.WebGLRenderers))],
		HardwareConcurrency: pools.HardwareConcurrency[rng.Intn(len(pools.HardwareConcurrency))],
		Platform:            pools.Platforms[rng.Intn(len(pools.Platforms))],
		ColorDepth:          pools.ColorDepths[rng.Intn(len(pools.ColorDepths))],
		PixelRatio:          pools.PixelRatios[rng.Intn(len(pools.PixelRatios))],
		Plugin:              pools.Plugins[rng.Intn(len(pools.Plugins))],
	}
	// The profile owns its language slice; pools stay shareable.
	languages := pools.Languages[rng.Intn(len(pools.Languages))]
	profile.Languages = append([]string(nil), languages...)
	return profile, nil
}

// ProfileRand returns a rand source for profile generation. A zero seed
// means an unpredictable one, same as a fresh session gets.
func ProfileRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = unpredictableSeed()
	}
	return rand.New(rand.NewSource(seed))
}

// ValidatePools rejects any empty candidate pool with a ConfigError. A
// session must never be created from a pool set that cannot produce a full
// profile.
func ValidatePools(pools models.ProfilePools) error {
	checks := []struct {
		name string
		size int
	}{
		{"user_agents", len(pools.UserAgents)},
		{"screen_resolutions", len(pools.ScreenResolutions)},
		{"timezones", len(pools.Timezones)},
		{"webgl_vendors", len(pools.WebGLVendors)},
		{"webgl_renderers", len(pools.WebGLRenderers)},
		{"languages", len(pools.Languages)},
		{"hardware_concurrency", len(pools.HardwareConcurrency)},
		{"platforms", len(pools.Platforms)},
		{"color_depths", len(pools.ColorDepths)},
		{"pixel_ratios", len(pools.PixelRatios)},
		{"plugins", len(pools.Plugins)},
	}
	for _, c := range checks {
		if c.size == 0 {
			return models.NewConfigError("profile_pools", "pool %q is empty", c.name)
		}
	}
	for i, languageList := range pools.Languages {
		if len(languageList) == 0 {
			return models.NewConfigError("profile_pools", "languages entry %d is empty", i)
		}
	}
	return nil
}

// LoadPools reads a ProfilePools JSON file. An empty path returns the
// built-in defaults.
func LoadPools(path string) (models.ProfilePools, error) {
	if path == "" {
		return DefaultPools(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ProfilePools{}, models.NewConfigError("profile_pools", "reading %s: %v", path, err)
	}
	var pools models.ProfilePools
	if err := json.Unmarshal(data, &pools); err != nil {
		return models.ProfilePools{}, models.NewConfigError("profile_pools", "parsing %s: %v", path, err)
	}
	if err := ValidatePools(pools); err != nil {
		return models.ProfilePools{}, err
	}
	return pools, nil
}

// DefaultPools returns the built-in candidate pools used when no pools file
// is configured.
func DefaultPools() models.ProfilePools {
	return models.ProfilePools{
		UserAgents: []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15",
		},
		ScreenResolutions: []models.ScreenResolution{
			{Width: 1920, Height: 1080},
			{Width: 1366, Height: 768},
			{Width: 1280, Height: 720},
			{Width: 1024, Height: 768},
			{Width: 800, Height: 600},
		},
		Timezones: []string{
			"America/New_York",
			"America/Los_Angeles",
			"America/Chicago",
			"America/Denver",
			"America/Phoenix",
		},
		WebGLVendors:   []string{"Google", "Mozilla", "Apple", "Microsoft"},
		WebGLRenderers: []string{"Intel", "NVIDIA", "AMD", "Apple"},
		Languages: [][]string{
			{"en-US", "en"},
			{"en-GB", "en"},
			{"en-CA", "en"},
			{"en-AU", "en"},
		},
		HardwareConcurrency: []int{2, 4, 8, 12, 16},
		Platforms:           []string{"MacIntel", "Win32", "Linux x86_64", "iPhone"},
		ColorDepths:         []int{8, 16, 24, 32},
		PixelRatios:         []float64{1, 1.5, 2},
		Plugins:             []string{"Flash", "Java", "Silverlight", "QuickTime", "RealPlayer"},
	}
}
