package models

// CookiePolicyKey is the database setting key used to store the active global cookie policy.
const CookiePolicyKey = "cookie_policy"

// FingerprintSeedKey is the database setting key for a pinned fingerprint seed.
// Empty means a fresh unpredictable seed per session, which is the default.
const FingerprintSeedKey = "fingerprint_seed"
