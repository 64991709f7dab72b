package config

import "time"

// ReconcilerConfig controls the session reconciler's retry budget, fetch
// timeout, and per-store cache keys.
type ReconcilerConfig struct {
	// ProfileAttempts caps total profile fetch attempts per resolution.
	ProfileAttempts int `env:"PROFILE_ATTEMPTS" envDefault:"3"`

	// ProfileRetryDelay is the fixed inter-attempt delay for profile fetches.
	ProfileRetryDelay time.Duration `env:"PROFILE_RETRY_DELAY" envDefault:"500ms"`

	// FetchTimeout bounds each individual network call.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`

	// CustomerCacheKey and AdminCacheKey are the fixed storage keys for the
	// two persisted identity records. They must differ so the two stores
	// stay independent.
	CustomerCacheKey string `env:"CUSTOMER_CACHE_KEY" envDefault:"identity:customer"`
	AdminCacheKey    string `env:"ADMIN_CACHE_KEY"    envDefault:"identity:admin"`
}

// Sanitize applies guardrails to reconciler configuration.
func (c *ReconcilerConfig) Sanitize() {
	if c.ProfileAttempts < 1 {
		c.ProfileAttempts = 1
	}
	if c.ProfileAttempts > 10 {
		c.ProfileAttempts = 10
	}
	if c.ProfileRetryDelay <= 0 {
		c.ProfileRetryDelay = 500 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CustomerCacheKey == "" {
		c.CustomerCacheKey = "identity:customer"
	}
	if c.AdminCacheKey == "" {
		c.AdminCacheKey = "identity:admin"
	}
	if c.AdminCacheKey == c.CustomerCacheKey {
		c.AdminCacheKey = c.CustomerCacheKey + ":admin"
	}
}
