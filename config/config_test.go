package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, ProviderModeMock, cfg.Auth.Mode)
	assert.Equal(t, "/", cfg.Auth.RootRoute)
	assert.Equal(t, "/admin/login", cfg.Auth.AdminLoginRoute)
	assert.Equal(t, 3, cfg.Reconciler.ProfileAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconciler.ProfileRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Reconciler.FetchTimeout)
	assert.Equal(t, "identity:customer", cfg.Reconciler.CustomerCacheKey)
	assert.Equal(t, "identity:admin", cfg.Reconciler.AdminCacheKey)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 8*time.Hour, cfg.Auth.DevIdP.SessionDuration)
}

func TestDevIdPConfig_SessionDurationOverride(t *testing.T) {
	t.Setenv("DEV_IDP_SESSION_DURATION", "30m")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))

	assert.Equal(t, 30*time.Minute, cfg.Auth.DevIdP.SessionDuration)
}

func TestAppConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("OIDC_CLIENT_ID", "storefront-app")
	t.Setenv("RECONCILER_PROFILE_ATTEMPTS", "5")
	t.Setenv("RECONCILER_PROFILE_RETRY_DELAY", "250ms")
	t.Setenv("DB_HOST", "db.internal")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, ProviderModeOIDC, cfg.Auth.Mode)
	assert.Equal(t, "storefront-app", cfg.Auth.OIDC.ClientID)
	assert.Equal(t, 5, cfg.Reconciler.ProfileAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Reconciler.ProfileRetryDelay)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
}

func TestProviderMode_UnmarshalText(t *testing.T) {
	var mode ProviderMode
	require.NoError(t, mode.UnmarshalText([]byte("OIDC")))
	assert.Equal(t, ProviderModeOIDC, mode)

	require.NoError(t, mode.UnmarshalText([]byte("mock")))
	assert.Equal(t, ProviderModeMock, mode)

	assert.Error(t, mode.UnmarshalText([]byte("saml")))
}

func TestReconcilerConfig_SanitizeClamps(t *testing.T) {
	cfg := ReconcilerConfig{ProfileAttempts: 0, ProfileRetryDelay: -1, FetchTimeout: 0}
	cfg.Sanitize()

	assert.Equal(t, 1, cfg.ProfileAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.ProfileRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "identity:customer", cfg.CustomerCacheKey)
}

func TestReconcilerConfig_SanitizeUpperBound(t *testing.T) {
	cfg := ReconcilerConfig{ProfileAttempts: 50}
	cfg.Sanitize()
	assert.Equal(t, 10, cfg.ProfileAttempts)
}

func TestReconcilerConfig_SanitizeCollidingKeys(t *testing.T) {
	cfg := ReconcilerConfig{CustomerCacheKey: "identity:shared", AdminCacheKey: "identity:shared"}
	cfg.Sanitize()
	assert.NotEqual(t, cfg.CustomerCacheKey, cfg.AdminCacheKey)
}

func TestDetectDevMode_NodeEnvFallback(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
}
