package config

import (
	"fmt"
	"strings"
	"time"
)

// ProviderMode represents which identity provider implementation to use.
type ProviderMode string

const (
	// ProviderModeOIDC uses a real OIDC identity provider.
	ProviderModeOIDC ProviderMode = "oidc"
	// ProviderModeMock uses the in-process dev identity provider.
	ProviderModeMock ProviderMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProviderMode.
func (p *ProviderMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*p = ProviderMode(v)
		return nil
	default:
		return fmt.Errorf("invalid ProviderMode: %q (valid options: oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC identity provider configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email phone"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	RefreshToken string `env:"REFRESH_TOKEN"`
}

// DevIdPConfig controls the mock identity provider used when
// AUTH_MODE=mock for development and testing.
type DevIdPConfig struct {
	UserID          string        `env:"USER_ID"          envDefault:"dev-user"`
	Email           string        `env:"EMAIL"            envDefault:"dev@example.com"`
	FullName        string        `env:"FULL_NAME"        envDefault:"Dev User"`
	Phone           string        `env:"PHONE"`
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
	StartSignedIn   bool          `env:"START_SIGNED_IN"  envDefault:"true"`
}

// AuthConfig groups identity provider and redirect-route configuration.
type AuthConfig struct {
	// Mode determines which identity provider implementation to use.
	Mode ProviderMode `env:"AUTH_MODE" envDefault:"mock"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevIdP configuration (used when Mode=mock).
	DevIdP DevIdPConfig `envPrefix:"DEV_IDP_"`

	// RootRoute is the redirect target on terminal sign-out outside a
	// privileged area.
	RootRoute string `env:"ROOT_ROUTE" envDefault:"/"`

	// AdminLoginRoute is the privileged-area login. Unauthorized visitors to
	// a privileged area are redirected here, never to the general login.
	AdminLoginRoute string `env:"ADMIN_LOGIN_ROUTE" envDefault:"/admin/login"`
}

// Sanitize applies guardrails to auth configuration.
func (c *AuthConfig) Sanitize() {
	if c.RootRoute == "" {
		c.RootRoute = "/"
	}
	if c.AdminLoginRoute == "" {
		c.AdminLoginRoute = "/admin/login"
	}
}
