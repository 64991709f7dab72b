package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/commercekit/storefront-identity/config"
	"github.com/commercekit/storefront-identity/internal/adapters/devidp"
	"github.com/commercekit/storefront-identity/internal/adapters/oidcidp"
	"github.com/commercekit/storefront-identity/internal/adapters/postgres"
	"github.com/commercekit/storefront-identity/internal/adapters/rediscache"
	"github.com/commercekit/storefront-identity/internal/ports"
	"github.com/commercekit/storefront-identity/internal/service"
)

// ServiceContainer holds the customer-facing and admin-facing identity
// surfaces. The two sides share the identity provider and profile store but
// own independent state stores and reconcilers, so a failure on one side
// never leaks authentication state into the other.
type ServiceContainer struct {
	Client   ports.IdentityClient
	Profiles ports.ProfileStore

	CustomerStore      *service.StateStore
	CustomerReconciler *service.Reconciler

	AdminStore      *service.StateStore
	AdminReconciler *service.Reconciler
	AdminGate       *service.AdminGate
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	Pool        *pgxpool.Pool
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Redirect receives navigation decisions (sign-out and gate redirects).
	// Nil falls back to a logging redirector.
	Redirect ports.Redirector
}

// BuildIdentityClient constructs the identity provider client selected by
// AUTH_MODE.
//
//nolint:ireturn // callers program against the port, not a concrete client.
func BuildIdentityClient(ctx context.Context, cfg config.AuthConfig) (ports.IdentityClient, error) {
	switch cfg.Mode {
	case config.ProviderModeOIDC:
		client, err := oidcidp.NewClient(ctx, oidcidp.ClientConfig{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Scope:        cfg.OIDC.Scope,
			DiscoveryURL: cfg.OIDC.DiscoveryURL,
			RefreshToken: cfg.OIDC.RefreshToken,
		})
		if err != nil {
			return nil, fmt.Errorf("build oidc client: %w", err)
		}
		return client, nil
	case config.ProviderModeMock:
		client, err := devidp.NewClient(devidp.Config{
			UserID:          cfg.DevIdP.UserID,
			Email:           cfg.DevIdP.Email,
			FullName:        cfg.DevIdP.FullName,
			Phone:           cfg.DevIdP.Phone,
			SessionDuration: cfg.DevIdP.SessionDuration,
			StartSignedIn:   cfg.DevIdP.StartSignedIn,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev identity client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}
}

// NewServices wires the full identity subsystem: Redis-backed caches, the
// Postgres profile store, both state stores, both reconcilers, and the admin
// gate. Nothing is started; call Start on the container.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redirect := deps.Redirect
	if redirect == nil {
		redirect = &LogRedirector{Logger: logger}
	}

	client, err := BuildIdentityClient(ctx, deps.Config.Auth)
	if err != nil {
		return nil, err
	}

	profiles := postgres.NewProfileStore(deps.Pool)
	rc := deps.Config.Reconciler

	customerStore := service.NewStateStore(service.StateStoreOptions{
		Name:   "customer",
		Cache:  rediscache.NewIdentityCache(deps.RedisClient, rc.CustomerCacheKey),
		Logger: logger,
	})
	adminStore := service.NewStateStore(service.StateStoreOptions{
		Name:   "admin",
		Cache:  rediscache.NewIdentityCache(deps.RedisClient, rc.AdminCacheKey),
		Logger: logger,
	})

	customerReconciler := service.NewReconciler(service.ReconcilerOptions{
		Client:            client,
		Profiles:          profiles,
		Store:             customerStore,
		Redirect:          redirect,
		Logger:            logger.With("side", "customer"),
		ProfileAttempts:   rc.ProfileAttempts,
		ProfileRetryDelay: rc.ProfileRetryDelay,
		FetchTimeout:      rc.FetchTimeout,
		SignOutRoute:      deps.Config.Auth.RootRoute,
	})
	adminReconciler := service.NewReconciler(service.ReconcilerOptions{
		Client:            client,
		Profiles:          profiles,
		Store:             adminStore,
		Redirect:          redirect,
		Logger:            logger.With("side", "admin"),
		ProfileAttempts:   rc.ProfileAttempts,
		ProfileRetryDelay: rc.ProfileRetryDelay,
		FetchTimeout:      rc.FetchTimeout,
		SignOutRoute:      deps.Config.Auth.AdminLoginRoute,
	})

	adminGate := service.NewAdminGate(service.AdminGateOptions{
		Store:      adminStore,
		Redirect:   redirect,
		Logger:     logger,
		LoginRoute: deps.Config.Auth.AdminLoginRoute,
	})

	return &ServiceContainer{
		Client:             client,
		Profiles:           profiles,
		CustomerStore:      customerStore,
		CustomerReconciler: customerReconciler,
		AdminStore:         adminStore,
		AdminReconciler:    adminReconciler,
		AdminGate:          adminGate,
	}, nil
}

// Start rehydrates both stores from their caches and launches both
// reconcilers and the admin gate. Rehydration runs before the reconcilers so
// a returning user never observes a logged-out flash.
func (c *ServiceContainer) Start(ctx context.Context) {
	c.CustomerStore.Rehydrate(ctx)
	c.AdminStore.Rehydrate(ctx)

	c.CustomerReconciler.Start(ctx)
	c.AdminReconciler.Start(ctx)
	c.AdminGate.Start()
}

// Close detaches all live subscriptions.
func (c *ServiceContainer) Close() {
	c.AdminGate.Close()
	c.AdminReconciler.Close()
	c.CustomerReconciler.Close()
}

var _ ports.Redirector = (*LogRedirector)(nil)

// LogRedirector records navigation decisions in the log. The daemon has no
// attached navigation surface; embedding applications supply their own
// Redirector.
type LogRedirector struct {
	Logger *slog.Logger
}

func (r *LogRedirector) RedirectTo(route string) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("redirect requested", "route", route)
}
