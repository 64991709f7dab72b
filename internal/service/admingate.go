package service

import (
	"log/slog"
	"sync"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// GateState is the admin gate's lifecycle state.
type GateState int

const (
	// GateInitializing means the gate has not evaluated the identity yet;
	// protected content must not render.
	GateInitializing GateState = iota
	// GateAuthorized means the identity is authenticated and holds the admin
	// role.
	GateAuthorized
	// GateRedirecting means the gate decided against the identity and issued
	// the privileged-login redirect.
	GateRedirecting
)

func (s GateState) String() string {
	switch s {
	case GateAuthorized:
		return "authorized"
	case GateRedirecting:
		return "redirecting"
	default:
		return "initializing"
	}
}

const defaultAdminLoginRoute = "/admin/login"

// AdminGateOptions groups dependencies for AdminGate.
type AdminGateOptions struct {
	Store    *StateStore
	Redirect ports.Redirector
	Logger   *slog.Logger

	// LoginRoute is the privileged-area login an unauthorized visitor is sent
	// to (default "/admin/login"). A privileged area never redirects to the
	// general login.
	LoginRoute string
}

// AdminGate enforces "authenticated and admin" in front of a protected
// region. It evaluates the identity exactly once per lifetime: evaluating on
// a stale default state causes a redirect flash on every load, and
// re-evaluating on later store updates causes redirect loops when a profile
// fetch is retried after the first check. The decision is therefore deferred
// until the store leaves its loading state and is sticky afterwards.
type AdminGate struct {
	store    *StateStore
	redirect ports.Redirector
	logger   *slog.Logger
	route    string

	mu        sync.Mutex
	state     GateState
	evaluated bool
	unsub     ports.Unsubscribe
	closeOnce sync.Once
}

// NewAdminGate constructs an AdminGate over the admin-facing state store.
func NewAdminGate(opts AdminGateOptions) *AdminGate {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	route := opts.LoginRoute
	if route == "" {
		route = defaultAdminLoginRoute
	}
	return &AdminGate{
		store:    opts.Store,
		redirect: opts.Redirect,
		logger:   logger.With("component", "admin_gate"),
		route:    route,
		state:    GateInitializing,
	}
}

// Start subscribes to the store and evaluates immediately in case the store
// already resolved (e.g. optimistic rehydration). Close must be called on
// teardown.
func (g *AdminGate) Start() {
	g.unsub = g.store.Subscribe(g.onUpdate)
	g.onUpdate(g.store.Snapshot())
}

// Close detaches the store subscription.
func (g *AdminGate) Close() {
	g.closeOnce.Do(func() {
		if g.unsub != nil {
			g.unsub()
		}
	})
}

// State returns the gate's current state.
func (g *AdminGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Authorized reports whether protected content may render.
func (g *AdminGate) Authorized() bool {
	return g.State() == GateAuthorized
}

func (g *AdminGate) onUpdate(snap identity.Snapshot) {
	g.mu.Lock()
	if g.evaluated || snap.IsLoading {
		g.mu.Unlock()
		return
	}
	g.evaluated = true

	// Role mismatch is handled identically to "not authenticated": a policy
	// redirect, not an error.
	authorized := snap.IsAdmin()
	if authorized {
		g.state = GateAuthorized
	} else {
		g.state = GateRedirecting
	}
	g.mu.Unlock()

	if authorized {
		g.logger.Debug("admin access authorized")
		return
	}
	g.logger.Debug("admin access denied, redirecting",
		"authenticated", snap.IsAuthenticated,
		"route", g.route,
	)
	if g.redirect != nil {
		g.redirect.RedirectTo(g.route)
	}
}
