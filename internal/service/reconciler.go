package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
	"github.com/commercekit/storefront-identity/internal/ports"
	"github.com/commercekit/storefront-identity/internal/retry"
)

const (
	defaultProfileAttempts   = 3
	defaultProfileRetryDelay = 500 * time.Millisecond
	defaultFetchTimeout      = 10 * time.Second
	defaultSignOutRoute      = "/"
)

// ReconcilerOptions groups dependencies for Reconciler.
type ReconcilerOptions struct {
	Client   ports.IdentityClient
	Profiles ports.ProfileStore
	Store    *StateStore
	Redirect ports.Redirector
	Logger   *slog.Logger

	// ProfileAttempts caps total profile fetch attempts (default 3).
	ProfileAttempts int
	// ProfileRetryDelay is the fixed inter-attempt delay (default 500ms).
	ProfileRetryDelay time.Duration
	// FetchTimeout bounds each individual fetch (default 10s). Expired
	// fetches classify as retryable network failures.
	FetchTimeout time.Duration
	// SignOutRoute is the redirect target on terminal sign-out
	// (default "/"; the admin-facing reconciler uses the privileged login).
	SignOutRoute string
}

// Reconciler is the single authority that turns identity provider events into
// state store writes. It owns the bootstrap sequence, profile resolution with
// retry and synthesis, and live event handling.
//
// Bootstrap and the live subscription start concurrently, so effects can
// complete out of order. Every reconciliation attempt takes a version from a
// monotonic counter and each write is applied only while that version is
// still current: the last write wins by completion order, and a slow
// bootstrap can never resurrect state a faster SIGNED_OUT already cleared.
type Reconciler struct {
	client   ports.IdentityClient
	profiles ports.ProfileStore
	store    *StateStore
	redirect ports.Redirector
	logger   *slog.Logger

	attempts     int
	retryDelay   time.Duration
	fetchTimeout time.Duration
	signOutRoute string

	version   atomic.Uint64
	writeMu   sync.Mutex
	handlerMu sync.Mutex
	resolve   singleflight.Group

	closeOnce sync.Once
	unsub     ports.Unsubscribe
}

// NewReconciler constructs a Reconciler. Client, Profiles, and Store are
// required; zero option values fall back to defaults.
func NewReconciler(opts ReconcilerOptions) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := opts.ProfileAttempts
	if attempts <= 0 {
		attempts = defaultProfileAttempts
	}
	delay := opts.ProfileRetryDelay
	if delay <= 0 {
		delay = defaultProfileRetryDelay
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	route := opts.SignOutRoute
	if route == "" {
		route = defaultSignOutRoute
	}
	return &Reconciler{
		client:       opts.Client,
		profiles:     opts.Profiles,
		store:        opts.Store,
		redirect:     opts.Redirect,
		logger:       logger.With("component", "session_reconciler"),
		attempts:     attempts,
		retryDelay:   delay,
		fetchTimeout: timeout,
		signOutRoute: route,
	}
}

// Start subscribes to the provider's live event stream and launches the
// bootstrap sequence. Close must be called on teardown so that no handler
// writes into a torn-down store.
func (r *Reconciler) Start(ctx context.Context) {
	r.unsub = r.client.OnAuthStateChange(func(ev identity.Event) {
		r.HandleEvent(ctx, ev)
	})
	go r.Bootstrap(ctx)
}

// Close detaches the live event subscription. Safe to call more than once.
func (r *Reconciler) Close() {
	r.closeOnce.Do(func() {
		if r.unsub != nil {
			r.unsub()
		}
	})
}

// Bootstrap runs the one-time startup sequence: load the current session,
// resolve or synthesize the profile, and end the initial loading state.
// Whatever the outcome, isLoading transitions to false within the profile
// retry budget.
func (r *Reconciler) Bootstrap(ctx context.Context) {
	v := r.version.Add(1)

	sess, err := r.client.CurrentSession(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "bootstrap: load session failed", "error", err)
		if apperrors.IndicatesStaleToken(err) {
			r.wipeProviderSession(ctx)
		}
		r.applyClear(ctx, v)
		return
	}
	if sess == nil {
		r.applyClear(ctx, v)
		return
	}

	// Write the user immediately so consumers see the authenticated flag
	// while the profile round-trip is still in flight. isLoading stays true
	// until the profile write below.
	user := sess.User
	r.applyUser(ctx, v, &user)

	profile, resolveErr := r.resolveProfile(ctx, sess)
	if resolveErr != nil && apperrors.IndicatesStaleToken(resolveErr) {
		r.wipeProviderSession(ctx)
		r.applyClear(ctx, v)
		return
	}
	r.applyProfile(ctx, v, profile)
}

// HandleEvent is the single reducer for live provider events. Handlers are
// serialized; a panic inside one clears state defensively rather than leaving
// a partial update behind.
func (r *Reconciler) HandleEvent(ctx context.Context, ev identity.Event) {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			r.logger.ErrorContext(ctx, "event handler panicked, clearing session state",
				"event", ev.Kind, "panic", p)
			r.applyClear(ctx, r.version.Add(1))
		}
	}()

	switch ev.Kind {
	case identity.EventSignedOut:
		r.handleSignedOut(ctx)
	case identity.EventSignedIn, identity.EventTokenRefreshed, identity.EventBootstrapped:
		// TOKEN_REFRESHED re-resolves the profile: a long-lived session may
		// carry stale role data.
		if ev.Session == nil {
			r.handleSignedOut(ctx)
			return
		}
		r.handleSignedIn(ctx, ev.Session)
	default:
		r.logger.WarnContext(ctx, "ignoring unknown auth event", "event", string(ev.Kind))
	}
}

// Logout is the explicit sign-out operation exposed to consumers: provider
// sign-out, full local wipe, and the configured redirect.
func (r *Reconciler) Logout(ctx context.Context) {
	v := r.version.Add(1)
	if err := r.client.SignOut(ctx); err != nil {
		r.logger.ErrorContext(ctx, "provider sign-out failed", "error", err)
	}
	if r.applyClear(ctx, v) {
		r.redirectTo(r.signOutRoute)
	}
}

func (r *Reconciler) handleSignedIn(ctx context.Context, sess *identity.Session) {
	v := r.version.Add(1)
	user := sess.User
	r.applyUser(ctx, v, &user)

	profile, err := r.resolveProfile(ctx, sess)
	if err != nil && apperrors.IndicatesStaleToken(err) {
		r.wipeProviderSession(ctx)
		if r.applyClear(ctx, v) {
			r.redirectTo(r.signOutRoute)
		}
		return
	}
	r.applyProfile(ctx, v, profile)
}

func (r *Reconciler) handleSignedOut(ctx context.Context) {
	v := r.version.Add(1)
	if r.applyClear(ctx, v) {
		r.redirectTo(r.signOutRoute)
	}
}

// resolveProfile fetches the profile with the bounded retry budget, falling
// back to synthesis when the row is missing or every attempt failed.
// Concurrent resolutions for the same user are deduplicated, so delivering
// the same SIGNED_IN twice cannot insert a duplicate profile.
//
// A nil profile with a nil error is not possible: failure to produce a
// profile returns the terminal error, and the caller surfaces it as the
// recoverable authenticated-with-unknown-role state.
func (r *Reconciler) resolveProfile(ctx context.Context, sess *identity.Session) (*identity.Profile, error) {
	result, err, _ := r.resolve.Do(sess.UserID, func() (any, error) {
		return r.resolveProfileOnce(ctx, sess)
	})
	profile, _ := result.(*identity.Profile)
	return profile, err
}

func (r *Reconciler) resolveProfileOnce(ctx context.Context, sess *identity.Session) (*identity.Profile, error) {
	policy := retry.Policy{
		MaxAttempts: r.attempts,
		Delay:       r.retryDelay,
		Mode:        retry.ModeFixed,
		Classify:    retry.IsNetworkError,
	}

	var profile *identity.Profile
	fetchErr := policy.Execute(ctx, func(ctx context.Context) error {
		p, err := r.fetchProfile(ctx, sess.UserID)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if fetchErr == nil {
		return profile, nil
	}
	if apperrors.IndicatesStaleToken(fetchErr) {
		return nil, fetchErr
	}

	if !apperrors.IsNotFound(fetchErr) {
		r.logger.WarnContext(ctx, "profile fetch exhausted, synthesizing",
			"user_id", sess.UserID, "error", fetchErr)
	}

	// First login after signup: the identity exists but no profile row does.
	// Synthesize one from provider metadata with the customer role.
	draft := identity.DraftFromIdentity(sess.User)
	inserted, insertErr := r.insertProfile(ctx, draft)
	if insertErr == nil {
		return inserted, nil
	}

	// Insert can lose a race with another tab (duplicate key). Re-fetch once
	// more before giving up to a nil profile.
	r.logger.WarnContext(ctx, "profile synthesis failed, re-fetching once",
		"user_id", sess.UserID, "error", insertErr)
	if p, refetchErr := r.fetchProfile(ctx, sess.UserID); refetchErr == nil {
		return p, nil
	}

	// Non-fatal: the session stays authenticated with an unknown role, which
	// every authorization check treats as non-admin.
	return nil, insertErr
}

func (r *Reconciler) fetchProfile(ctx context.Context, userID string) (*identity.Profile, error) {
	fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	return r.profiles.FetchByUserID(fctx, userID)
}

func (r *Reconciler) insertProfile(ctx context.Context, draft identity.ProfileDraft) (*identity.Profile, error) {
	ictx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()
	return r.profiles.Insert(ictx, draft)
}

// wipeProviderSession performs the provider half of a full local session
// wipe. The cache half happens in the store clear that always follows.
func (r *Reconciler) wipeProviderSession(ctx context.Context) {
	r.logger.WarnContext(ctx, "stale refresh token detected, wiping local session")
	if err := r.client.SignOut(ctx); err != nil {
		r.logger.ErrorContext(ctx, "provider sign-out during wipe failed", "error", err)
	}
}

// applyUser, applyProfile, and applyClear are the only paths that mutate the
// store. Each checks its version under the write lock and drops the write
// when a newer reconciliation attempt has started.

func (r *Reconciler) applyUser(ctx context.Context, v uint64, user *identity.Identity) bool {
	return r.guarded(v, func() { r.store.SetUser(ctx, user) })
}

func (r *Reconciler) applyProfile(ctx context.Context, v uint64, profile *identity.Profile) bool {
	return r.guarded(v, func() { r.store.SetProfile(ctx, profile) })
}

func (r *Reconciler) applyClear(ctx context.Context, v uint64) bool {
	return r.guarded(v, func() { r.store.Clear(ctx) })
}

func (r *Reconciler) guarded(v uint64, write func()) bool {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if r.version.Load() != v {
		return false
	}
	write()
	return true
}

func (r *Reconciler) redirectTo(route string) {
	if r.redirect == nil {
		return
	}
	r.redirect.RedirectTo(route)
}
