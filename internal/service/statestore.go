package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// StateStore is the reactive holder of the reconciled identity consumed by
// UI-facing code. It wraps a persisted identity cache: every mutation writes
// the durable slice of the snapshot (user, profile, isAuthenticated — never
// isLoading) through the injected cache as one atomic replace.
//
// The customer-facing and admin-facing stores are two independent instances
// of this type, each owning its own cache key, so an admin session failure
// cannot leak into customer-facing authentication state and vice versa.
type StateStore struct {
	name   string
	cache  ports.IdentityCache
	logger *slog.Logger

	mu      sync.Mutex
	snap    identity.Snapshot
	subs    map[int]func(identity.Snapshot)
	nextSub int
}

// StateStoreOptions groups dependencies for StateStore.
type StateStoreOptions struct {
	// Name tags log lines, e.g. "customer" or "admin".
	Name   string
	Cache  ports.IdentityCache
	Logger *slog.Logger
}

// NewStateStore constructs a store in the initial loading state: no user, no
// profile, not authenticated, isLoading true until the first bootstrap
// resolution completes.
func NewStateStore(opts StateStoreOptions) *StateStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "identity"
	}
	return &StateStore{
		name:   name,
		cache:  opts.Cache,
		logger: logger.With("store", name),
		snap:   identity.Snapshot{IsLoading: true},
		subs:   make(map[int]func(identity.Snapshot)),
	}
}

// Snapshot returns a copy of the current reconciled identity.
func (s *StateStore) Snapshot() identity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// IsAdmin reports whether the current identity is an authenticated admin.
// It is false whenever the store is signed out, regardless of stale profile
// data still referenced in memory.
func (s *StateStore) IsAdmin() bool { return s.Snapshot().IsAdmin() }

// IsCustomer reports whether the current identity is an authenticated customer.
func (s *StateStore) IsCustomer() bool { return s.Snapshot().IsCustomer() }

// SetUser writes the provider-issued identity and recomputes isAuthenticated
// in the same update. It never touches isLoading: setting the user is only
// half of a resolution, and ending the loading state is the reconciler's
// exclusive responsibility via SetProfile.
func (s *StateStore) SetUser(ctx context.Context, user *identity.Identity) {
	s.mu.Lock()
	s.snap.User = user
	s.snap.IsAuthenticated = user != nil
	if user == nil {
		s.snap.Profile = nil
	}
	snap, subs := s.snapshotAndSubsLocked()
	s.persistLocked(ctx)
	s.mu.Unlock()

	notify(subs, snap)
}

// SetProfile writes the resolved profile and ends the loading state: a
// profile write (even a nil one) is the terminal signal that a resolution
// attempt finished. A non-nil profile is dropped when no user is set, so a
// late resolution can never violate the user==nil => profile==nil invariant.
func (s *StateStore) SetProfile(ctx context.Context, profile *identity.Profile) {
	s.mu.Lock()
	if s.snap.User == nil {
		profile = nil
	}
	s.snap.Profile = profile
	s.snap.IsLoading = false
	snap, subs := s.snapshotAndSubsLocked()
	s.persistLocked(ctx)
	s.mu.Unlock()

	notify(subs, snap)
}

// Clear resets the store to the full signed-out default, including
// isLoading=false: sign-out is synchronous and final and never re-enters the
// loading state. The persisted cache record is removed.
func (s *StateStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.snap = identity.Snapshot{}
	snap, subs := s.snapshotAndSubsLocked()
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.ErrorContext(ctx, "clear identity cache failed", "error", err)
		}
	}
	s.mu.Unlock()

	notify(subs, snap)
}

// Rehydrate loads the persisted identity synchronously on startup so a
// returning user never sees a logged-out flash before the network round-trip
// completes. When either user or profile is present, isLoading is forced to
// false immediately; the bootstrap sequence still runs and may later correct
// a stale cache. Absent or malformed cache content reads as no cached
// identity and leaves the initial loading state untouched.
func (s *StateStore) Rehydrate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	cached, err := s.cache.Read(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read identity cache failed", "error", err)
		return
	}
	if cached == nil {
		return
	}

	s.mu.Lock()
	s.snap.User = cached.User
	s.snap.IsAuthenticated = cached.User != nil
	if cached.User != nil {
		s.snap.Profile = cached.Profile
	}
	if s.snap.User != nil || s.snap.Profile != nil {
		s.snap.IsLoading = false
	}
	snap, subs := s.snapshotAndSubsLocked()
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "rehydrated identity from cache",
		"authenticated", snap.IsAuthenticated,
		"has_profile", snap.Profile != nil,
	)
	notify(subs, snap)
}

// Subscribe registers an observer called with a snapshot copy after every
// mutation. The returned Unsubscribe must be called on teardown.
func (s *StateStore) Subscribe(fn func(identity.Snapshot)) ports.Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// persistLocked writes the durable slice of the snapshot. Persistence
// failures are logged, never propagated: the in-memory state is already
// updated and the cache is only an optimization for the next startup.
func (s *StateStore) persistLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	cached := identity.CachedIdentity{
		User:            s.snap.User,
		Profile:         s.snap.Profile,
		IsAuthenticated: s.snap.IsAuthenticated,
	}
	if err := s.cache.Write(ctx, cached); err != nil {
		s.logger.ErrorContext(ctx, "persist identity cache failed", "error", err)
	}
}

func (s *StateStore) snapshotAndSubsLocked() (identity.Snapshot, []func(identity.Snapshot)) {
	subs := make([]func(identity.Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.snap, subs
}

func notify(subs []func(identity.Snapshot), snap identity.Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
