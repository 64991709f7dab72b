package ports

// Package ports defines interfaces (hexagonal ports) for the reconciliation
// subsystem. Implementations live in internal/adapters; orchestration in
// internal/service.

import (
	"context"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
)

// Unsubscribe detaches a previously registered event handler. Calling it more
// than once is a no-op.
type Unsubscribe func()

// IdentityClient is the external identity provider, specified only at its
// interface. It issues sessions and emits lifecycle events.
type IdentityClient interface {
	// CurrentSession returns the active session, or nil when signed out.
	CurrentSession(ctx context.Context) (*identity.Session, error)

	// CurrentUser returns the identity of the active session, or nil when
	// signed out.
	CurrentUser(ctx context.Context) (*identity.Identity, error)

	// SignOut invalidates the provider-side session.
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers a handler for live lifecycle events.
	// The subscription is long-lived; callers must invoke the returned
	// Unsubscribe on teardown.
	OnAuthStateChange(handler func(identity.Event)) Unsubscribe
}

// ProfileStore looks up and creates profile records in the secondary data
// store. FetchByUserID returns an error satisfying apperrors.IsNotFound when
// no profile row exists for the identity.
type ProfileStore interface {
	FetchByUserID(ctx context.Context, id string) (*identity.Profile, error)
	Insert(ctx context.Context, draft identity.ProfileDraft) (*identity.Profile, error)
}

// IdentityCache is durable local storage for the reconciled identity.
// It holds a single serialized record under a fixed key, versionless: absent
// or malformed content reads as "no cached identity".
type IdentityCache interface {
	// Read returns the cached identity, or (nil, nil) when absent or
	// malformed.
	Read(ctx context.Context) (*identity.CachedIdentity, error)

	// Write atomically replaces the cached record.
	Write(ctx context.Context, cached identity.CachedIdentity) error

	// Clear removes the cached record.
	Clear(ctx context.Context) error
}

// Redirector performs navigation side effects on terminal sign-out and
// authorization failures. The embedding UI supplies the mechanism; this
// subsystem only decides the policy.
type Redirector interface {
	RedirectTo(route string)
}
