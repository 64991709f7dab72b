package devidp

// Package devidp provides a simple, config-driven IdentityClient for local
// development. It keeps the session in memory and lets callers script
// sign-in, token-refresh, and sign-out transitions.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// Compile-time conformance to the port.
var _ ports.IdentityClient = (*Client)(nil)

// Config controls the dev identity client behavior.
type Config struct {
	UserID   string
	Email    string
	FullName string
	Phone    string
	// SessionDuration defaults to 8h when zero.
	SessionDuration time.Duration
	// StartSignedIn seeds an active session before the first bootstrap.
	StartSignedIn bool
}

// Client implements ports.IdentityClient for local development.
type Client struct {
	user            identity.Identity
	sessionDuration time.Duration

	mu      sync.Mutex
	current *identity.Session
	subs    map[int]func(identity.Event)
	nextSub int
}

// NewClient constructs a dev identity client from Config.
func NewClient(cfg Config) (*Client, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev idp: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev idp: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	c := &Client{
		user: identity.Identity{
			ID:       cfg.UserID,
			Email:    cfg.Email,
			FullName: cfg.FullName,
			Phone:    cfg.Phone,
		},
		sessionDuration: dur,
		subs:            make(map[int]func(identity.Event)),
	}
	if cfg.StartSignedIn {
		c.current = c.mintSession()
	}
	return c, nil
}

func (c *Client) CurrentSession(_ context.Context) (*identity.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, nil
	}
	sess := *c.current
	return &sess, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	sess, err := c.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	return nil
}

func (c *Client) OnAuthStateChange(handler func(identity.Event)) ports.Unsubscribe {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = handler
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// SignIn mints a fresh session and emits SIGNED_IN.
func (c *Client) SignIn() *identity.Session {
	c.mu.Lock()
	c.current = c.mintSession()
	sess := *c.current
	c.mu.Unlock()

	c.emit(identity.Event{Kind: identity.EventSignedIn, Session: &sess})
	return &sess
}

// RefreshToken rotates the access token of the active session and emits
// TOKEN_REFRESHED. No-op when signed out.
func (c *Client) RefreshToken() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.current.AccessToken = uuid.NewString()
	c.current.ExpiresAt = time.Now().Add(c.sessionDuration)
	sess := *c.current
	c.mu.Unlock()

	c.emit(identity.Event{Kind: identity.EventTokenRefreshed, Session: &sess})
}

// EmitSignedOut drops the session and emits SIGNED_OUT, simulating
// provider-side invalidation.
func (c *Client) EmitSignedOut() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.emit(identity.Event{Kind: identity.EventSignedOut})
}

func (c *Client) mintSession() *identity.Session {
	return &identity.Session{
		UserID:       c.user.ID,
		User:         c.user,
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		ExpiresAt:    time.Now().Add(c.sessionDuration),
	}
}

func (c *Client) emit(ev identity.Event) {
	c.mu.Lock()
	handlers := make([]func(identity.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
