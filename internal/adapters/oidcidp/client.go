package oidcidp

// Package oidcidp implements the IdentityClient port against an OIDC
// provider using go-oidc and oauth2. Sessions are resumed from a refresh
// token; token rotation by the underlying token source surfaces as
// TOKEN_REFRESHED events.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// Compile-time conformance to the port.
var _ ports.IdentityClient = (*Client)(nil)

// ClientConfig holds configuration for the OIDC identity client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RefreshToken seeds the resumable session; empty means signed out.
	RefreshToken string
	// HTTPClient is optional and defaults to a 30s-timeout client.
	HTTPClient *http.Client
}

// Client implements ports.IdentityClient using OIDC/OAuth2.
type Client struct {
	config     *oauth2.Config
	provider   *gooidc.Provider
	verifier   *gooidc.IDTokenVerifier
	httpClient *http.Client

	mu      sync.Mutex
	token   *oauth2.Token
	subs    map[int]func(identity.Event)
	nextSub int
}

// NewClient creates a new OIDC identity client. It performs a single
// discovery fetch against the issuer.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")

	dctx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	provider, err := gooidc.NewProvider(dctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	c := &Client{
		provider:   provider,
		verifier:   provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
		subs:       make(map[int]func(identity.Event)),
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     provider.Endpoint(),
		},
	}
	if cfg.RefreshToken != "" {
		c.token = &oauth2.Token{RefreshToken: cfg.RefreshToken}
	}
	return c, nil
}

// CurrentSession returns the active session, refreshing the access token when
// needed. A rotation emits TOKEN_REFRESHED to subscribers. A stale refresh
// token surfaces as a token error, which callers treat as fatal-to-session.
func (c *Client) CurrentSession(ctx context.Context) (*identity.Session, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()
	if tok == nil {
		return nil, nil
	}

	tctx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	fresh, err := c.config.TokenSource(tctx, tok).Token()
	if err != nil {
		return nil, mapTokenErr(err)
	}

	sess, err := c.buildSession(ctx, fresh)
	if err != nil {
		return nil, err
	}

	refreshed := fresh.AccessToken != tok.AccessToken && tok.AccessToken != ""
	c.mu.Lock()
	c.token = fresh
	c.mu.Unlock()

	if refreshed {
		emitted := *sess
		go c.emit(identity.Event{Kind: identity.EventTokenRefreshed, Session: &emitted})
	}
	return sess, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*identity.Identity, error) {
	sess, err := c.CurrentSession(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	user := sess.User
	return &user, nil
}

// SignOut drops the local token and notifies subscribers asynchronously.
func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	hadSession := c.token != nil
	c.token = nil
	c.mu.Unlock()

	if hadSession {
		go c.emit(identity.Event{Kind: identity.EventSignedOut})
	}
	return nil
}

// SetToken seeds the client with a token obtained from an external login flow
// and announces the new session with SIGNED_IN.
func (c *Client) SetToken(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("token is required")
	}
	sess, err := c.buildSession(ctx, tok)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	c.emit(identity.Event{Kind: identity.EventSignedIn, Session: sess})
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

// standardClaims is the subset of OIDC claims mapped into the domain identity.
type standardClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
}

func (c *Client) buildSession(ctx context.Context, tok *oauth2.Token) (*identity.Session, error) {
	claims, err := c.extractClaims(ctx, tok)
	if err != nil {
		return nil, err
	}
	if claims.Sub == "" {
		return nil, errors.New("token carries no subject claim")
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Hour)
	}
	return &identity.Session{
		UserID: claims.Sub,
		User: identity.Identity{
			ID:       claims.Sub,
			Email:    claims.Email,
			FullName: claims.Name,
			Phone:    claims.Phone,
		},
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (c *Client) extractClaims(ctx context.Context, tok *oauth2.Token) (standardClaims, error) {
	var claims standardClaims

	if raw, ok := tok.Extra("id_token").(string); ok && raw != "" {
		idTok, err := c.verifier.Verify(ctx, raw)
		if err != nil {
			return claims, fmt.Errorf("verify id_token: %w", err)
		}
		if err := idTok.Claims(&claims); err != nil {
			return claims, fmt.Errorf("parse id_token claims: %w", err)
		}
		if claims.Sub != "" {
			return claims, nil
		}
	}

	// No usable id_token: fall back to the userinfo endpoint.
	ui, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return claims, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "fetch user info")
	}
	if err := ui.Claims(&claims); err != nil {
		return claims, fmt.Errorf("decode user info: %w", err)
	}
	if claims.Sub == "" {
		claims.Sub = ui.Subject
	}
	if claims.Email == "" {
		claims.Email = ui.Email
	}
	return claims, nil
}

// mapTokenErr distinguishes a dead refresh token from a transient transport
// failure. invalid_grant means the refresh token is stale and the session is
// unrecoverable.
func mapTokenErr(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.ErrorCode == "invalid_grant" {
		return apperrors.Wrap(err, apperrors.ErrCodeToken, "invalid refresh token")
	}
	return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "refresh session token")
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
