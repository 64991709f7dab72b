package oidcidp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
)

// newDiscoveryServer serves a minimal OIDC discovery document whose issuer is
// the server's own URL.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		doc := map[string]any{
			"issuer":                 server.URL,
			"authorization_endpoint": server.URL + "/auth",
			"token_endpoint":         server.URL + "/token",
			"jwks_uri":               server.URL + "/keys",
			"userinfo_endpoint":      server.URL + "/userinfo",
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			t.Errorf("encode discovery document: %v", err)
		}
	})
	return server
}

func TestNewClient_RequiresClientIDAndDiscoveryURL(t *testing.T) {
	_, err := NewClient(context.Background(), ClientConfig{DiscoveryURL: "https://idp.example.com"})
	assert.Error(t, err)

	_, err = NewClient(context.Background(), ClientConfig{ClientID: "app"})
	assert.Error(t, err)
}

func TestNewClient_Discovery(t *testing.T) {
	server := newDiscoveryServer(t)

	client, err := NewClient(context.Background(), ClientConfig{
		ClientID:     "app",
		ClientSecret: "secret",
		Scope:        "openid profile email",
		DiscoveryURL: server.URL + "/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestCurrentSession_SignedOut(t *testing.T) {
	server := newDiscoveryServer(t)
	client, err := NewClient(context.Background(), ClientConfig{
		ClientID:     "app",
		DiscoveryURL: server.URL,
	})
	require.NoError(t, err)

	sess, err := client.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignOut_WithoutSessionEmitsNothing(t *testing.T) {
	server := newDiscoveryServer(t)
	client, err := NewClient(context.Background(), ClientConfig{
		ClientID:     "app",
		DiscoveryURL: server.URL,
	})
	require.NoError(t, err)

	events := make(chan identity.Event, 1)
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events <- ev
	})
	defer unsub()

	require.NoError(t, client.SignOut(context.Background()))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s after signed-out SignOut", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMapTokenErr_InvalidGrant(t *testing.T) {
	err := mapTokenErr(&oauth2.RetrieveError{ErrorCode: "invalid_grant"})
	assert.True(t, apperrors.IsToken(err))
	assert.True(t, apperrors.IndicatesStaleToken(err))
}

func TestMapTokenErr_TransportFailure(t *testing.T) {
	err := mapTokenErr(errors.New("dial tcp: connection refused"))
	assert.True(t, apperrors.IsUnavailable(err))
	assert.False(t, apperrors.IndicatesStaleToken(err))
}
