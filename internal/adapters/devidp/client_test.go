package devidp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
)

func newTestClient(t *testing.T, startSignedIn bool) *Client {
	t.Helper()
	client, err := NewClient(Config{
		UserID:        "dev-user",
		Email:         "dev@example.com",
		FullName:      "Dev User",
		StartSignedIn: startSignedIn,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresUserIDAndEmail(t *testing.T) {
	_, err := NewClient(Config{Email: "dev@example.com"})
	assert.Error(t, err)

	_, err = NewClient(Config{UserID: "dev-user"})
	assert.Error(t, err)
}

func TestCurrentSession_StartSignedIn(t *testing.T) {
	client := newTestClient(t, true)

	sess, err := client.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "dev-user", sess.UserID)
	assert.Equal(t, "dev@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
}

func TestCurrentSession_StartSignedOut(t *testing.T) {
	client := newTestClient(t, false)

	sess, err := client.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSignIn_EmitsSignedIn(t *testing.T) {
	client := newTestClient(t, false)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	defer unsub()

	sess := client.SignIn()

	require.Len(t, events, 1)
	assert.Equal(t, identity.EventSignedIn, events[0].Kind)
	require.NotNil(t, events[0].Session)
	assert.Equal(t, sess.AccessToken, events[0].Session.AccessToken)
}

func TestRefreshToken_RotatesAndEmits(t *testing.T) {
	client := newTestClient(t, true)
	before, err := client.CurrentSession(context.Background())
	require.NoError(t, err)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	defer unsub()

	client.RefreshToken()

	require.Len(t, events, 1)
	assert.Equal(t, identity.EventTokenRefreshed, events[0].Kind)
	require.NotNil(t, events[0].Session)
	assert.NotEqual(t, before.AccessToken, events[0].Session.AccessToken)
}

func TestRefreshToken_NoopWhenSignedOut(t *testing.T) {
	client := newTestClient(t, false)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	defer unsub()

	client.RefreshToken()
	assert.Empty(t, events)
}

func TestSignOut_DropsSessionSilently(t *testing.T) {
	client := newTestClient(t, true)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	defer unsub()

	require.NoError(t, client.SignOut(context.Background()))

	sess, err := client.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	// SignOut is the reconciler-initiated path; only EmitSignedOut announces.
	assert.Empty(t, events)
}

func TestEmitSignedOut(t *testing.T) {
	client := newTestClient(t, true)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	defer unsub()

	client.EmitSignedOut()

	require.Len(t, events, 1)
	assert.Equal(t, identity.EventSignedOut, events[0].Kind)
	assert.Nil(t, events[0].Session)

	sess, err := client.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	client := newTestClient(t, false)

	var events []identity.Event
	unsub := client.OnAuthStateChange(func(ev identity.Event) {
		events = append(events, ev)
	})
	unsub()

	client.SignIn()
	assert.Empty(t, events)
}
