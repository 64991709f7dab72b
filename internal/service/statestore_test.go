package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/commercekit/storefront-identity/internal/domain/identity"
	identitymocks "github.com/commercekit/storefront-identity/internal/mocks/identity"
)

func newTestStore(cache *identitymocks.MemoryIdentityCache) *StateStore {
	return NewStateStore(StateStoreOptions{Name: "customer", Cache: cache})
}

func testUser() *domain.Identity {
	return &domain.Identity{ID: "u1", Email: "u1@example.com"}
}

func testProfile(role domain.Role) *domain.Profile {
	return &domain.Profile{ID: "u1", Email: "u1@example.com", Role: role}
}

func TestStateStore_InitialStateIsLoading(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())

	snap := store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsAuthenticated)
	assert.True(t, snap.IsLoading)
}

func TestStateStore_SetUserRecomputesAuthenticated(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())

	store.SetUser(context.Background(), testUser())

	snap := store.Snapshot()
	require.NotNil(t, snap.User)
	assert.True(t, snap.IsAuthenticated)
	// Setting the user is half a resolution; loading ends only on SetProfile.
	assert.True(t, snap.IsLoading)
}

func TestStateStore_SetUserNil_ClearsProfile(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())
	store.SetUser(context.Background(), testUser())
	store.SetProfile(context.Background(), testProfile(domain.RoleCustomer))

	store.SetUser(context.Background(), nil)

	snap := store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsAuthenticated)
}

func TestStateStore_SetProfileEndsLoading(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())
	store.SetUser(context.Background(), testUser())

	store.SetProfile(context.Background(), testProfile(domain.RoleAdmin))

	snap := store.Snapshot()
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, domain.RoleAdmin, snap.Profile.Role)
}

func TestStateStore_SetProfileNil_EndsLoading(t *testing.T) {
	// A nil profile write is still the terminal signal of a resolution.
	store := newTestStore(identitymocks.NewMemoryIdentityCache())
	store.SetUser(context.Background(), testUser())

	store.SetProfile(context.Background(), nil)

	snap := store.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsLoading)
}

func TestStateStore_SetProfileWithoutUserIsDropped(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())

	store.SetProfile(context.Background(), testProfile(domain.RoleCustomer))

	snap := store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsLoading)
}

func TestStateStore_Clear(t *testing.T) {
	cache := identitymocks.NewMemoryIdentityCache()
	store := newTestStore(cache)
	store.SetUser(context.Background(), testUser())
	store.SetProfile(context.Background(), testProfile(domain.RoleAdmin))

	store.Clear(context.Background())

	snap := store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsAuthenticated)
	assert.False(t, snap.IsLoading)
	assert.Nil(t, cache.Slot())
	assert.Equal(t, 1, cache.Clears())
}

func TestStateStore_PersistsDurableSlice(t *testing.T) {
	cache := identitymocks.NewMemoryIdentityCache()
	store := newTestStore(cache)

	store.SetUser(context.Background(), testUser())
	store.SetProfile(context.Background(), testProfile(domain.RoleCustomer))

	cached := cache.Slot()
	require.NotNil(t, cached)
	require.NotNil(t, cached.User)
	assert.Equal(t, "u1", cached.User.ID)
	require.NotNil(t, cached.Profile)
	assert.True(t, cached.IsAuthenticated)
}

func TestStateStore_PersistFailureDoesNotBlockUpdate(t *testing.T) {
	cache := identitymocks.NewMemoryIdentityCache()
	cache.WriteErr = errors.New("redis down")
	store := newTestStore(cache)

	store.SetUser(context.Background(), testUser())

	assert.True(t, store.Snapshot().IsAuthenticated)
}

func TestStateStore_Rehydrate(t *testing.T) {
	cache := identitymocks.NewMemoryIdentityCache()
	cache.SeedCached(domain.CachedIdentity{
		User:            testUser(),
		Profile:         testProfile(domain.RoleAdmin),
		IsAuthenticated: true,
	})
	store := newTestStore(cache)

	store.Rehydrate(context.Background())

	snap := store.Snapshot()
	require.NotNil(t, snap.User)
	assert.True(t, snap.IsAuthenticated)
	require.NotNil(t, snap.Profile)
	// Cached identity ends the loading state immediately so a returning user
	// never sees a logged-out flash.
	assert.False(t, snap.IsLoading)
}

func TestStateStore_Rehydrate_EmptyCacheKeepsLoading(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())

	store.Rehydrate(context.Background())

	assert.True(t, store.Snapshot().IsLoading)
}

func TestStateStore_Rehydrate_ReadErrorKeepsLoading(t *testing.T) {
	cache := identitymocks.NewMemoryIdentityCache()
	cache.ReadErr = errors.New("redis down")
	store := newTestStore(cache)

	store.Rehydrate(context.Background())

	assert.True(t, store.Snapshot().IsLoading)
}

func TestStateStore_Rehydrate_RecomputesAuthenticated(t *testing.T) {
	// A record claiming authentication without a user is normalized on load.
	cache := identitymocks.NewMemoryIdentityCache()
	cache.SeedCached(domain.CachedIdentity{IsAuthenticated: true})
	store := newTestStore(cache)

	store.Rehydrate(context.Background())

	snap := store.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.Profile)
	assert.True(t, snap.IsLoading)
}

func TestStateStore_SubscribeAndUnsubscribe(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())

	var seen []domain.Snapshot
	unsub := store.Subscribe(func(snap domain.Snapshot) {
		seen = append(seen, snap)
	})

	store.SetUser(context.Background(), testUser())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].IsAuthenticated)

	unsub()
	store.Clear(context.Background())
	assert.Len(t, seen, 1)
}

func TestStateStore_IsAdmin(t *testing.T) {
	store := newTestStore(identitymocks.NewMemoryIdentityCache())
	store.SetUser(context.Background(), testUser())
	store.SetProfile(context.Background(), testProfile(domain.RoleAdmin))

	assert.True(t, store.IsAdmin())
	assert.False(t, store.IsCustomer())

	store.Clear(context.Background())
	assert.False(t, store.IsAdmin())
}
