package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/storefront-identity/internal/adapters/postgres"
	"github.com/commercekit/storefront-identity/internal/domain/identity"
	apperrors "github.com/commercekit/storefront-identity/internal/errors"
	"github.com/commercekit/storefront-identity/internal/testutil"
)

func TestProfileStore_InsertAndFetch(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, identity.ProfileDraft{
		ID:       "u1",
		Email:    "u1@example.com",
		FullName: "User One",
		Phone:    "+1555",
		Role:     identity.RoleCustomer,
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", inserted.ID)
	assert.Equal(t, identity.RoleCustomer, inserted.Role)
	require.NotNil(t, inserted.FullName)
	assert.Equal(t, "User One", *inserted.FullName)
	assert.False(t, inserted.CreatedAt.IsZero())

	fetched, err := store.FetchByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, fetched.ID)
	assert.Equal(t, inserted.Email, fetched.Email)
	assert.Equal(t, inserted.Role, fetched.Role)
}

func TestProfileStore_FetchMissingRow(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)

	_, err := store.FetchByUserID(context.Background(), "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfileStore_FetchEmptyID(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)

	_, err := store.FetchByUserID(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestProfileStore_InsertDuplicateIsConflict(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)
	ctx := context.Background()

	draft := identity.ProfileDraft{ID: "u1", Email: "u1@example.com", Role: identity.RoleCustomer}
	_, err := store.Insert(ctx, draft)
	require.NoError(t, err)

	_, err = store.Insert(ctx, draft)
	assert.True(t, apperrors.IsConflict(err))
}

func TestProfileStore_InsertDefaultsRole(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)

	inserted, err := store.Insert(context.Background(), identity.ProfileDraft{
		ID:    "u2",
		Email: "u2@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCustomer, inserted.Role)
}

func TestProfileStore_InsertEmptyMetadataIsNull(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)

	inserted, err := store.Insert(context.Background(), identity.ProfileDraft{
		ID:    "u3",
		Email: "u3@example.com",
		Role:  identity.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, inserted.Role)
	assert.Nil(t, inserted.FullName)
	assert.Nil(t, inserted.Phone)
}

func TestProfileStore_InsertEmptyID(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	store := postgres.NewProfileStore(pool)

	_, err := store.Insert(context.Background(), identity.ProfileDraft{Email: "x@example.com"})
	assert.True(t, apperrors.IsValidation(err))
}
