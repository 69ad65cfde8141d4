package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAdd(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	u, err := store.Add(ctx, "  Claire@Example.com ", "Claire", RoleOwner)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "claire@example.com", u.Email)
	assert.Equal(t, "Claire", u.Name)
	assert.Equal(t, RoleOwner, u.Role)
}

func TestUserAddValidation(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		email string
		role  Role
	}{
		{"empty email", "", RoleTenant},
		{"blank email", "   ", RoleTenant},
		{"unknown role", "x@example.com", "landlord"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Add(ctx, tt.email, "", tt.role)
			assert.Error(t, err)
		})
	}
}

func TestUserAddDuplicate(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	_, err := store.Add(ctx, "dup@example.com", "", RoleTenant)
	require.NoError(t, err)

	_, err = store.Add(ctx, "DUP@example.com", "", RoleTenant)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUserGetByEmail(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	added, err := store.Add(ctx, "tenant@example.com", "", RoleTenant)
	require.NoError(t, err)

	got, err := store.GetByEmail(ctx, "TENANT@example.com")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, store.EnsureAdmin(ctx, ""))

	require.NoError(t, store.EnsureAdmin(ctx, "admin@example.com"))
	u, err := store.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	// Idempotent
	require.NoError(t, store.EnsureAdmin(ctx, "admin@example.com"))

	// Promotes an existing user
	_, err = store.Add(ctx, "owner@example.com", "", RoleOwner)
	require.NoError(t, err)
	require.NoError(t, store.EnsureAdmin(ctx, "owner@example.com"))
	u, err = store.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)
}

func TestUserListAndDelete(t *testing.T) {
	store := NewUserStore(testDB(t))
	ctx := context.Background()

	b, err := store.Add(ctx, "b@example.com", "", RoleTenant)
	require.NoError(t, err)
	_, err = store.Add(ctx, "a@example.com", "", RoleOwner)
	require.NoError(t, err)

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@example.com", users[0].Email)

	require.NoError(t, store.Delete(ctx, b.ID))
	assert.ErrorIs(t, store.Delete(ctx, b.ID), ErrUserNotFound)
}
