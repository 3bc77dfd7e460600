package users_test

import (
	"strings"
	"testing"

	"github.com/inkwell-cms/auth-service/users"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := users.HashPassword("password123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	require.True(t, users.CheckPasswordHash("password123", hash))
	require.False(t, users.CheckPasswordHash("password124", hash))
	require.False(t, users.CheckPasswordHash("", hash))
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	first, err := users.HashPassword("password123")
	require.NoError(t, err)
	second, err := users.HashPassword("password123")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, users.CheckPasswordHash("password123", first))
	require.True(t, users.CheckPasswordHash("password123", second))
}

func TestCheckPasswordHashRejectsMalformedEncoding(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", // wrong variant
		"$argon2id$v=19$m=65536,t=1,p=4$!!$aGFzaA",
	} {
		require.False(t, users.CheckPasswordHash("password123", encoded))
	}
}

func TestUserRoles(t *testing.T) {
	user := &users.User{Roles: []users.RoleType{users.RoleAdmin, users.RoleReader}}

	require.True(t, user.HasRole(users.RoleAdmin))
	require.False(t, user.HasRole(users.RoleEditor))
	require.Equal(t, []string{"admin", "reader"}, user.RoleIDs())
}

func TestUserStatus(t *testing.T) {
	require.True(t, (&users.User{Status: users.StatusSuspended}).IsSuspended())
	require.True(t, (&users.User{Status: users.StatusInactive}).IsInactive())

	active := &users.User{Status: users.StatusActive}
	require.False(t, active.IsSuspended())
	require.False(t, active.IsInactive())
}
