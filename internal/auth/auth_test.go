package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/testutil"
)

func TestTokenRoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", models.RoleMember)

	issued, err := NewToken(ctx, db, user.ID, "api", []string{"create", "update"})
	require.NoError(t, err)
	require.Contains(t, issued.PlainText, "|")

	found, err := FindToken(ctx, db, issued.PlainText)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, issued.Token.ID, found.ID)
	assert.Equal(t, user.ID, found.User.ID)
	assert.Equal(t, models.RoleMember, found.User.Role.Name)

	assert.ElementsMatch(t, []string{"read", "create", "update"}, Abilities(found))
	assert.True(t, Can(found, models.AbilityRead))
	assert.True(t, Can(found, models.AbilityCreate))
	assert.False(t, Can(found, models.AbilityDelete))
}

func TestTokenAbilitiesNormalized(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", models.RoleMember)

	// Unknown abilities are dropped; read is always present.
	issued, err := NewToken(ctx, db, user.ID, "api", []string{"admin", "delete"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"read", "delete"}, Abilities(issued.Token))

	issued, err = NewToken(ctx, db, user.ID, "bare", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, Abilities(issued.Token))
}

func TestFindTokenRejectsBadInput(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", models.RoleMember)

	issued, err := NewToken(ctx, db, user.ID, "api", nil)
	require.NoError(t, err)

	// Wrong secret under a real token id.
	id, _, _ := strings.Cut(issued.PlainText, "|")
	found, err := FindToken(ctx, db, id+"|"+strings.Repeat("x", 48))
	require.NoError(t, err)
	assert.Nil(t, found)

	for _, plaintext := range []string{
		"",
		"no-separator",
		"not-a-uuid|secret",
		uuid.NewString() + "|secret",
		id + "|",
	} {
		found, err := FindToken(ctx, db, plaintext)
		require.NoError(t, err)
		assert.Nil(t, found, "plaintext %q", plaintext)
	}
}

func TestRevokeToken(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", models.RoleMember)
	other := testutil.CreateUser(t, db, "bob", models.RoleMember)

	issued, err := NewToken(ctx, db, user.ID, "api", nil)
	require.NoError(t, err)

	// Another user cannot revoke it.
	err = RevokeToken(ctx, db, other.ID, issued.Token.ID)
	require.Error(t, err)

	require.NoError(t, RevokeToken(ctx, db, user.ID, issued.Token.ID))
	found, err := FindToken(ctx, db, issued.PlainText)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRevokeAllTokens(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", models.RoleMember)

	first, err := NewToken(ctx, db, user.ID, "api", nil)
	require.NoError(t, err)
	second, err := NewToken(ctx, db, user.ID, "cli", nil)
	require.NoError(t, err)

	require.NoError(t, RevokeAllTokens(ctx, db, user.ID))
	for _, issued := range []*IssuedToken{first, second} {
		found, err := FindToken(ctx, db, issued.PlainText)
		require.NoError(t, err)
		assert.Nil(t, found)
	}
}
