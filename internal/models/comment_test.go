package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theforge/forge/internal/models"
	"github.com/theforge/forge/internal/testutil"
)

func TestCommentThreadRootLinkage(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Terrain Overhaul")

	root := testutil.CreateComment(t, db, owner, mod, "first")
	assert.True(t, root.IsRoot())
	assert.Nil(t, root.RootID)

	reply, err := models.NewComment(ctx, nil, db, owner.ID, models.CommentableMod, mod.ID.String(), "reply", &root.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.RootID)
	assert.Equal(t, root.ID, *reply.RootID)

	// A reply to a reply still points at the thread root.
	nested, err := models.NewComment(ctx, nil, db, owner.ID, models.CommentableMod, mod.ID.String(), "nested", &reply.ID)
	require.NoError(t, err)
	require.NotNil(t, nested.RootID)
	assert.Equal(t, root.ID, *nested.RootID)
}

func TestCommentParentMustShareEntity(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	modA := testutil.CreateMod(t, db, owner, "Mod A")
	modB := testutil.CreateMod(t, db, owner, "Mod B")

	root := testutil.CreateComment(t, db, owner, modA, "on A")
	_, err := models.NewComment(ctx, nil, db, owner.ID, models.CommentableMod, modB.ID.String(), "mismatched", &root.ID)
	assert.Error(t, err)
}

func TestOnlyRootCommentsMayBePinned(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Terrain Overhaul")
	root := testutil.CreateComment(t, db, owner, mod, "first")
	reply, err := models.NewComment(context.Background(), nil, db, owner.ID, models.CommentableMod, mod.ID.String(), "reply", &root.ID)
	require.NoError(t, err)

	now := time.Now()
	reply.PinnedAt = &now
	assert.Error(t, db.Save(reply).Error)

	root.PinnedAt = &now
	assert.NoError(t, db.Save(root).Error)
}

func TestCommenterIsAutoSubscribed(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner", models.RoleMember)
	commenter := testutil.CreateUser(t, db, "visitor", models.RoleMember)
	mod := testutil.CreateMod(t, db, owner, "Terrain Overhaul")

	testutil.CreateComment(t, db, commenter, mod, "nice work")
	testutil.CreateComment(t, db, commenter, mod, "another thought")

	var subs int64
	require.NoError(t, db.Model(&models.CommentSubscription{}).
		Where("user_id = ?", commenter.ID).Count(&subs).Error)
	assert.EqualValues(t, 1, subs)

	// The entity owner is not subscribed by someone else's comment.
	users, err := models.SubscribersFor(context.Background(), db, models.CommentableMod, mod.ID.String(), commenter.ID)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestBlockedEitherWay(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "a", models.RoleMember)
	b := testutil.CreateUser(t, db, "b", models.RoleMember)

	blocked, err := models.BlockedEitherWay(ctx, db, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, db.Create(&models.UserBlock{BlockerID: a.ID, BlockedID: b.ID}).Error)

	blocked, err = models.BlockedEitherWay(ctx, db, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = models.BlockedEitherWay(ctx, db, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}
