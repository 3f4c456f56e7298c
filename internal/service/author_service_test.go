package service

import (
	"context"
	"testing"

	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthorStack(t *testing.T) (*AuthorFollowService, *FollowService, *mysql.UserRepository) {
	t.Helper()
	db := newTestDB(t)
	follow, _ := newFollowStack(t, db, newFakeCache())
	users := &mysql.UserRepository{DB: db}
	return NewAuthorFollowService(testFollowConfig(), follow, users), follow, users
}

func TestFollowAuthorAllEnabledTypes(t *testing.T) {
	svc, follow, users := newAuthorStack(t)
	ctx := context.Background()
	mustCreateUser(t, users.DB, 10, "author", false)

	// 不传 post_types 时覆盖全部启用类型
	changed, err := svc.FollowAuthor(ctx, 10, 2, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	for _, pt := range []string{"post", "podcast"} {
		ok, err := follow.IsFollowing(ctx, 10, 2, model.AuthorFollow(pt))
		require.NoError(t, err)
		assert.True(t, ok, "post type %s", pt)
	}
}

func TestFollowAuthorPartialNew(t *testing.T) {
	svc, _, users := newAuthorStack(t)
	ctx := context.Background()
	mustCreateUser(t, users.DB, 10, "author", false)

	changed, err := svc.FollowAuthor(ctx, 10, 2, []string{"post"})
	require.NoError(t, err)
	require.True(t, changed)

	// 一半是新边也算有变化
	changed, err = svc.FollowAuthor(ctx, 10, 2, []string{"post", "podcast"})
	require.NoError(t, err)
	assert.True(t, changed)

	// 全部已存在则没有变化
	changed, err = svc.FollowAuthor(ctx, 10, 2, []string{"post", "podcast"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFollowAuthorValidation(t *testing.T) {
	svc, _, users := newAuthorStack(t)
	ctx := context.Background()

	_, err := svc.FollowAuthor(ctx, 99, 2, nil)
	assert.ErrorIs(t, err, ErrAuthorNotFound)

	mustCreateUser(t, users.DB, 10, "author", false)
	_, err = svc.FollowAuthor(ctx, 10, 2, []string{"page"})
	assert.ErrorIs(t, err, ErrUnknownPostType)

	_, err = svc.GetFollowedAuthors(ctx, 2, "page", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownPostType)
}

func TestUnfollowAuthor(t *testing.T) {
	svc, follow, users := newAuthorStack(t)
	ctx := context.Background()
	mustCreateUser(t, users.DB, 10, "author", false)

	_, err := svc.FollowAuthor(ctx, 10, 2, nil)
	require.NoError(t, err)

	changed, err := svc.UnfollowAuthor(ctx, 10, 2, []string{"post"})
	require.NoError(t, err)
	assert.True(t, changed)

	ok, err := follow.IsFollowing(ctx, 10, 2, model.AuthorFollow("post"))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = follow.IsFollowing(ctx, 10, 2, model.AuthorFollow("podcast"))
	require.NoError(t, err)
	assert.True(t, ok, "other type untouched")
}

func TestAuthorFollowerCount(t *testing.T) {
	svc, _, users := newAuthorStack(t)
	ctx := context.Background()
	mustCreateUser(t, users.DB, 10, "author", false)

	for _, uid := range []uint64{2, 3, 4} {
		_, err := svc.FollowAuthor(ctx, 10, uid, []string{"post"})
		require.NoError(t, err)
	}
	n, err := svc.GetAuthorFollowerCount(ctx, 10, "post")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	ids, err := svc.GetAuthorFollowers(ctx, 10, "post", 0, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3, 4}, ids)
}
