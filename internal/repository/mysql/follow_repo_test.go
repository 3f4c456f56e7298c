package mysql

import (
	"context"
	"testing"

	"Follow_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowCreateIsIdempotent(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	changed, err := repo.Create(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Create(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.False(t, changed, "duplicate follow must not report a change")

	n, err := repo.CountFollowers(ctx, 1, "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFollowTypesAreIndependentEdges(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	for _, tag := range []string{"", "authors:post", "category"} {
		changed, err := repo.Create(ctx, 1, 2, tag)
		require.NoError(t, err)
		assert.True(t, changed, "tag %q should create its own edge", tag)
	}

	// 删除一种类型不影响其它类型
	changed, err := repo.Delete(ctx, 1, 2, "authors:post")
	require.NoError(t, err)
	assert.True(t, changed)

	ok, err := repo.Exists(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, 1, 2, "authors:post")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowDeleteMissingEdge(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}

	changed, err := repo.Delete(context.Background(), 7, 8, "")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestListFollowersPaging(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	for i := uint64(1); i <= 5; i++ {
		_, err := repo.Create(ctx, 100, i, "")
		require.NoError(t, err)
	}

	all, err := repo.ListFollowers(ctx, 100, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 4, 3, 2, 1}, all, "newest first")

	page1, err := repo.ListFollowers(ctx, 100, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 4}, page1)

	page3, err := repo.ListFollowers(ctx, 100, "", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, page3)
}

func TestListFollowingFiltersByType(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 9, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 9, "authors:post")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 3, 9, "authors:post")
	require.NoError(t, err)

	social, err := repo.ListFollowing(ctx, 9, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, social)

	authors, err := repo.ListFollowing(ctx, 9, "authors:post", 0, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, authors)
}

func TestDistinctObjectIDs(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 2, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, 3, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 5, 6, "category")
	require.NoError(t, err)

	ids, err := repo.DistinctObjectIDs(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{1, 2, 3}, ids)

	tags, err := repo.DistinctFollowTypes(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"", "category"}, tags)
}

func TestFollowWritesOutboxInSameTx(t *testing.T) {
	db := newTestDB(t)
	repo := &FollowRepository{DB: db}
	outbox := &OutboxRepository{DB: db}
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, 2, "authors:post")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, 1, 2, "authors:post")
	require.NoError(t, err)

	rows, err := outbox.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "follow", rows[0].EventType)
	assert.Equal(t, "unfollow", rows[1].EventType)
	assert.Equal(t, "authors:post", rows[0].FollowType)
	assert.Contains(t, rows[0].Payload, `"follow_type":"authors:post"`)

	// 重复关注不产生事件
	_, err = repo.Create(ctx, 3, 4, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 3, 4, "")
	require.NoError(t, err)
	rows, err = outbox.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestDeleteAll(t *testing.T) {
	repo := &FollowRepository{DB: newTestDB(t)}
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		_, err := repo.Create(ctx, 50, i, "")
		require.NoError(t, err)
	}
	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	var left int64
	require.NoError(t, repo.DB.Model(&model.FollowEdge{}).Count(&left).Error)
	assert.Zero(t, left)
}

func TestCountUpsert(t *testing.T) {
	repo := &CountRepository{DB: newTestDB(t)}
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, 1, "user", 3, 5))
	require.NoError(t, repo.Upsert(ctx, 1, "user", 4, 5))

	row, err := repo.Get(ctx, 1, "user")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.EqualValues(t, 4, row.FollowerCount)
	assert.EqualValues(t, 5, row.FollowingCount)

	// 同 ID 不同类型是不同的计数行
	require.NoError(t, repo.Upsert(ctx, 1, "author:post", 9, 0))
	row, err = repo.Get(ctx, 1, "author:post")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.EqualValues(t, 9, row.FollowerCount)

	missing, err := repo.Get(ctx, 99, "user")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStats(t *testing.T) {
	db := newTestDB(t)
	follows := &FollowRepository{DB: db}
	stats := &StatsRepository{DB: db}
	ctx := context.Background()

	// 1 被 2,3 关注；2 被 3 关注
	_, _ = follows.Create(ctx, 1, 2, "")
	_, _ = follows.Create(ctx, 1, 3, "")
	_, _ = follows.Create(ctx, 2, 3, "")

	s, err := stats.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, s.TotalEdges)
	assert.EqualValues(t, 2, s.UsersWithFollowers)
	assert.EqualValues(t, 2, s.UsersFollowing)
	assert.EqualValues(t, 1, s.TopLeaderID)
	assert.EqualValues(t, 2, s.TopLeaderCount)
	assert.EqualValues(t, 3, s.TopFollowerID)
	assert.EqualValues(t, 2, s.TopFollowerCount)
}
