package service

import (
	"context"
	"testing"

	"Follow_Community/internal/model"
	"Follow_Community/internal/repository/mysql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 从社交关注到作者发帖投递的完整链路，监听器按生产方式挂好
func TestFollowPublishDeliverFlow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	mailer := &fakeMailer{}

	follow, dispatcher := newFollowStack(t, db, newFakeCache())
	userRepo := &mysql.UserRepository{DB: db}
	author := NewAuthorFollowService(testFollowConfig(), follow, userRepo)
	notify := NewNotifyService(
		testFollowConfig(),
		&mysql.QueueRepository{DB: db},
		&mysql.NotificationRepository{DB: db},
		userRepo,
		&mysql.PostRepository{DB: db},
		follow,
		mailer,
		testLogger(),
	)
	digest := NewDigestService(testFollowConfig(), &mysql.DigestRepository{DB: db}, userRepo, mailer, testLogger())
	dispatcher.RegisterKind(ActionStartFollowing, model.KindSocial, notify.HandleStartFollowing)
	dispatcher.RegisterKind(ActionStopFollowing, model.KindSocial, notify.HandleStopFollowing)
	dispatcher.RegisterKind(ActionStartFollowing, model.KindSocial, digest.HandleStartFollowing)

	a := mustCreateUser(t, db, 1, "alice", true)
	b := mustCreateUser(t, db, 2, "bob", false)
	c := mustCreateUser(t, db, 3, "carol", false)

	// alice 关注 bob
	changed, err := follow.Follow(ctx, b.ID, a.ID, model.SocialFollow())
	require.NoError(t, err)
	require.True(t, changed)

	following, err := follow.IsFollowing(ctx, b.ID, a.ID, model.SocialFollow())
	require.NoError(t, err)
	assert.True(t, following)

	followers, err := follow.GetFollowers(ctx, b.ID, model.SocialFollow(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{a.ID}, followers)

	counts, err := follow.GetCounts(ctx, b.ID, model.SocialFollow())
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Followers)
	assert.EqualValues(t, 0, counts.Following)

	// bob 收到站内通知，摘要队列攒下 alice
	var notes []model.Notification
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyNewFollow, notes[0].Action)
	assert.Equal(t, b.ID, notes[0].UserID)

	var queued []model.DigestQueueEntry
	require.NoError(t, db.Find(&queued).Error)
	require.Len(t, queued, 1)
	assert.Equal(t, b.ID, queued[0].UserID)
	assert.Equal(t, a.ID, queued[0].FollowerID)

	// alice 再关注作者 carol 的 post 类型
	changed, err = author.FollowAuthor(ctx, c.ID, a.ID, []string{"post"})
	require.NoError(t, err)
	require.True(t, changed)

	// carol 发帖，只扇出给 alice
	posts := &mysql.PostRepository{DB: db}
	post := &model.Post{AuthorID: c.ID, PostType: "post", Title: "news", Status: model.PostStatusDraft}
	require.NoError(t, posts.Create(ctx, post))
	changed, err = notify.PublishPost(ctx, post.ID)
	require.NoError(t, err)
	require.True(t, changed)

	var entries []model.NotificationQueueEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, a.ID, entries[0].UserID)
	assert.Equal(t, model.NotifyNewPostAuthor, entries[0].NotificationType)
	assert.EqualValues(t, post.ID, entries[0].ItemID)
	assert.Equal(t, model.QueueStatusPending, entries[0].Status)

	// 发帖不碰摘要队列
	require.NoError(t, db.Find(&queued).Error)
	assert.Len(t, queued, 1)

	// 批处理投递完毕
	processed, failed, err := notify.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)

	require.NoError(t, db.First(&entries[0], entries[0].ID).Error)
	assert.Equal(t, model.QueueStatusProcessed, entries[0].Status)
	assert.NotNil(t, entries[0].ProcessedTime)

	require.NoError(t, db.Where("user_id=?", a.ID).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyNewPostAuthor, notes[0].Action)
}
