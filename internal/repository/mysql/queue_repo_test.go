package mysql

import (
	"context"
	"testing"
	"time"

	"Follow_Community/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueEntry(userID uint64, priority int, created, scheduled time.Time) model.NotificationQueueEntry {
	return model.NotificationQueueEntry{
		UserID:           userID,
		ItemID:           1,
		ItemType:         "post",
		NotificationType: model.NotifyNewPostAuthor,
		Status:           model.QueueStatusPending,
		Priority:         priority,
		ScheduledTime:    scheduled,
		CreatedTime:      created,
	}
}

func TestClaimBatchOrdering(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	// 高优先级靠前，同优先级按创建时间先后
	require.NoError(t, repo.Enqueue(ctx, []model.NotificationQueueEntry{
		queueEntry(1, 5, now.Add(-2*time.Minute), now.Add(-time.Minute)),
		queueEntry(2, 9, now.Add(-1*time.Minute), now.Add(-time.Minute)),
		queueEntry(3, 5, now.Add(-3*time.Minute), now.Add(-time.Minute)),
	}))

	claimed, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 3)
	assert.EqualValues(t, 2, claimed[0].UserID, "highest priority first")
	assert.EqualValues(t, 3, claimed[1].UserID, "then oldest")
	assert.EqualValues(t, 1, claimed[2].UserID)
	for _, c := range claimed {
		assert.Equal(t, model.QueueStatusProcessing, c.Status)
	}
}

func TestClaimBatchSkipsFutureAndNonPending(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	future := queueEntry(1, 5, now, now.Add(10*time.Minute))
	queued := queueEntry(2, 5, now, now.Add(-time.Minute))
	queued.Status = model.QueueStatusQueued
	ready := queueEntry(3, 5, now, now.Add(-time.Minute))
	require.NoError(t, repo.Enqueue(ctx, []model.NotificationQueueEntry{future, queued, ready}))

	claimed, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.EqualValues(t, 3, claimed[0].UserID)
}

func TestClaimBatchRespectsBatchSize(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	var entries []model.NotificationQueueEntry
	for i := 0; i < 60; i++ {
		entries = append(entries, queueEntry(uint64(i+1), 5, now.Add(time.Duration(i)*time.Second), now.Add(-time.Minute)))
	}
	require.NoError(t, repo.Enqueue(ctx, entries))

	claimed, err := repo.ClaimBatch(ctx, 50, now)
	require.NoError(t, err)
	assert.Len(t, claimed, 50)

	left, err := repo.CountEligible(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 10, left)
}

func TestClaimBatchIsExclusive(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Enqueue(ctx, []model.NotificationQueueEntry{
		queueEntry(1, 5, now, now.Add(-time.Minute)),
	}))

	first, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// 已被认领的行不会被第二轮拿到
	second, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestMarkProcessedAndReschedule(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Enqueue(ctx, []model.NotificationQueueEntry{
		queueEntry(1, 5, now, now.Add(-time.Minute)),
		queueEntry(2, 5, now, now.Add(-time.Minute)),
	}))
	claimed, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, repo.MarkProcessed(ctx, claimed[0].ID, now))
	done, err := repo.Get(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusProcessed, done.Status)
	require.NotNil(t, done.ProcessedTime)

	backoff := now.Add(model.QueueRetryBackoff)
	require.NoError(t, repo.Reschedule(ctx, claimed[1].ID, 1, backoff))
	retry, err := repo.Get(ctx, claimed[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusPending, retry.Status)
	assert.Equal(t, 1, retry.RetryCount)
	assert.WithinDuration(t, backoff, retry.ScheduledTime, time.Second)

	// 退避时间未到，不会被再次认领
	claimed, err = repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	// 到点后重新可见
	claimed, err = repo.ClaimBatch(ctx, 10, backoff.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestMarkFailedIsTerminal(t *testing.T) {
	repo := &QueueRepository{DB: newTestDB(t)}
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Enqueue(ctx, []model.NotificationQueueEntry{
		queueEntry(1, 5, now, now.Add(-time.Minute)),
	}))
	claimed, err := repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	require.NoError(t, repo.MarkFailed(ctx, claimed[0].ID))

	later, err := repo.ClaimBatch(ctx, 10, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestDigestQueueDedup(t *testing.T) {
	repo := &DigestRepository{DB: newTestDB(t)}
	ctx := context.Background()

	require.NoError(t, repo.QueueFollower(ctx, 1, 2))
	require.NoError(t, repo.QueueFollower(ctx, 1, 2))
	require.NoError(t, repo.QueueFollower(ctx, 1, 3))

	entries, err := repo.QueueFor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "same follower queued once")

	users, err := repo.UsersWithQueued(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, users)

	require.NoError(t, repo.Clear(ctx, 1))
	entries, err = repo.QueueFor(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
