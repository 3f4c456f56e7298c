package mysql

import (
	"context"
	"time"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
)

type QueueRepository struct {
	DB *gorm.DB
}

type NotificationRepository struct {
	DB *gorm.DB
}

// Enqueue 批量写入队列条目
func (r *QueueRepository) Enqueue(ctx context.Context, entries []model.NotificationQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&entries).Error
}

// ClaimBatch 认领一批待处理条目：先按 priority DESC, created_time ASC 选出
// pending 且到期的行，再逐行条件更新为 processing。并发的另一次批处理
// 会在条件更新处落空，被它抢走的行直接跳过，避免重复投递。
func (r *QueueRepository) ClaimBatch(ctx context.Context, batchSize int, now time.Time) ([]model.NotificationQueueEntry, error) {
	var candidates []model.NotificationQueueEntry
	if err := r.DB.WithContext(ctx).
		Where("status=? AND scheduled_time <= ?", model.QueueStatusPending, now).
		Order("priority DESC").Order("created_time ASC").
		Limit(batchSize).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	claimed := make([]model.NotificationQueueEntry, 0, len(candidates))
	for _, c := range candidates {
		res := r.DB.WithContext(ctx).Model(&model.NotificationQueueEntry{}).
			Where("id=? AND status=?", c.ID, model.QueueStatusPending).
			Update("status", model.QueueStatusProcessing)
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		c.Status = model.QueueStatusProcessing
		claimed = append(claimed, c)
	}
	return claimed, nil
}

// MarkProcessed 投递成功，终态
func (r *QueueRepository) MarkProcessed(ctx context.Context, id uint64, now time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationQueueEntry{}).
		Where("id=?", id).
		Updates(map[string]any{
			"status":         model.QueueStatusProcessed,
			"processed_time": now,
		}).Error
}

// MarkFailed 重试耗尽，终态，之后的批处理不再选中
func (r *QueueRepository) MarkFailed(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationQueueEntry{}).
		Where("id=?", id).
		Update("status", model.QueueStatusFailed).Error
}

// Reschedule 投递失败回到 pending，退避后重试
func (r *QueueRepository) Reschedule(ctx context.Context, id uint64, retryCount int, scheduled time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.NotificationQueueEntry{}).
		Where("id=?", id).
		Updates(map[string]any{
			"status":         model.QueueStatusPending,
			"retry_count":    retryCount,
			"scheduled_time": scheduled,
		}).Error
}

// CountEligible 仍到期未处理的行数，决定是否追加一轮批处理
func (r *QueueRepository) CountEligible(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.NotificationQueueEntry{}).
		Where("status=? AND scheduled_time <= ?", model.QueueStatusPending, now).
		Count(&n).Error
	return n, err
}

// Get 读取单条，测试和排障用
func (r *QueueRepository) Get(ctx context.Context, id uint64) (*model.NotificationQueueEntry, error) {
	var e model.NotificationQueueEntry
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser 某接收者的全部队列条目
func (r *QueueRepository) ListByUser(ctx context.Context, userID uint64) ([]model.NotificationQueueEntry, error) {
	var list []model.NotificationQueueEntry
	err := r.DB.WithContext(ctx).
		Where("user_id=?", userID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// Create 写入平台站内通知
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

// DeleteFollowNotification 取消关注时撤掉对应的 new_follow 通知
func (r *NotificationRepository) DeleteFollowNotification(ctx context.Context, userID, itemID uint64) error {
	return r.DB.WithContext(ctx).
		Where("user_id=? AND item_id=? AND action=?", userID, itemID, model.NotifyNewFollow).
		Delete(&model.Notification{}).Error
}
