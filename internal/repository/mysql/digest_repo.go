package mysql

import (
	"context"
	"errors"
	"time"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DigestRepository struct {
	DB *gorm.DB
}

// QueueFollower 新粉丝进摘要队列。同一 (user, follower) 重复关注只刷新时间戳。
func (r *DigestRepository) QueueFollower(ctx context.Context, userID, followerID uint64) error {
	row := model.DigestQueueEntry{
		UserID:     userID,
		FollowerID: followerID,
		QueuedAt:   time.Now(),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "follower_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"queued_at"}),
	}).Create(&row).Error
}

// QueueFor 某用户攒下的全部摘要条目，按入队先后
func (r *DigestRepository) QueueFor(ctx context.Context, userID uint64) ([]model.DigestQueueEntry, error) {
	var list []model.DigestQueueEntry
	err := r.DB.WithContext(ctx).
		Where("user_id=?", userID).
		Order("queued_at ASC").
		Find(&list).Error
	return list, err
}

// UsersWithQueued 队列里出现过的全部接收者
func (r *DigestRepository) UsersWithQueued(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.DigestQueueEntry{}).
		Distinct().Pluck("user_id", &ids).Error
	return ids, err
}

// Clear 摘要发送成功后清空该用户的队列
func (r *DigestRepository) Clear(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).
		Where("user_id=?", userID).
		Delete(&model.DigestQueueEntry{}).Error
}

// GetPreference 读取用户对某 post_type 的摘要模式，不存在返回 (nil, nil)
func (r *DigestRepository) GetPreference(ctx context.Context, userID uint64, postType string) (*model.DigestPreference, error) {
	var p model.DigestPreference
	err := r.DB.WithContext(ctx).
		Where("user_id=? AND post_type=?", userID, postType).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpsertPreference 保存用户的摘要模式选择
func (r *DigestRepository) UpsertPreference(ctx context.Context, userID uint64, postType, mode string) error {
	row := model.DigestPreference{
		UserID:     userID,
		PostType:   postType,
		DigestMode: mode,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"digest_mode", "updated_at"}),
	}).Create(&row).Error
}
