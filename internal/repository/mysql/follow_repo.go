package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
)

type FollowRepository struct {
	DB *gorm.DB
}

type OutboxRepository struct {
	DB *gorm.DB
}

// Create 创建关注边。三元组已存在时返回 changed=false，不覆盖不报错。
// 唯一索引是并发下的唯一防线，冲突映射为重复请求而不是错误。
func (r *FollowRepository) Create(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.FollowEdge{}).
			Where("leader_id=? AND follower_id=? AND follow_type=?", leaderID, followerID, followType).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			changed = false
			return nil
		}
		edge := model.FollowEdge{
			LeaderID:   leaderID,
			FollowerID: followerID,
			FollowType: followType,
		}
		if err := tx.Create(&edge).Error; err != nil {
			// 并发重复创建：另一个请求先落库
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				changed = false
				return nil
			}
			return err
		}
		changed = true
		return r.insertOutbox(tx, "follow", leaderID, followerID, followType)
	})
	return changed, err
}

// Delete 物理删除关注边，不存在时返回 changed=false
func (r *FollowRepository) Delete(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("leader_id=? AND follower_id=? AND follow_type=?", leaderID, followerID, followType).
			Delete(&model.FollowEdge{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			changed = false
			return nil
		}
		changed = true
		return r.insertOutbox(tx, "unfollow", leaderID, followerID, followType)
	})
	return changed, err
}

// Exists 判断关注边是否存在
func (r *FollowRepository) Exists(ctx context.Context, leaderID, followerID uint64, followType string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&model.FollowEdge{}).
		Where("leader_id=? AND follower_id=? AND follow_type=?", leaderID, followerID, followType).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFollowers 获取粉丝 ID 列表，按创建先后倒序。perPage<=0 表示不分页取全量。
func (r *FollowRepository) ListFollowers(ctx context.Context, leaderID uint64, followType string, page, perPage int) ([]uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("leader_id=? AND follow_type=?", leaderID, followType).
		Order("id DESC")
	q = applyPaging(q, page, perPage)
	var ids []uint64
	if err := q.Pluck("follower_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListFollowing 获取关注对象 ID 列表
func (r *FollowRepository) ListFollowing(ctx context.Context, followerID uint64, followType string, page, perPage int) ([]uint64, error) {
	q := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follower_id=? AND follow_type=?", followerID, followType).
		Order("id DESC")
	q = applyPaging(q, page, perPage)
	var ids []uint64
	if err := q.Pluck("leader_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountFollowers 粉丝数真实值，缓存与计数表都以此为准
func (r *FollowRepository) CountFollowers(ctx context.Context, leaderID uint64, followType string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("leader_id=? AND follow_type=?", leaderID, followType).
		Count(&n).Error
	return n, err
}

// CountFollowing 关注数真实值
func (r *FollowRepository) CountFollowing(ctx context.Context, followerID uint64, followType string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follower_id=? AND follow_type=?", followerID, followType).
		Count(&n).Error
	return n, err
}

// DistinctObjectIDs 某类型下出现过的全部 leader 与 follower ID，对账和 sync-counts 用
func (r *FollowRepository) DistinctObjectIDs(ctx context.Context, followType string) ([]uint64, error) {
	var leaders, followers []uint64
	if err := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follow_type=?", followType).
		Distinct().Pluck("leader_id", &leaders).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Where("follow_type=?", followType).
		Distinct().Pluck("follower_id", &followers).Error; err != nil {
		return nil, err
	}
	seen := make(map[uint64]struct{}, len(leaders)+len(followers))
	ids := make([]uint64, 0, len(leaders)+len(followers))
	for _, id := range append(leaders, followers...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// DistinctFollowTypes 库里出现过的全部 follow_type
func (r *FollowRepository) DistinctFollowTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := r.DB.WithContext(ctx).Model(&model.FollowEdge{}).
		Distinct().Pluck("follow_type", &types).Error
	return types, err
}

// DeleteAll 清空全部关注边，只给 CLI 的 delete-all 用
func (r *FollowRepository) DeleteAll(ctx context.Context) (int64, error) {
	res := r.DB.WithContext(ctx).Where("1=1").Delete(&model.FollowEdge{})
	return res.RowsAffected, res.Error
}

func applyPaging(q *gorm.DB, page, perPage int) *gorm.DB {
	if perPage <= 0 {
		return q
	}
	if perPage > 100 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}
	return q.Offset((page - 1) * perPage).Limit(perPage)
}

// 插入outbox事件表，与边的变更同事务
func (r *FollowRepository) insertOutbox(tx *gorm.DB, event string, leaderID, followerID uint64, followType string) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time":  time.Now().UTC().Format(time.RFC3339Nano),
		"leader":      leaderID,
		"follower":    followerID,
		"follow_type": followType,
	})
	ob := &model.SocialOutbox{
		EventType:  event,
		Leader:     leaderID,
		Follower:   followerID,
		FollowType: followType,
		Payload:    string(payload),
		Status:     0,
	}
	return tx.Create(ob).Error
}

// List outbox查询
func (r *OutboxRepository) List(ctx context.Context, batchSize int) ([]model.SocialOutbox, error) {
	var list []model.SocialOutbox
	if err := r.DB.WithContext(ctx).
		Where("status=0").
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": 2, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.SocialOutbox{}).Where("id=?", id).
		Update("status", 1).Error
}
