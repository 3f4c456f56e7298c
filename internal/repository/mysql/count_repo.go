package mysql

import (
	"context"
	"errors"
	"time"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CountRepository struct {
	DB *gorm.DB
}

type StatsRepository struct {
	DB *gorm.DB
}

// FollowStats CLI stats 输出的聚合结果
type FollowStats struct {
	TotalEdges         int64
	UsersWithFollowers int64
	UsersFollowing     int64
	TopLeaderID        uint64
	TopLeaderCount     int64
	TopFollowerID      uint64
	TopFollowerCount   int64
}

// Upsert 写入/更新计数行
func (r *CountRepository) Upsert(ctx context.Context, objectID uint64, objectType string, followerCount, followingCount int64) error {
	row := model.FollowCount{
		ObjectID:       objectID,
		ObjectType:     objectType,
		FollowerCount:  followerCount,
		FollowingCount: followingCount,
		LastUpdated:    time.Now(),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_id"}, {Name: "object_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"follower_count", "following_count", "last_updated"}),
	}).Create(&row).Error
}

// Get 读取计数行，不存在返回 (nil, nil)，调用方回源边表
func (r *CountRepository) Get(ctx context.Context, objectID uint64, objectType string) (*model.FollowCount, error) {
	var row model.FollowCount
	err := r.DB.WithContext(ctx).
		Where("object_id=? AND object_type=?", objectID, objectType).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// DeleteAll 清空计数表，随 delete-all 一起执行
func (r *CountRepository) DeleteAll(ctx context.Context) error {
	return r.DB.WithContext(ctx).Where("1=1").Delete(&model.FollowCount{}).Error
}

// Stats 聚合统计，CLI stats 用
func (r *StatsRepository) Stats(ctx context.Context) (*FollowStats, error) {
	db := r.DB.WithContext(ctx)
	s := &FollowStats{}

	if err := db.Model(&model.FollowEdge{}).Count(&s.TotalEdges).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.FollowEdge{}).Distinct("leader_id").Count(&s.UsersWithFollowers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.FollowEdge{}).Distinct("follower_id").Count(&s.UsersFollowing).Error; err != nil {
		return nil, err
	}

	type pair struct {
		ID  uint64
		Cnt int64
	}
	var top pair
	err := db.Model(&model.FollowEdge{}).
		Select("leader_id AS id, COUNT(*) AS cnt").
		Group("leader_id").Order("cnt DESC").Limit(1).Scan(&top).Error
	if err == nil {
		s.TopLeaderID, s.TopLeaderCount = top.ID, top.Cnt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	top = pair{}
	err = db.Model(&model.FollowEdge{}).
		Select("follower_id AS id, COUNT(*) AS cnt").
		Group("follower_id").Order("cnt DESC").Limit(1).Scan(&top).Error
	if err == nil {
		s.TopFollowerID, s.TopFollowerCount = top.ID, top.Cnt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return s, nil
}
