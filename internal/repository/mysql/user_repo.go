package mysql

import (
	"context"
	"errors"
	"time"

	"Follow_Community/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("username=?", username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("email=?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists 用户是否存在，只查主键不取整行
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", id).Count(&n).Error
	return n > 0, err
}

// FindByIDs 批量取用户，摘要邮件拼粉丝名单用
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []model.User
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, hashed string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", id).
		Update("password", hashed).Error
}

// UpdateNotifySettings 更新邮件通知与摘要开关
func (r *UserRepository) UpdateNotifySettings(ctx context.Context, id uint64, notifyNewPost, digestEnabled bool, digestFreq string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", id).
		Updates(map[string]any{
			"notify_new_post": notifyNewPost,
			"digest_enabled":  digestEnabled,
			"digest_freq":     digestFreq,
		}).Error
}

// StampDigestSent 记录摘要发送时间，间隔判定以此为锚
func (r *UserRepository) StampDigestSent(ctx context.Context, id uint64, t time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id=?", id).
		Update("digest_last_sent", t).Error
}

// IsDuplicate 注册时用户名/邮箱冲突判定
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
