package mysql

import (
	"Follow_Community/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitDB 打开 MySQL 连接，TranslateError 让唯一键冲突映射为 gorm.ErrDuplicatedKey
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 自动建表（开发阶段 OK）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.FollowEdge{},
		&model.FollowCount{},
		&model.SocialOutbox{},
		&model.Post{},
		&model.Term{},
		&model.PostTerm{},
		&model.NotificationQueueEntry{},
		&model.Notification{},
		&model.DigestQueueEntry{},
		&model.DigestPreference{},
	)
}
