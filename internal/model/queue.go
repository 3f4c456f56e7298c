package model

import "time"

const (
	QueueStatusPending    = "pending"
	QueueStatusProcessing = "processing" // 批处理已认领，防止并发重复投递
	QueueStatusQueued     = "queued"     // 等待摘要路径，不参与批处理
	QueueStatusProcessed  = "processed"
	QueueStatusFailed     = "failed"

	NotifyNewPostAuthor = "new_post_author"
	NotifyNewPostTerm   = "new_post_term"
	NotifyNewFollow     = "new_follow"

	// QueueMaxRetries 重试上限，达到后进入 failed 终态
	QueueMaxRetries = 3
	// QueueRetryBackoff 每次重试的退避基数（秒），实际为 backoff * retry_count
	QueueRetryBackoff = 300 * time.Second
)

// NotificationQueueEntry 通知队列表，一行代表一次待投递
type NotificationQueueEntry struct {
	ID               uint64 `gorm:"primaryKey"`
	UserID           uint64 `gorm:"not null;index"`
	ItemID           uint64 `gorm:"not null"`
	ItemType         string `gorm:"size:75;not null"`
	NotificationType string `gorm:"size:75;not null;index"`
	TermID           uint64 `gorm:"not null;default:0"`
	Taxonomy         string `gorm:"size:75;not null;default:''"`
	Status           string `gorm:"size:20;not null;default:'pending';index"`
	Priority         int    `gorm:"not null;default:5"`
	RetryCount       int    `gorm:"not null;default:0"`
	ScheduledTime    time.Time `gorm:"index"`
	CreatedTime      time.Time
	ProcessedTime    *time.Time
}

func (NotificationQueueEntry) TableName() string { return "follow_notification_queue" }

// Notification 平台站内通知记录（投递成功的产物）
type Notification struct {
	ID              uint64 `gorm:"primaryKey"`
	UserID          uint64 `gorm:"not null;index"`
	ItemID          uint64 `gorm:"not null"`
	SecondaryItemID uint64 `gorm:"not null;default:0"`
	Action          string `gorm:"size:75;not null"`
	IsNew           bool   `gorm:"not null;default:1"`
	CreatedAt       time.Time
}

func (Notification) TableName() string { return "notifications" }

// DigestQueueEntry 摘要队列，按 (user_id, follower_id) 去重，重复关注刷新时间戳
type DigestQueueEntry struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;index;uniqueIndex:uk_user_follower,priority:1"`
	FollowerID uint64 `gorm:"not null;uniqueIndex:uk_user_follower,priority:2"`
	QueuedAt   time.Time
}

func (DigestQueueEntry) TableName() string { return "follow_digest_queue" }

const (
	DigestModeCombined   = "combined"
	DigestModeSeparate   = "separate"
	DigestModeUserChoice = "user_choice"

	DigestFreqDaily  = "daily"
	DigestFreqWeekly = "weekly"
)

// DigestPreference 用户对某 post_type 的摘要模式选择，仅当管理员配置为 user_choice 时生效
type DigestPreference struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"not null;uniqueIndex:uk_user_post_type,priority:1"`
	PostType   string `gorm:"size:75;not null;uniqueIndex:uk_user_post_type,priority:2"`
	DigestMode string `gorm:"size:20;not null;default:'combined'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DigestPreference) TableName() string { return "follow_digest_prefs" }
