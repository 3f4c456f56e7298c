package model

import (
	"fmt"
	"strings"
	"time"
)

// FollowEdge 关注边，(leader_id, follower_id, follow_type) 三元组唯一
type FollowEdge struct {
	ID         uint64 `gorm:"primaryKey"`
	LeaderID   uint64 `gorm:"not null;index:idx_leader_id;uniqueIndex:uk_leader_follower_type,priority:1"`
	FollowerID uint64 `gorm:"not null;index:idx_follower_id;uniqueIndex:uk_leader_follower_type,priority:2"`
	FollowType string `gorm:"size:75;not null;default:'';uniqueIndex:uk_leader_follower_type,priority:3"`
	CreatedAt  time.Time
}

// TableName sets table name for FollowEdge
func (FollowEdge) TableName() string {
	return "follow"
}

// FollowCount 聚合计数缓存表，按 (object_id, object_type) 唯一
type FollowCount struct {
	ID             uint64 `gorm:"primaryKey"`
	ObjectID       uint64 `gorm:"not null;uniqueIndex:uk_object,priority:1"`
	ObjectType     string `gorm:"size:75;not null;uniqueIndex:uk_object,priority:2"`
	FollowerCount  int64  `gorm:"not null;default:0"`
	FollowingCount int64  `gorm:"not null;default:0"`
	LastUpdated    time.Time
}

func (FollowCount) TableName() string { return "follow_counts" }

// SocialOutbox 关注事件监控表
type SocialOutbox struct {
	ID         uint64 `gorm:"primaryKey"`
	EventType  string `gorm:"size:32;not null"` // follow / unfollow
	Follower   uint64 `gorm:"not null"`
	Leader     uint64 `gorm:"not null"`
	FollowType string `gorm:"size:75;not null;default:''"`
	Payload    string `gorm:"type:json;not null"`
	Status     int8   `gorm:"not null;default:0;comment:'0=pending,1=sent,2=failed'"`
	Retry      int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (SocialOutbox) TableName() string { return "social_outbox" }

// FollowKind 关注关系的种类
type FollowKind int

const (
	KindSocial FollowKind = iota // 用户关注用户
	KindAuthor                   // 用户关注作者的某类内容
	KindTerm                     // 用户关注分类词条
)

// FollowType 类型化的关注标签，替代字符串拼接分发
type FollowType struct {
	Kind     FollowKind
	PostType string // KindAuthor 有效
	Taxonomy string // KindTerm 有效
}

func SocialFollow() FollowType { return FollowType{Kind: KindSocial} }

func AuthorFollow(postType string) FollowType {
	return FollowType{Kind: KindAuthor, PostType: postType}
}

func TermFollow(taxonomy string) FollowType {
	return FollowType{Kind: KindTerm, Taxonomy: taxonomy}
}

// Tag 存储用的 follow_type 标签，空串表示默认社交关注
func (t FollowType) Tag() string {
	switch t.Kind {
	case KindAuthor:
		return "authors:" + t.PostType
	case KindTerm:
		return t.Taxonomy
	default:
		return ""
	}
}

// Object 缓存键的命名空间
func (t FollowType) Object() string {
	if t.Kind == KindSocial {
		return "user"
	}
	return t.Tag()
}

// ObjectType 计数表的 object_type 值
func (t FollowType) ObjectType() string {
	switch t.Kind {
	case KindAuthor:
		return "author:" + t.PostType
	case KindTerm:
		return "term:" + t.Taxonomy
	default:
		return "user"
	}
}

func (t FollowType) String() string {
	if t.Kind == KindSocial {
		return "social"
	}
	return t.Tag()
}

// ParseFollowType 从存储标签还原类型
func ParseFollowType(tag string) (FollowType, error) {
	if tag == "" {
		return SocialFollow(), nil
	}
	if rest, ok := strings.CutPrefix(tag, "authors:"); ok {
		if rest == "" {
			return FollowType{}, fmt.Errorf("invalid follow type %q", tag)
		}
		return AuthorFollow(rest), nil
	}
	return TermFollow(tag), nil
}
