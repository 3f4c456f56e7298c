package model

import "time"

const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

type Post struct {
	ID        uint64 `gorm:"primaryKey"`
	AuthorID  uint64 `gorm:"not null;index:idx_author_time"`
	PostType  string `gorm:"size:75;not null;default:'post';index"`
	Title     string `gorm:"size:200;not null"`
	Content   string `gorm:"type:text"`
	Status    string `gorm:"size:20;not null;default:'draft'"`
	CreatedAt time.Time `gorm:"index:idx_author_time"`
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// Term 分类词条（category / post_tag 等 taxonomy 下的词条）
type Term struct {
	ID        uint64 `gorm:"primaryKey"`
	Taxonomy  string `gorm:"size:75;not null;index;uniqueIndex:uk_taxonomy_slug,priority:1"`
	Name      string `gorm:"size:128;not null"`
	Slug      string `gorm:"size:128;not null;uniqueIndex:uk_taxonomy_slug,priority:2"`
	CreatedAt time.Time
}

func (Term) TableName() string { return "terms" }

// PostTerm 帖子与词条的关联
type PostTerm struct {
	ID     uint64 `gorm:"primaryKey"`
	PostID uint64 `gorm:"not null;index;uniqueIndex:uk_post_term,priority:1"`
	TermID uint64 `gorm:"not null;index;uniqueIndex:uk_post_term,priority:2"`
}

func (PostTerm) TableName() string { return "post_terms" }
