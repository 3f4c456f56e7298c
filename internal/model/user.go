package model

import "time"

type User struct {
	ID            uint64 `gorm:"primaryKey"`
	Username      string `gorm:"uniqueIndex;size:32;not null"`
	Password      string `gorm:"size:255;not null"`
	Role          int    `gorm:"default:0"`
	Email         string `gorm:"uniqueIndex;size:64;not null"`
	NotifyNewPost bool   `gorm:"not null;default:0;comment:'新内容邮件开关'"`
	DigestEnabled bool   `gorm:"not null;default:1"`
	DigestFreq    string `gorm:"size:20;not null;default:'weekly';comment:'daily/weekly'"`
	DigestLastSent *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
