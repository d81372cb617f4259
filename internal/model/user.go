package model

import (
	"time"
)

const (
	UserProviderBackend = "backend"
	UserProviderLocal   = "local"
	UserProviderGoogle  = "google"
)

// User 本地用户记录。认证后端可用时作为缓存，不可用时作为降级账号
type User struct {
	ID             string     `gorm:"primaryKey;size:64" json:"id"`
	Email          string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Name           string     `gorm:"size:100" json:"name"`
	AvatarURL      string     `gorm:"size:500" json:"avatar_url"`
	Provider       string     `gorm:"size:20;default:local" json:"provider"`
	PasswordHash   *string    `gorm:"size:255" json:"-"`
	ResetCode      *string    `gorm:"size:100;index" json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
