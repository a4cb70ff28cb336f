package model

import (
	"time"

	"soundhub/media"
)

// User 用户，同时是 track 的 artist 和 set 的 creator
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string     `json:"email" gorm:"size:100;uniqueIndex;not null"`
	Permalink    string     `json:"permalink" gorm:"size:25;uniqueIndex;not null"`
	DisplayName  string     `json:"display_name" gorm:"size:25;not null"`
	PasswordHash string     `json:"-" gorm:"size:128;not null"`
	Birthday     *time.Time `json:"birthday" gorm:"type:date"`
	Gender       string     `json:"gender" gorm:"size:20"`
	FirstName    string     `json:"first_name" gorm:"size:20"`
	LastName     string     `json:"last_name" gorm:"size:20"`
	City         string     `json:"city" gorm:"size:50"`
	Country      string     `json:"country" gorm:"size:50"`
	Bio          string     `json:"bio" gorm:"type:text"`
	ImageProfile *string    `json:"-" gorm:"size:512;uniqueIndex"`
	ImageHeader  *string    `json:"-" gorm:"size:512;uniqueIndex"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

func (u *User) MediaEntityType() media.EntityType { return media.EntityUser }

func (u *User) MediaID() int64 { return u.ID }

func (u *User) MediaURL(field media.Field) *string {
	switch field {
	case media.FieldImageProfile:
		return u.ImageProfile
	case media.FieldImageHeader:
		return u.ImageHeader
	}
	return nil
}

func (u *User) SetMediaURL(field media.Field, url string) {
	switch field {
	case media.FieldImageProfile:
		u.ImageProfile = &url
	case media.FieldImageHeader:
		u.ImageHeader = &url
	}
}

// Follow 关注关系
type Follow struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	FollowerID int64     `json:"follower_id" gorm:"uniqueIndex:uq_follow_pair;not null"`
	FolloweeID int64     `json:"followee_id" gorm:"uniqueIndex:uq_follow_pair;index;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Follow) TableName() string {
	return "follows"
}
