package model

import "time"

// Reaction target types.
const (
	TargetTrack = "track"
	TargetSet   = "set"
)

// Like 点赞，目标为 track 或 set
type Like struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int64     `json:"user_id" gorm:"uniqueIndex:uq_like;not null"`
	TargetType string    `json:"target_type" gorm:"size:10;uniqueIndex:uq_like;index:idx_like_target;not null"`
	TargetID   int64     `json:"target_id" gorm:"uniqueIndex:uq_like;index:idx_like_target;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Like) TableName() string {
	return "likes"
}

// Repost 转发，目标为 track 或 set
type Repost struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     int64     `json:"user_id" gorm:"uniqueIndex:uq_repost;not null"`
	TargetType string    `json:"target_type" gorm:"size:10;uniqueIndex:uq_repost;index:idx_repost_target;not null"`
	TargetID   int64     `json:"target_id" gorm:"uniqueIndex:uq_repost;index:idx_repost_target;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (Repost) TableName() string {
	return "reposts"
}

// Comment is a timed comment on a track.
type Comment struct {
	ID              int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	WriterID        int64     `json:"-" gorm:"index;not null"`
	Writer          *User     `json:"writer,omitempty" gorm:"foreignKey:WriterID;constraint:OnDelete:CASCADE"`
	TrackID         int64     `json:"track_id" gorm:"index;not null"`
	Content         string    `json:"content" gorm:"type:text;not null"`
	CommentedAt     int       `json:"commented_at"` // 评论对应的播放位置（秒）
	ParentCommentID *int64    `json:"parent_comment,omitempty" gorm:"index"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}

// AllModels lists every persisted model for auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&User{}, &Follow{}, &Tag{}, &Track{}, &Set{}, &SetTrack{}, &Like{}, &Repost{}, &Comment{},
	}
}
