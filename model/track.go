package model

import (
	"time"

	"soundhub/media"
)

// Track represents an uploaded audio track.
type Track struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"size:100;not null"`
	ArtistID    int64     `json:"-" gorm:"uniqueIndex:uq_artist_permalink;not null"`
	Artist      *User     `json:"artist,omitempty" gorm:"foreignKey:ArtistID;constraint:OnDelete:CASCADE"`
	Permalink   string    `json:"permalink" gorm:"size:255;uniqueIndex:uq_artist_permalink;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Audio       *string   `json:"-" gorm:"size:512;uniqueIndex"`
	Image       *string   `json:"-" gorm:"size:512;uniqueIndex"`
	Count       int64     `json:"count" gorm:"default:0"` // 播放次数
	GenreID     *int64    `json:"-"`
	Genre       *Tag      `json:"genre,omitempty" gorm:"foreignKey:GenreID"`
	Tags        []*Tag    `json:"tags" gorm:"many2many:track_tags"`
	IsPrivate   bool      `json:"is_private" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

func (t *Track) MediaEntityType() media.EntityType { return media.EntityTrack }

func (t *Track) MediaID() int64 { return t.ID }

func (t *Track) MediaURL(field media.Field) *string {
	switch field {
	case media.FieldAudio:
		return t.Audio
	case media.FieldImage:
		return t.Image
	}
	return nil
}

func (t *Track) SetMediaURL(field media.Field, url string) {
	switch field {
	case media.FieldAudio:
		t.Audio = &url
	case media.FieldImage:
		t.Image = &url
	}
}

// Tag is a genre or free-form tag shared by tracks and sets.
type Tag struct {
	ID   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name string `json:"name" gorm:"size:20;uniqueIndex;not null"`
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}
