package model

import (
	"time"

	"soundhub/media"
)

// Set types.
const (
	SetTypePlaylist    = "playlist"
	SetTypeAlbum       = "album"
	SetTypeEP          = "ep"
	SetTypeSingle      = "single"
	SetTypeCompilation = "compilation"
)

// Set 歌单/专辑
type Set struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"size:100;not null"`
	CreatorID   int64     `json:"-" gorm:"uniqueIndex:uq_creator_permalink;not null"`
	Creator     *User     `json:"creator,omitempty" gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE"`
	Permalink   string    `json:"permalink" gorm:"size:255;uniqueIndex:uq_creator_permalink;not null"`
	Description string    `json:"description" gorm:"type:text"`
	Type        string    `json:"type" gorm:"size:20;default:'playlist'"`
	Image       *string   `json:"-" gorm:"size:512;uniqueIndex"`
	GenreID     *int64    `json:"-"`
	Genre       *Tag      `json:"genre,omitempty" gorm:"foreignKey:GenreID"`
	Tags        []*Tag    `json:"tags" gorm:"many2many:set_tags"`
	Tracks      []*Track  `json:"tracks" gorm:"-"`
	IsPrivate   bool      `json:"is_private" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName 指定表名
func (Set) TableName() string {
	return "sets"
}

func (s *Set) MediaEntityType() media.EntityType { return media.EntitySet }

func (s *Set) MediaID() int64 { return s.ID }

func (s *Set) MediaURL(field media.Field) *string {
	if field == media.FieldImage {
		return s.Image
	}
	return nil
}

func (s *Set) SetMediaURL(field media.Field, url string) {
	if field == media.FieldImage {
		s.Image = &url
	}
}

// SetTrack 歌单中的一首歌曲
type SetTrack struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SetID     int64     `json:"set_id" gorm:"uniqueIndex:uq_set_track;not null"`
	TrackID   int64     `json:"track_id" gorm:"uniqueIndex:uq_set_track;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (SetTrack) TableName() string {
	return "set_tracks"
}
