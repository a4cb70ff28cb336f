package repository

import (
	"context"
	"fmt"

	"soundhub/media"
	"soundhub/model"

	"gorm.io/gorm"
)

// MediaRepository answers the uniqueness query used by media.Resolver.
type MediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository 创建媒体URL查询仓库
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func mediaModel(entity media.EntityType) (interface{}, error) {
	switch entity {
	case media.EntityTrack:
		return &model.Track{}, nil
	case media.EntitySet:
		return &model.Set{}, nil
	case media.EntityUser:
		return &model.User{}, nil
	}
	return nil, fmt.Errorf("%w: entity %s", media.ErrUnregisteredField, entity)
}

// mediaURLQuery selects rows of entity other than excludeID whose field equals url.
func mediaURLQuery(db *gorm.DB, entity media.EntityType, field media.Field, url string, excludeID int64) (*gorm.DB, error) {
	m, err := mediaModel(entity)
	if err != nil {
		return nil, err
	}
	q := db.Model(m).Where(map[string]interface{}{string(field): url})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return q, nil
}

// MediaURLExists reports whether any row of entity other than excludeID has field = url.
func (r *MediaRepository) MediaURLExists(ctx context.Context, entity media.EntityType, field media.Field, url string, excludeID int64) (bool, error) {
	q, err := mediaURLQuery(r.db.WithContext(ctx), entity, field, url, excludeID)
	if err != nil {
		return false, err
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}
