package repository

import (
	"context"

	"soundhub/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetRepository 定义歌单相关的数据库操作接口
type SetRepository interface {
	Create(ctx context.Context, set *model.Set) error
	// GetByID 获取歌单及其歌曲
	GetByID(ctx context.Context, id int64) (*model.Set, error)
	List(ctx context.Context, viewerID int64, page Page) ([]*model.Set, int64, error)
	Update(ctx context.Context, set *model.Set, replaceTags bool) error
	Delete(ctx context.Context, id int64) error

	// AddTrack returns ErrDuplicate when the track is already in the set.
	AddTrack(ctx context.Context, setID, trackID int64) error
	// RemoveTrack reports whether the track was in the set.
	RemoveTrack(ctx context.Context, setID, trackID int64) (bool, error)
	Tracks(ctx context.Context, setID int64) ([]*model.Track, error)
	PermalinkExists(ctx context.Context, creatorID int64, permalink string, excludeID int64) (bool, error)
}

type gormSetRepository struct {
	db *gorm.DB
}

// NewGormSetRepository 创建 GORM 歌单仓库
func NewGormSetRepository(db *gorm.DB) SetRepository {
	return &gormSetRepository{db: db}
}

func (r *gormSetRepository) Create(ctx context.Context, set *model.Set) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := firstOrCreateTags(tx, set.Genre, &set.GenreID, set.Tags); err != nil {
			return err
		}
		return tx.Omit("Creator", "Genre").Create(set).Error
	})
	return translateError(err)
}

func (r *gormSetRepository) GetByID(ctx context.Context, id int64) (*model.Set, error) {
	var set model.Set
	err := r.db.WithContext(ctx).
		Preload("Creator").Preload("Genre").Preload("Tags").
		First(&set, id).Error
	if err != nil {
		return nil, translateError(err)
	}

	tracks, err := r.Tracks(ctx, id)
	if err != nil {
		return nil, err
	}
	set.Tracks = tracks
	return &set, nil
}

func (r *gormSetRepository) List(ctx context.Context, viewerID int64, page Page) ([]*model.Set, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Set{}).
		Where("is_private = ? OR creator_id = ?", false, viewerID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var sets []*model.Set
	err := q.Preload("Creator").Preload("Genre").
		Order("created_at DESC").Scopes(paginate(page)).
		Find(&sets).Error
	return sets, total, translateError(err)
}

func (r *gormSetRepository) Update(ctx context.Context, set *model.Set, replaceTags bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := firstOrCreateTags(tx, set.Genre, &set.GenreID, set.Tags); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(set).Error; err != nil {
			return err
		}
		if replaceTags {
			return tx.Model(set).Association("Tags").Replace(set.Tags)
		}
		return nil
	})
	return translateError(err)
}

func (r *gormSetRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", id).Delete(&model.SetTrack{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{&model.Like{}, &model.Repost{}} {
			if err := tx.Where("target_type = ? AND target_id = ?", model.TargetSet, id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.Set{ID: id}).Association("Tags").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&model.Set{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translateError(err)
}

// ========== 歌单歌曲管理 ==========

func (r *gormSetRepository) AddTrack(ctx context.Context, setID, trackID int64) error {
	return translateError(r.db.WithContext(ctx).Create(&model.SetTrack{SetID: setID, TrackID: trackID}).Error)
}

func (r *gormSetRepository) RemoveTrack(ctx context.Context, setID, trackID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("set_id = ? AND track_id = ?", setID, trackID).
		Delete(&model.SetTrack{})
	return res.RowsAffected > 0, translateError(res.Error)
}

func (r *gormSetRepository) Tracks(ctx context.Context, setID int64) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.db.WithContext(ctx).
		Joins("JOIN set_tracks ON set_tracks.track_id = tracks.id").
		Where("set_tracks.set_id = ?", setID).
		Order("set_tracks.id").
		Preload("Artist").
		Find(&tracks).Error
	return tracks, translateError(err)
}

func (r *gormSetRepository) PermalinkExists(ctx context.Context, creatorID int64, permalink string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Set{}).
		Where("creator_id = ? AND permalink = ? AND id <> ?", creatorID, permalink, excludeID).
		Count(&count).Error
	return count > 0, translateError(err)
}
