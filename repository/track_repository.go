package repository

import (
	"context"

	"soundhub/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackCounts 歌曲的互动统计
type TrackCounts struct {
	Likes    int64
	Reposts  int64
	Comments int64
}

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id int64) (*model.Track, error)
	// List returns public tracks plus the viewer's own private ones, newest first.
	List(ctx context.Context, viewerID int64, page Page) ([]*model.Track, int64, error)
	ListByArtist(ctx context.Context, artistID int64, includePrivate bool, page Page) ([]*model.Track, int64, error)
	// Update saves scalar and media columns; tags are replaced when replaceTags is set.
	Update(ctx context.Context, track *model.Track, replaceTags bool) error
	Delete(ctx context.Context, id int64) error
	Counts(ctx context.Context, id int64) (TrackCounts, error)
	// PermalinkExists reports whether another track of artistID uses permalink.
	PermalinkExists(ctx context.Context, artistID int64, permalink string, excludeID int64) (bool, error)
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a new TrackRepository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create inserts track. Genre and Tags are matched by name and created in the
// same transaction when missing.
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := firstOrCreateTags(tx, track.Genre, &track.GenreID, track.Tags); err != nil {
			return err
		}
		return tx.Omit("Artist", "Genre").Create(track).Error
	})
	return translateError(err)
}

func (r *gormTrackRepository) GetByID(ctx context.Context, id int64) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Preload("Artist").Preload("Genre").Preload("Tags").
		First(&track, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &track, nil
}

func (r *gormTrackRepository) list(ctx context.Context, q *gorm.DB, page Page) ([]*model.Track, int64, error) {
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Model(&model.Track{}).Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var tracks []*model.Track
	err := q.Preload("Artist").Preload("Genre").
		Order("created_at DESC").Scopes(paginate(page)).
		Find(&tracks).Error
	return tracks, total, translateError(err)
}

func (r *gormTrackRepository) List(ctx context.Context, viewerID int64, page Page) ([]*model.Track, int64, error) {
	q := r.db.WithContext(ctx).Where("is_private = ? OR artist_id = ?", false, viewerID)
	return r.list(ctx, q, page)
}

func (r *gormTrackRepository) ListByArtist(ctx context.Context, artistID int64, includePrivate bool, page Page) ([]*model.Track, int64, error) {
	q := r.db.WithContext(ctx).Where("artist_id = ?", artistID)
	if !includePrivate {
		q = q.Where("is_private = ?", false)
	}
	return r.list(ctx, q, page)
}

func (r *gormTrackRepository) Update(ctx context.Context, track *model.Track, replaceTags bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := firstOrCreateTags(tx, track.Genre, &track.GenreID, track.Tags); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(track).Error; err != nil {
			return err
		}
		if replaceTags {
			return tx.Model(track).Association("Tags").Replace(track.Tags)
		}
		return nil
	})
	return translateError(err)
}

func (r *gormTrackRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("track_id = ?", id).Delete(&model.SetTrack{}).Error; err != nil {
			return err
		}
		if err := tx.Where("track_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{&model.Like{}, &model.Repost{}} {
			if err := tx.Where("target_type = ? AND target_id = ?", model.TargetTrack, id).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&model.Track{ID: id}).Association("Tags").Clear(); err != nil {
			return err
		}
		res := tx.Delete(&model.Track{}, id)
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

func (r *gormTrackRepository) Counts(ctx context.Context, id int64) (TrackCounts, error) {
	var c TrackCounts
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Like{}).Where("target_type = ? AND target_id = ?", model.TargetTrack, id).Count(&c.Likes).Error; err != nil {
		return c, translateError(err)
	}
	if err := db.Model(&model.Repost{}).Where("target_type = ? AND target_id = ?", model.TargetTrack, id).Count(&c.Reposts).Error; err != nil {
		return c, translateError(err)
	}
	if err := db.Model(&model.Comment{}).Where("track_id = ?", id).Count(&c.Comments).Error; err != nil {
		return c, translateError(err)
	}
	return c, nil
}

func (r *gormTrackRepository) PermalinkExists(ctx context.Context, artistID int64, permalink string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Track{}).
		Where("artist_id = ? AND permalink = ? AND id <> ?", artistID, permalink, excludeID).
		Count(&count).Error
	return count > 0, translateError(err)
}
