package repository

import (
	"context"

	"soundhub/model"

	"gorm.io/gorm"
)

// CommentRepository 评论
type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id int64) (*model.Comment, error)
	// ListByTrack orders by position in the track, then creation time.
	ListByTrack(ctx context.Context, trackID int64, page Page) ([]*model.Comment, int64, error)
	Delete(ctx context.Context, id int64) error
}

type gormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new CommentRepository.
func NewGormCommentRepository(db *gorm.DB) CommentRepository {
	return &gormCommentRepository{db: db}
}

func (r *gormCommentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return translateError(r.db.WithContext(ctx).Omit("Writer").Create(comment).Error)
}

func (r *gormCommentRepository) GetByID(ctx context.Context, id int64) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).Preload("Writer").First(&c, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

func (r *gormCommentRepository) ListByTrack(ctx context.Context, trackID int64, page Page) ([]*model.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Comment{}).Where("track_id = ?", trackID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var comments []*model.Comment
	err := q.Preload("Writer").
		Order("commented_at ASC").Order("created_at ASC").
		Scopes(paginate(page)).
		Find(&comments).Error
	return comments, total, translateError(err)
}

// Delete 删除评论及其回复
func (r *gormCommentRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_comment_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Comment{}, id)
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
