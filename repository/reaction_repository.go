package repository

import (
	"context"

	"soundhub/model"

	"gorm.io/gorm"
)

// ReactionKind selects likes or reposts.
type ReactionKind string

const (
	KindLike   ReactionKind = "like"
	KindRepost ReactionKind = "repost"
)

// ReactionRepository 点赞与转发
type ReactionRepository interface {
	// Add returns ErrDuplicate when the user already reacted.
	Add(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) error
	Remove(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) (bool, error)
	Exists(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) (bool, error)
	Count(ctx context.Context, kind ReactionKind, targetType string, targetID int64) (int64, error)
	// Users lists the users who reacted, most recent first.
	Users(ctx context.Context, kind ReactionKind, targetType string, targetID int64, page Page) ([]*model.User, int64, error)
}

type gormReactionRepository struct {
	db *gorm.DB
}

// NewGormReactionRepository creates a new ReactionRepository.
func NewGormReactionRepository(db *gorm.DB) ReactionRepository {
	return &gormReactionRepository{db: db}
}

func reactionTable(kind ReactionKind) string {
	if kind == KindRepost {
		return model.Repost{}.TableName()
	}
	return model.Like{}.TableName()
}

func (r *gormReactionRepository) Add(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) error {
	var row interface{}
	if kind == KindRepost {
		row = &model.Repost{UserID: userID, TargetType: targetType, TargetID: targetID}
	} else {
		row = &model.Like{UserID: userID, TargetType: targetType, TargetID: targetID}
	}
	return translateError(r.db.WithContext(ctx).Create(row).Error)
}

func (r *gormReactionRepository) Remove(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) (bool, error) {
	res := r.db.WithContext(ctx).Table(reactionTable(kind)).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Delete(nil)
	return res.RowsAffected > 0, translateError(res.Error)
}

func (r *gormReactionRepository) Exists(ctx context.Context, kind ReactionKind, userID int64, targetType string, targetID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(reactionTable(kind)).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Count(&count).Error
	return count > 0, translateError(err)
}

func (r *gormReactionRepository) Count(ctx context.Context, kind ReactionKind, targetType string, targetID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table(reactionTable(kind)).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Count(&count).Error
	return count, translateError(err)
}

func (r *gormReactionRepository) Users(ctx context.Context, kind ReactionKind, targetType string, targetID int64, page Page) ([]*model.User, int64, error) {
	table := reactionTable(kind)
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN "+table+" ON "+table+".user_id = users.id").
		Where(table+".target_type = ? AND "+table+".target_id = ?", targetType, targetID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var users []*model.User
	err := q.Order(table + ".created_at DESC").Scopes(paginate(page)).Find(&users).Error
	return users, total, translateError(err)
}
