package repository

import (
	"context"
	"time"

	"soundhub/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PermalinkExists(ctx context.Context, permalink string) (bool, error)
	Update(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error

	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	Followers(ctx context.Context, userID int64, page Page) ([]*model.User, int64, error)
	Followings(ctx context.Context, userID int64, page Page) ([]*model.User, int64, error)
	FollowCounts(ctx context.Context, userID int64) (followers, followings int64, err error)
}

// gormUserRepository implements UserRepository with GORM.
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new UserRepository.
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) Create(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *gormUserRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where(map[string]interface{}{column: value}).Count(&count).Error
	return count > 0, translateError(err)
}

func (r *gormUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

func (r *gormUserRepository) PermalinkExists(ctx context.Context, permalink string) (bool, error) {
	return r.exists(ctx, "permalink", permalink)
}

func (r *gormUserRepository) Update(ctx context.Context, user *model.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return translateError(r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login", at).Error)
}

// ========== 关注关系 ==========

func (r *gormUserRepository) Follow(ctx context.Context, followerID, followeeID int64) error {
	return translateError(r.db.WithContext(ctx).Create(&model.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
	}).Error)
}

func (r *gormUserRepository) Unfollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{})
	return res.RowsAffected > 0, translateError(res.Error)
}

// listFollowUsers 列出关注关系另一端的用户。joinCol 是 follows 中指向结果用户的列。
func (r *gormUserRepository) listFollowUsers(ctx context.Context, joinCol, filterCol string, userID int64, page Page) ([]*model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Joins("JOIN follows ON follows."+joinCol+" = users.id").
		Where("follows."+filterCol+" = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var users []*model.User
	err := q.Order("follows.created_at DESC").Scopes(paginate(page)).Find(&users).Error
	return users, total, translateError(err)
}

func (r *gormUserRepository) Followers(ctx context.Context, userID int64, page Page) ([]*model.User, int64, error) {
	return r.listFollowUsers(ctx, "follower_id", "followee_id", userID, page)
}

func (r *gormUserRepository) Followings(ctx context.Context, userID int64, page Page) ([]*model.User, int64, error) {
	return r.listFollowUsers(ctx, "followee_id", "follower_id", userID, page)
}

func (r *gormUserRepository) FollowCounts(ctx context.Context, userID int64) (int64, int64, error) {
	var followers, followings int64
	if err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("followee_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, translateError(err)
	}
	if err := r.db.WithContext(ctx).Model(&model.Follow{}).Where("follower_id = ?", userID).Count(&followings).Error; err != nil {
		return 0, 0, translateError(err)
	}
	return followers, followings, nil
}
