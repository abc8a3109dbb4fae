package repositories

import (
	"context"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followingID uint) error
	Unfollow(ctx context.Context, followerID, followingID uint) error
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	GetFollowers(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowing(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

// PostgresFollowRepository implements FollowRepository with GORM
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// Follow records the relationship and bumps both counters atomically.
// It returns ErrAlreadyExists when already following.
func (r *PostgresFollowRepository) Follow(ctx context.Context, followerID, followingID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		follow := &models.Follow{FollowerID: followerID, FollowingID: followingID}
		if err := tx.Create(follow).Error; err != nil {
			return translate(err)
		}
		return adjustFollowCounts(tx, followerID, followingID, 1)
	})
}

// Unfollow removes the relationship. It returns ErrNotFound when not following.
func (r *PostgresFollowRepository) Unfollow(ctx context.Context, followerID, followingID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return adjustFollowCounts(tx, followerID, followingID, -1)
	})
}

func adjustFollowCounts(tx *gorm.DB, followerID, followingID uint, delta int64) error {
	if err := tx.Model(&models.User{}).Where("id = ?", followerID).
		UpdateColumn("following_count", gorm.Expr("following_count + ?", delta)).Error; err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("id = ?", followingID).
		UpdateColumn("followers_count", gorm.Expr("followers_count + ?", delta)).Error
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	db := r.db.WithContext(ctx)
	err := db.Where("id IN (?)",
		db.Model(&models.Follow{}).Select("follower_id").Where("following_id = ?", userID),
	).Find(&users).Error
	return users, err
}

func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	db := r.db.WithContext(ctx)
	err := db.Where("id IN (?)",
		db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", userID),
	).Find(&users).Error
	return users, err
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, err
}
