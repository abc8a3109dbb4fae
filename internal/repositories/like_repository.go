package repositories

import (
	"context"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"gorm.io/gorm"
)

// LikeRepository covers the relational like and save rows: post likes,
// routine likes, routine saves and comment likes.
type LikeRepository interface {
	LikePost(ctx context.Context, postID string, userID uint) error
	UnlikePost(ctx context.Context, postID string, userID uint) error
	HasLikedPost(ctx context.Context, postID string, userID uint) (bool, error)

	LikeRoutine(ctx context.Context, routineID string, userID uint) error
	UnlikeRoutine(ctx context.Context, routineID string, userID uint) error
	HasLikedRoutine(ctx context.Context, routineID string, userID uint) (bool, error)

	SaveRoutine(ctx context.Context, routineID string, userID uint) error
	UnsaveRoutine(ctx context.Context, routineID string, userID uint) error
	HasSavedRoutine(ctx context.Context, routineID string, userID uint) (bool, error)
	GetSavedRoutineIDs(ctx context.Context, userID uint) ([]string, error)

	LikeComment(ctx context.Context, commentID, userID uint) error
	UnlikeComment(ctx context.Context, commentID, userID uint) error
	CountCommentLikes(ctx context.Context, commentID uint) (int64, error)
}

// PostgresLikeRepository implements LikeRepository with GORM.
// Creates return ErrAlreadyExists on a repeat; deletes return ErrNotFound
// when there was nothing to remove.
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

func (r *PostgresLikeRepository) create(ctx context.Context, row interface{}) error {
	return translate(r.db.WithContext(ctx).Create(row).Error)
}

func (r *PostgresLikeRepository) remove(ctx context.Context, model interface{}, query string, args ...interface{}) error {
	res := r.db.WithContext(ctx).Where(query, args...).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresLikeRepository) exists(ctx context.Context, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresLikeRepository) LikePost(ctx context.Context, postID string, userID uint) error {
	return r.create(ctx, &models.PostLike{PostID: postID, UserID: userID})
}

func (r *PostgresLikeRepository) UnlikePost(ctx context.Context, postID string, userID uint) error {
	return r.remove(ctx, &models.PostLike{}, "post_id = ? AND user_id = ?", postID, userID)
}

func (r *PostgresLikeRepository) HasLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	return r.exists(ctx, &models.PostLike{}, "post_id = ? AND user_id = ?", postID, userID)
}

func (r *PostgresLikeRepository) LikeRoutine(ctx context.Context, routineID string, userID uint) error {
	return r.create(ctx, &models.RoutineLike{RoutineID: routineID, UserID: userID})
}

func (r *PostgresLikeRepository) UnlikeRoutine(ctx context.Context, routineID string, userID uint) error {
	return r.remove(ctx, &models.RoutineLike{}, "routine_id = ? AND user_id = ?", routineID, userID)
}

func (r *PostgresLikeRepository) HasLikedRoutine(ctx context.Context, routineID string, userID uint) (bool, error) {
	return r.exists(ctx, &models.RoutineLike{}, "routine_id = ? AND user_id = ?", routineID, userID)
}

func (r *PostgresLikeRepository) SaveRoutine(ctx context.Context, routineID string, userID uint) error {
	return r.create(ctx, &models.RoutineSave{RoutineID: routineID, UserID: userID})
}

func (r *PostgresLikeRepository) UnsaveRoutine(ctx context.Context, routineID string, userID uint) error {
	return r.remove(ctx, &models.RoutineSave{}, "routine_id = ? AND user_id = ?", routineID, userID)
}

func (r *PostgresLikeRepository) HasSavedRoutine(ctx context.Context, routineID string, userID uint) (bool, error) {
	return r.exists(ctx, &models.RoutineSave{}, "routine_id = ? AND user_id = ?", routineID, userID)
}

func (r *PostgresLikeRepository) GetSavedRoutineIDs(ctx context.Context, userID uint) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.RoutineSave{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("routine_id", &ids).Error
	return ids, err
}

func (r *PostgresLikeRepository) LikeComment(ctx context.Context, commentID, userID uint) error {
	return r.create(ctx, &models.CommentLike{CommentID: commentID, UserID: userID})
}

func (r *PostgresLikeRepository) UnlikeComment(ctx context.Context, commentID, userID uint) error {
	return r.remove(ctx, &models.CommentLike{}, "comment_id = ? AND user_id = ?", commentID, userID)
}

func (r *PostgresLikeRepository) CountCommentLikes(ctx context.Context, commentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}
