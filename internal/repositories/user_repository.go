package repositories

import (
	"context"
	"fmt"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uint) error
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	GetPushToken(ctx context.Context, id uint) (string, error)
	SetPushToken(ctx context.Context, id uint, token string) error
	ClearPushToken(ctx context.Context, token string) error
}

// PostgresUserRepository implements UserRepository with GORM
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetUsersByIDs loads several users at once. Missing ids are absent from the map.
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchUsers matches username or name, case-insensitively
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(username) LIKE LOWER(?) OR LOWER(name) LIKE LOWER(?)", pattern, pattern).
		Order("followers_count DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *PostgresUserRepository) GetPushToken(ctx context.Context, id uint) (string, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("id", "push_token").First(&user, id).Error; err != nil {
		return "", translate(err)
	}
	return user.PushToken, nil
}

func (r *PostgresUserRepository) SetPushToken(ctx context.Context, id uint, token string) error {
	db := r.db.WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		// A device token belongs to whoever registered it last.
		if token != "" {
			if err := tx.Model(&models.User{}).Where("push_token = ? AND id <> ?", token, id).Update("push_token", "").Error; err != nil {
				return err
			}
		}
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("push_token", token)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresUserRepository) ClearPushToken(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.User{}).Where("push_token = ?", token).Update("push_token", "").Error
}
