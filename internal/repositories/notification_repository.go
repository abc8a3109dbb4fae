package repositories

import (
	"context"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations.
// Every mutation is scoped to the recipient so users only touch their own rows.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetRecent(ctx context.Context, recipientID uint, since time.Time, limit int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, recipientID uint) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error)
	DeleteNotification(ctx context.Context, id uuid.UUID, recipientID uint) (*models.Notification, error)
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := notification.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("recipient_id = ?", recipientID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

// GetRecent returns notifications created after since, newest first.
func (r *postgresNotificationRepository) GetRecent(ctx context.Context, recipientID uint, since time.Time, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("recipient_id = ? AND created_at >= ?", recipientID, since).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID, recipientID uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
			return translate(err)
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		return tx.Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *postgresNotificationRepository) DeleteNotification(ctx context.Context, id uuid.UUID, recipientID uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND recipient_id = ?", id, recipientID).First(&n).Error; err != nil {
			return translate(err)
		}
		return tx.Delete(&models.Notification{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}
