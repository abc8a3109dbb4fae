package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository reads and writes notification settings.
// Get never fails for a user without a row; it returns the defaults.
type SettingsRepository interface {
	GetSettings(ctx context.Context, userID uint) (domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, userID uint, settings domain.NotificationSettings) error
}

type postgresSettingsRepository struct {
	db *gorm.DB
}

func NewPostgresSettingsRepository(db *gorm.DB) SettingsRepository {
	return &postgresSettingsRepository{db: db}
}

func (r *postgresSettingsRepository) GetSettings(ctx context.Context, userID uint) (domain.NotificationSettings, error) {
	var row models.NotificationSettings
	err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.NotificationSettings{}, fmt.Errorf("get settings for user %d: %w", userID, err)
	}
	return row.ToDomain(), nil
}

func (r *postgresSettingsRepository) SaveSettings(ctx context.Context, userID uint, settings domain.NotificationSettings) error {
	row := models.SettingsFromDomain(userID, settings)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"push_enabled", "follows", "likes", "saves", "comments", "updated_at"}),
	}).Create(row).Error
}

// DefaultSettingsCacheTTL bounds how long a cached settings entry lives.
const DefaultSettingsCacheTTL = 10 * time.Minute

// CachedSettingsRepository is a read-through Redis cache in front of
// another SettingsRepository. Cache failures fall through to the store.
type CachedSettingsRepository struct {
	next SettingsRepository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedSettingsRepository(next SettingsRepository, rdb *redis.Client, ttl time.Duration) *CachedSettingsRepository {
	if ttl <= 0 {
		ttl = DefaultSettingsCacheTTL
	}
	return &CachedSettingsRepository{next: next, rdb: rdb, ttl: ttl}
}

func settingsCacheKey(userID uint) string {
	return fmt.Sprintf("notification_settings:%d", userID)
}

func (r *CachedSettingsRepository) GetSettings(ctx context.Context, userID uint) (domain.NotificationSettings, error) {
	key := settingsCacheKey(userID)
	if raw, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		var s domain.NotificationSettings
		if json.Unmarshal(raw, &s) == nil {
			return s, nil
		}
	}

	s, err := r.next.GetSettings(ctx, userID)
	if err != nil {
		return s, err
	}
	if raw, err := json.Marshal(s); err == nil {
		r.rdb.Set(ctx, key, raw, r.ttl)
	}
	return s, nil
}

func (r *CachedSettingsRepository) SaveSettings(ctx context.Context, userID uint, settings domain.NotificationSettings) error {
	if err := r.next.SaveSettings(ctx, userID, settings); err != nil {
		return err
	}
	return r.rdb.Del(ctx, settingsCacheKey(userID)).Err()
}
