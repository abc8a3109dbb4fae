package models

import (
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// NotificationSettings stores a user's push preferences. Users without a
// row get domain.DefaultSettings.
type NotificationSettings struct {
	UserID      uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	PushEnabled bool      `json:"push_enabled"`
	Follows     bool      `json:"follows"`
	Likes       bool      `json:"likes"`
	Saves       bool      `json:"saves"`
	Comments    bool      `json:"comments"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *NotificationSettings) ToDomain() domain.NotificationSettings {
	return domain.NotificationSettings{
		PushEnabled: s.PushEnabled,
		Follows:     s.Follows,
		Likes:       s.Likes,
		Saves:       s.Saves,
		Comments:    s.Comments,
	}
}

func SettingsFromDomain(userID uint, s domain.NotificationSettings) *NotificationSettings {
	return &NotificationSettings{
		UserID:      userID,
		PushEnabled: s.PushEnabled,
		Follows:     s.Follows,
		Likes:       s.Likes,
		Saves:       s.Saves,
		Comments:    s.Comments,
	}
}

// UpdateSettingsRequest replaces every toggle at once.
type UpdateSettingsRequest struct {
	PushEnabled *bool `json:"push_enabled" validate:"required"`
	Follows     *bool `json:"follows" validate:"required"`
	Likes       *bool `json:"likes" validate:"required"`
	Saves       *bool `json:"saves" validate:"required"`
	Comments    *bool `json:"comments" validate:"required"`
}

func (r UpdateSettingsRequest) ToDomain() domain.NotificationSettings {
	return domain.NotificationSettings{
		PushEnabled: *r.PushEnabled,
		Follows:     *r.Follows,
		Likes:       *r.Likes,
		Saves:       *r.Saves,
		Comments:    *r.Comments,
	}
}
