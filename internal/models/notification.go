package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidNotification = errors.New("invalid notification")

// Notification is an in-app notification (PostgreSQL).
type Notification struct {
	ID             uuid.UUID               `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID    uint                    `json:"recipient_id" gorm:"index;not null"`
	ActorID        uint                    `json:"actor_id" gorm:"index;not null"`
	Type           domain.NotificationType `json:"type" gorm:"size:30;index;not null"`
	PostID         *string                 `json:"post_id,omitempty" gorm:"size:64;index"`
	RoutineID      *string                 `json:"routine_id,omitempty" gorm:"size:64;index"`
	CommentID      *uint                   `json:"comment_id,omitempty" gorm:"index"`
	ActorUsername  string                  `json:"actor_username"`
	ActorAvatarURL string                  `json:"actor_avatar_url"`
	IsRead         bool                    `json:"is_read" gorm:"index"`
	CreatedAt      time.Time               `json:"created_at" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Validate checks that the record has one actor, one recipient and exactly
// the target reference its type calls for.
func (n *Notification) Validate() error {
	if n.ActorID == 0 || n.RecipientID == 0 {
		return fmt.Errorf("%w: actor and recipient are required", ErrInvalidNotification)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}

	hasPost := n.PostID != nil && *n.PostID != ""
	hasRoutine := n.RoutineID != nil && *n.RoutineID != ""
	hasComment := n.CommentID != nil && *n.CommentID != 0

	var ok bool
	switch n.Type.Target() {
	case domain.TargetNone:
		ok = !hasPost && !hasRoutine && !hasComment
	case domain.TargetPost:
		ok = hasPost && !hasRoutine && !hasComment
	case domain.TargetRoutine:
		ok = hasRoutine && !hasPost && !hasComment
	case domain.TargetComment:
		ok = hasComment && !hasPost && !hasRoutine
	}
	if !ok {
		return fmt.Errorf("%w: wrong target reference for %s", ErrInvalidNotification, n.Type)
	}
	return nil
}

func (n *Notification) ToDomain() domain.Notification {
	return domain.Notification{
		ID:          n.ID.String(),
		RecipientID: n.RecipientID,
		Type:        n.Type,
		Actor: domain.Actor{
			ID:        n.ActorID,
			Username:  n.ActorUsername,
			AvatarURL: n.ActorAvatarURL,
		},
		PostID:    n.PostID,
		RoutineID: n.RoutineID,
		CommentID: n.CommentID,
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// NotificationsToDomain converts a page of records for the API.
func NotificationsToDomain(ns []Notification) []domain.Notification {
	out := make([]domain.Notification, len(ns))
	for i := range ns {
		out[i] = ns[i].ToDomain()
	}
	return out
}
