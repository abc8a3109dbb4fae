package models

import (
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Push batch states, derived from the timestamps.
const (
	PushStatusOpen    = "open"
	PushStatusClaimed = "claimed"
	PushStatusSent    = "sent"
	PushStatusFailed  = "failed"
)

// Failure reasons recorded on a batch.
const (
	PushFailureNoToken      = "no_push_token"
	PushFailureDisabled     = "push_disabled"
	PushFailureUnregistered = "token_unregistered"
	PushFailureSend         = "send_failed"
	PushFailureCancelled    = "sweep_cancelled"
)

// PushContent is the rendered payload of a batch.
type PushContent struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushBatch coalesces push-worthy events that share a batch key until a
// sweep delivers them as one message. At most one batch per key is open
// (unclaimed) at a time.
type PushBatch struct {
	ID            uuid.UUID                       `json:"id" gorm:"type:uuid;primaryKey"`
	Type          domain.NotificationType         `json:"type" gorm:"size:30;not null"`
	RecipientID   uint                            `json:"recipient_id" gorm:"index;not null"`
	BatchKey      string                          `json:"batch_key" gorm:"size:128;not null;uniqueIndex:idx_push_batches_open_key,where:claimed_at IS NULL"`
	PostID        *string                         `json:"post_id,omitempty" gorm:"size:64"`
	RoutineID     *string                         `json:"routine_id,omitempty" gorm:"size:64"`
	CommentID     *uint                           `json:"comment_id,omitempty"`
	TargetName    string                          `json:"target_name,omitempty"`
	Content       datatypes.JSONType[PushContent] `json:"content"`
	Actors        []PushBatchActor                `json:"actors,omitempty" gorm:"foreignKey:BatchID"`
	ClaimedAt     *time.Time                      `json:"claimed_at,omitempty" gorm:"index"`
	SentAt        *time.Time                      `json:"sent_at,omitempty"`
	ClickedAt     *time.Time                      `json:"clicked_at,omitempty"`
	FailedAt      *time.Time                      `json:"failed_at,omitempty"`
	FailureReason string                          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                       `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time                       `json:"updated_at"`
}

func (b *PushBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *PushBatch) Status() string {
	switch {
	case b.SentAt != nil:
		return PushStatusSent
	case b.FailedAt != nil:
		return PushStatusFailed
	case b.ClaimedAt != nil:
		return PushStatusClaimed
	default:
		return PushStatusOpen
	}
}

// ActorNames lists contributors in the order they joined the batch.
func (b *PushBatch) ActorNames() []string {
	names := make([]string, len(b.Actors))
	for i, a := range b.Actors {
		names[i] = a.ActorName
	}
	return names
}

// PushBatchActor is one actor's contribution to a batch.
type PushBatchActor struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	BatchID   uuid.UUID `json:"-" gorm:"type:uuid;not null;uniqueIndex:idx_push_batch_actor"`
	ActorID   uint      `json:"actor_id" gorm:"not null;uniqueIndex:idx_push_batch_actor"`
	ActorName string    `json:"actor_name"`
	CreatedAt time.Time `json:"created_at"`
}
