// Package push coalesces notification-worthy events into batches and
// delivers one device push per batch.
package push

import (
	"context"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// Event describes one notification-worthy action.
type Event struct {
	Type        domain.NotificationType `json:"type"`
	RecipientID uint                    `json:"recipient_id"`
	ActorID     uint                    `json:"actor_id"`
	ActorName   string                  `json:"actor_name"`
	PostID      *string                 `json:"post_id,omitempty"`
	RoutineID   *string                 `json:"routine_id,omitempty"`
	CommentID   *uint                   `json:"comment_id,omitempty"`
	TargetName  string                  `json:"target_name,omitempty"`
}

// Queuer accepts events for batching.
type Queuer interface {
	Queue(ctx context.Context, e Event) error
}
