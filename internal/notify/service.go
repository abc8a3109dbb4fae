// Package notify records in-app notifications and fans them out to the
// real-time stream and the push pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/push"
	"github.com/atlas-fitness/atlas-api/internal/realtime"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/google/uuid"
)

// Input describes a social action that should notify its target's owner.
type Input struct {
	RecipientID uint
	ActorID     uint
	Type        domain.NotificationType
	PostID      *string
	RoutineID   *string
	CommentID   *uint
	// TargetName is shown in push text, e.g. a routine's name.
	TargetName string
}

// UserLookup loads actor profiles.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

type Service struct {
	notifications repositories.NotificationRepository
	users         UserLookup
	publisher     realtime.Publisher
	queue         push.Queuer
	log           *logger.Logger
}

func NewService(notifications repositories.NotificationRepository, users UserLookup, publisher realtime.Publisher, queue push.Queuer, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Service{
		notifications: notifications,
		users:         users,
		publisher:     publisher,
		queue:         queue,
		log:           log,
	}
}

// Notify stores the notification and hands it to the real-time stream and
// the push queue. It returns nil, nil when the actor is the recipient.
// Only the store failing is an error; fan-out failures are logged.
func (s *Service) Notify(ctx context.Context, in Input) (*domain.Notification, error) {
	if in.ActorID == in.RecipientID {
		return nil, nil
	}

	actor := s.actorProfile(ctx, in.ActorID)
	n := &models.Notification{
		RecipientID:    in.RecipientID,
		ActorID:        in.ActorID,
		Type:           in.Type,
		PostID:         in.PostID,
		RoutineID:      in.RoutineID,
		CommentID:      in.CommentID,
		ActorUsername:  actor.Username,
		ActorAvatarURL: actor.AvatarURL,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	if err := s.notifications.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	out := n.ToDomain()
	s.publish(ctx, domain.EventInsert, out)

	if s.queue != nil {
		ev := push.Event{
			Type:        in.Type,
			RecipientID: in.RecipientID,
			ActorID:     in.ActorID,
			ActorName:   actor.Username,
			PostID:      in.PostID,
			RoutineID:   in.RoutineID,
			CommentID:   in.CommentID,
			TargetName:  in.TargetName,
		}
		if err := s.queue.Queue(ctx, ev); err != nil {
			s.log.Warn("queue push for notification %s: %v", out.ID, err)
		}
	}
	return &out, nil
}

func (s *Service) actorProfile(ctx context.Context, id uint) domain.Actor {
	actor := domain.Actor{ID: id, Username: domain.UnknownActorName}
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.log.Warn("load actor %d: %v", id, err)
		}
		return actor
	}
	if u.Username != "" {
		actor.Username = u.Username
	}
	actor.AvatarURL = u.AvatarURL
	return actor
}

// MarkRead marks one of the recipient's notifications read.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, recipientID uint) (*domain.Notification, error) {
	n, err := s.notifications.MarkAsRead(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}
	out := n.ToDomain()
	s.publish(ctx, domain.EventUpdate, out)
	return &out, nil
}

// Delete removes one of the recipient's notifications.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, recipientID uint) error {
	n, err := s.notifications.DeleteNotification(ctx, id, recipientID)
	if err != nil {
		return err
	}
	s.publish(ctx, domain.EventDelete, n.ToDomain())
	return nil
}

func (s *Service) publish(ctx context.Context, kind domain.EventKind, n domain.Notification) {
	if err := s.publisher.Publish(ctx, n.RecipientID, domain.Event{Kind: kind, Notification: n}); err != nil {
		s.log.Warn("publish %s for notification %s: %v", kind, n.ID, err)
	}
}
