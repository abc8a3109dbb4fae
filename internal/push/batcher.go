package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
)

// ErrMalformedEvent marks events that can never be queued.
var ErrMalformedEvent = errors.New("malformed push event")

// Result reports what Queue did with an event.
type Result struct {
	Dropped bool
	BatchID string
	Created bool
	Actors  int
}

// Batcher turns events into push batch contributions.
type Batcher struct {
	settings repositories.SettingsRepository
	batches  repositories.PushBatchRepository
	log      *logger.Logger
	now      func() time.Time
}

func NewBatcher(settings repositories.SettingsRepository, batches repositories.PushBatchRepository, log *logger.Logger) *Batcher {
	return &Batcher{
		settings: settings,
		batches:  batches,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Queue satisfies Queuer.
func (b *Batcher) Queue(ctx context.Context, e Event) error {
	_, err := b.QueueEvent(ctx, e)
	return err
}

// QueueEvent drops e when the recipient muted its category, otherwise adds
// the actor to the open batch for e's key. Disabled categories are not an
// error.
func (b *Batcher) QueueEvent(ctx context.Context, e Event) (Result, error) {
	if !e.Type.Valid() || e.RecipientID == 0 || e.ActorID == 0 {
		return Result{}, fmt.Errorf("queue push: %w %+v", ErrMalformedEvent, e)
	}

	settings, err := b.settings.GetSettings(ctx, e.RecipientID)
	if err != nil {
		return Result{}, fmt.Errorf("queue push: %w", err)
	}
	if !settings.Allows(e.Type) {
		b.log.Debug("push %s for user %d dropped by settings", e.Type, e.RecipientID)
		return Result{Dropped: true}, nil
	}

	batch := &models.PushBatch{
		Type:        e.Type,
		RecipientID: e.RecipientID,
		BatchKey:    BatchKey(e),
		PostID:      e.PostID,
		RoutineID:   e.RoutineID,
		CommentID:   e.CommentID,
		TargetName:  e.TargetName,
		CreatedAt:   b.now(),
	}
	actor := models.PushBatchActor{ActorID: e.ActorID, ActorName: e.ActorName}

	stored, created, err := b.batches.Upsert(ctx, batch, actor, renderBatch)
	if err != nil {
		return Result{}, err
	}
	b.log.Debug("push batch %s (%s) now has %d actor(s)", stored.ID, stored.BatchKey, len(stored.Actors))
	return Result{BatchID: stored.ID.String(), Created: created, Actors: len(stored.Actors)}, nil
}
