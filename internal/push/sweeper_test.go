package push

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) batch(t *testing.T, id string) *models.PushBatch {
	t.Helper()
	b, err := e.batches.GetByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return b
}

func TestSweeper_WaitsForQuietPeriod(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypePostLike, RecipientID: owner.ID, ActorID: 99, ActorName: "ana", PostID: strPtr("p1")})
	require.NoError(t, err)

	e.clock.Advance(10 * time.Second)
	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)

	// Joins the still-open batch.
	_, err = e.batcher.QueueEvent(ctx, Event{Type: domain.TypePostLike, RecipientID: owner.ID, ActorID: 98, ActorName: "ben", PostID: strPtr("p1")})
	require.NoError(t, err)

	e.clock.Advance(25 * time.Second)
	report, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 1, Sent: 1}, report)

	sent := e.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "device-1", sent[0].Token)
	assert.Equal(t, "New like", sent[0].Title)
	assert.Equal(t, "ben and 1 other liked your post", sent[0].Body)
	assert.Equal(t, res.BatchID, sent[0].Data["batch_id"])
	assert.Equal(t, "p1", sent[0].Data["post_id"])

	b := e.batch(t, res.BatchID)
	assert.Equal(t, models.PushStatusSent, b.Status())

	// Already sent: never selected again.
	e.clock.Advance(time.Hour)
	report, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
	assert.Len(t, e.sender.Sent(), 1)
}

func TestSweeper_BadgeIsUnreadCountAtSendTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")

	_, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.notes.CreateNotification(ctx, &models.Notification{RecipientID: owner.ID, ActorID: uint(5 + i), Type: domain.TypeFollow}))
	}

	e.clock.Advance(time.Minute)
	_, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)

	sent := e.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 3, sent[0].Badge)
}

func TestSweeper_MissingTokenIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "")

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 1, Failed: 1}, report)
	assert.Empty(t, e.sender.Sent())

	b := e.batch(t, res.BatchID)
	assert.Equal(t, models.PushStatusFailed, b.Status())
	assert.Equal(t, models.PushFailureNoToken, b.FailureReason)

	// Registering a token later does not resurrect the batch.
	require.NoError(t, e.users.SetPushToken(ctx, owner.ID, "device-2"))
	report, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
}

func TestSweeper_RetriesTransientErrors(t *testing.T) {
	e := newEnv(t, WithMaxAttempts(3))
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")
	e.sender.errs = []error{ErrTransient, ErrTransient}

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, models.PushStatusSent, e.batch(t, res.BatchID).Status())
}

func TestSweeper_GivesUpAfterMaxAttempts(t *testing.T) {
	e := newEnv(t, WithMaxAttempts(2))
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")
	e.sender.errs = []error{ErrTransient, ErrTransient, ErrTransient}

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	b := e.batch(t, res.BatchID)
	assert.Equal(t, models.PushFailureSend, b.FailureReason)
	assert.Len(t, e.sender.errs, 1, "exactly two attempts were made")
}

func TestSweeper_PermanentErrorIsNotRetried(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")
	e.sender.errs = []error{errors.New("invalid argument"), nil}

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	_, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PushFailureSend, e.batch(t, res.BatchID).FailureReason)
	assert.Empty(t, e.sender.Sent())
}

func TestSweeper_UnregisteredTokenIsCleared(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "stale")
	e.sender.errs = []error{ErrUnregistered}

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	_, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PushFailureUnregistered, e.batch(t, res.BatchID).FailureReason)

	token, err := e.users.GetPushToken(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSweeper_DisabledGateway(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")

	s := NewSweeper(e.batches, e.users, e.notes, NewFCMSender(nil), nil)
	s.now = e.clock.Now

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	_, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PushFailureDisabled, e.batch(t, res.BatchID).FailureReason)
}

func TestSweeper_ConcurrentSweepsSendOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")

	for i := 0; i < 5; i++ {
		_, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypePostLike, RecipientID: owner.ID, ActorID: uint(10 + i), ActorName: "u", PostID: strPtr(uuid.NewString())})
		require.NoError(t, err)
	}
	e.clock.Advance(time.Minute)

	// Separate sweepers stand in for separate processes.
	sweepers := []*Sweeper{e.sweeper, e.newSweeper(), e.newSweeper()}
	var wg sync.WaitGroup
	for _, s := range sweepers {
		wg.Add(1)
		go func(s *Sweeper) {
			defer wg.Done()
			_, err := s.Sweep(ctx)
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()

	assert.Len(t, e.sender.Sent(), 5)
}

func TestSweeper_MarkClicked(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "device-1")

	res, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)
	_, err = e.sweeper.Sweep(ctx)
	require.NoError(t, err)

	require.NoError(t, e.sweeper.MarkClicked(ctx, uuid.MustParse(res.BatchID), owner.ID))
	assert.NotNil(t, e.batch(t, res.BatchID).ClickedAt)
}

func TestSweeper_CancelledSweepStillRecordsFailure(t *testing.T) {
	e := newEnv(t, WithMaxAttempts(3))
	owner := e.user(t, "owner", "device-1")
	res, err := e.batcher.QueueEvent(context.Background(), Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.sender.onSend = cancel
	e.sender.errs = []error{ErrTransient}

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 1, Failed: 1}, report)

	b := e.batch(t, res.BatchID)
	assert.Equal(t, models.PushStatusFailed, b.Status())
	assert.Equal(t, models.PushFailureCancelled, b.FailureReason)
	assert.NotNil(t, b.FailedAt)
}

func TestSweeper_CancelledAfterSendStillMarksSent(t *testing.T) {
	e := newEnv(t)
	owner := e.user(t, "owner", "device-1")
	res, err := e.batcher.QueueEvent(context.Background(), Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.sender.onSend = cancel

	report, err := e.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 1, Sent: 1}, report)
	assert.Equal(t, models.PushStatusSent, e.batch(t, res.BatchID).Status())
}

type brokenFinish struct {
	repositories.PushBatchRepository
}

func (brokenFinish) MarkFailed(context.Context, uuid.UUID, string, time.Time) error {
	return errors.New("connection reset")
}

func TestSweeper_ReportCountsOnlyRecordedOutcomes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, "owner", "")
	_, err := e.batcher.QueueEvent(ctx, Event{Type: domain.TypeFollow, RecipientID: owner.ID, ActorID: 5, ActorName: "ana"})
	require.NoError(t, err)
	e.clock.Advance(time.Minute)

	s := NewSweeper(brokenFinish{e.batches}, e.users, e.notes, e.sender, logger.Discard())
	s.now = e.clock.Now

	report, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Claimed: 1}, report)
}
