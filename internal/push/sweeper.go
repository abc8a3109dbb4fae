package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/internal/repositories"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultQuietPeriod = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBackoff     = 500 * time.Millisecond
	DefaultSweepLimit  = 100

	finishTimeout = 10 * time.Second
)

// TokenStore resolves and invalidates device tokens.
type TokenStore interface {
	GetPushToken(ctx context.Context, userID uint) (string, error)
	ClearPushToken(ctx context.Context, token string) error
}

// UnreadCounter supplies the badge number.
type UnreadCounter interface {
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
}

// SweepReport summarizes one delivery pass.
type SweepReport struct {
	Skipped bool `json:"skipped"`
	Claimed int  `json:"claimed"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}

// Sweeper delivers batches whose quiet period has elapsed. Sweeps may run
// concurrently from several triggers or processes: each batch is claimed
// with a conditional update before sending, so it is delivered at most once.
type Sweeper struct {
	batches repositories.PushBatchRepository
	tokens  TokenStore
	unread  UnreadCounter
	sender  Sender
	log     *logger.Logger

	quietPeriod time.Duration
	maxAttempts int
	backoff     time.Duration
	limit       int
	now         func() time.Time

	running sync.Mutex
}

type SweeperOption func(*Sweeper)

func WithQuietPeriod(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d >= 0 {
			s.quietPeriod = d
		}
	}
}

func WithMaxAttempts(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

func WithSweepLimit(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewSweeper(batches repositories.PushBatchRepository, tokens TokenStore, unread UnreadCounter, sender Sender, log *logger.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		batches:     batches,
		tokens:      tokens,
		unread:      unread,
		sender:      sender,
		log:         log,
		quietPeriod: DefaultQuietPeriod,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		limit:       DefaultSweepLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep runs one delivery pass. An overlapping call in the same process
// returns immediately with Skipped set.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	if !s.running.TryLock() {
		report.Skipped = true
		return report, nil
	}
	defer s.running.Unlock()

	due, err := s.batches.ListDue(ctx, s.now().Add(-s.quietPeriod), s.limit)
	if err != nil {
		return report, fmt.Errorf("list due push batches: %w", err)
	}

	for _, b := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		claimed, err := s.batches.Claim(ctx, b.ID, s.now())
		if err != nil {
			s.log.Error("claim push batch %s: %v", b.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		report.Claimed++
		switch s.deliver(ctx, b.ID) {
		case outcomeSent:
			report.Sent++
		case outcomeFailed:
			report.Failed++
		}
	}

	if report.Claimed > 0 {
		s.log.Info("push sweep: %d claimed, %d sent, %d failed", report.Claimed, report.Sent, report.Failed)
	}
	return report, nil
}

type outcome int

const (
	// outcomeUnrecorded means the terminal state could not be written.
	outcomeUnrecorded outcome = iota
	outcomeSent
	outcomeFailed
)

// deliver sends a claimed batch and records the terminal state.
func (s *Sweeper) deliver(ctx context.Context, id uuid.UUID) outcome {
	// Reload after the claim so late contributions are included.
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		return s.fail(ctx, id, models.PushFailureSend, err)
	}

	token, err := s.tokens.GetPushToken(ctx, batch.RecipientID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return s.fail(ctx, id, models.PushFailureSend, err)
	}
	if token == "" {
		return s.fail(ctx, id, models.PushFailureNoToken, nil)
	}

	content := renderBatch(batch)
	badge := 0
	if n, err := s.unread.GetUnreadCount(ctx, batch.RecipientID); err != nil {
		s.log.Warn("badge count for user %d: %v", batch.RecipientID, err)
	} else {
		badge = int(n)
	}

	err = s.send(ctx, Message{
		Token: token,
		Title: content.Title,
		Body:  content.Body,
		Data:  content.Data,
		Badge: badge,
	})
	switch {
	case err == nil:
		fctx, cancel := finishContext(ctx)
		defer cancel()
		if err := s.batches.MarkSent(fctx, id, content, s.now()); err != nil {
			s.log.Error("mark push batch %s sent: %v", id, err)
			return outcomeUnrecorded
		}
		return outcomeSent
	case errors.Is(err, ErrUnregistered):
		fctx, cancel := finishContext(ctx)
		defer cancel()
		if err := s.tokens.ClearPushToken(fctx, token); err != nil {
			s.log.Warn("clear push token for user %d: %v", batch.RecipientID, err)
		}
		return s.fail(ctx, id, models.PushFailureUnregistered, err)
	case errors.Is(err, ErrPushDisabled):
		return s.fail(ctx, id, models.PushFailureDisabled, err)
	default:
		return s.fail(ctx, id, models.PushFailureSend, err)
	}
}

// finishContext outlives the sweep's context so a claimed batch always
// reaches sent or failed.
func finishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
}

// send retries transient gateway errors with exponential backoff.
func (s *Sweeper) send(ctx context.Context, m Message) error {
	delay := s.backoff
	for attempt := 1; ; attempt++ {
		err := s.sender.Send(ctx, m)
		if err == nil || !errors.Is(err, ErrTransient) || attempt >= s.maxAttempts {
			return err
		}
		s.log.Warn("push send attempt %d/%d failed: %v", attempt, s.maxAttempts, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

// fail records a terminal failure. A cause seen after the sweep's context
// ended is recorded as a cancellation.
func (s *Sweeper) fail(ctx context.Context, id uuid.UUID, reason string, cause error) outcome {
	if cause != nil && ctx.Err() != nil {
		reason = models.PushFailureCancelled
	}
	if cause != nil {
		s.log.Warn("push batch %s failed (%s): %v", id, reason, cause)
	}

	fctx, cancel := finishContext(ctx)
	defer cancel()
	if err := s.batches.MarkFailed(fctx, id, reason, s.now()); err != nil {
		s.log.Error("mark push batch %s failed: %v", id, err)
		return outcomeUnrecorded
	}
	return outcomeFailed
}

// MarkClicked records that the recipient opened a delivered push.
func (s *Sweeper) MarkClicked(ctx context.Context, id uuid.UUID, recipientID uint) error {
	return s.batches.MarkClicked(ctx, id, recipientID, s.now())
}
