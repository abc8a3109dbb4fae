package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/logger"
)

// DefaultUndoWindow is how long a deleted notification can still be restored.
const DefaultUndoWindow = 4 * time.Second

const defaultDeleteTimeout = 15 * time.Second

// Deleter issues the remote delete once an undo window closes.
type Deleter interface {
	DeleteNotification(ctx context.Context, id string) error
}

type pendingDelete struct {
	timer *time.Timer
	seq   uint64
}

// DeleteQueue hides notifications immediately and deletes them remotely only
// after the undo window elapses. Each id has its own timer.
type DeleteQueue struct {
	deleter  Deleter
	window   time.Duration
	timeout  time.Duration
	logger   *logger.Logger
	onChange func()

	mu      sync.Mutex
	seq     uint64
	hidden  DeleteSet
	pending map[string]*pendingDelete
}

// Option configures a DeleteQueue.
type Option func(*DeleteQueue)

// WithWindow overrides DefaultUndoWindow.
func WithWindow(d time.Duration) Option {
	return func(q *DeleteQueue) { q.window = d }
}

// WithLogger sets the logger used for failed remote deletes.
func WithLogger(l *logger.Logger) Option {
	return func(q *DeleteQueue) { q.logger = l }
}

// WithOnChange registers a callback fired whenever the delete-set changes.
func WithOnChange(fn func()) Option {
	return func(q *DeleteQueue) { q.onChange = fn }
}

// NewDeleteQueue creates a DeleteQueue backed by d.
func NewDeleteQueue(d Deleter, opts ...Option) *DeleteQueue {
	q := &DeleteQueue{
		deleter: d,
		window:  DefaultUndoWindow,
		timeout: defaultDeleteTimeout,
		hidden:  make(DeleteSet),
		pending: make(map[string]*pendingDelete),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Delete hides id and arms its undo timer. Deleting an id that is already
// hidden is a no-op.
func (q *DeleteQueue) Delete(id string) {
	q.mu.Lock()
	if q.hidden.Has(id) {
		q.mu.Unlock()
		return
	}
	q.hidden[id] = struct{}{}
	q.seq++
	seq := q.seq
	entry := &pendingDelete{seq: seq}
	entry.timer = time.AfterFunc(q.window, func() { q.commit(id, seq) })
	q.pending[id] = entry
	q.mu.Unlock()

	q.changed()
}

// Undo restores id if its window is still open. It reports false when the
// remote delete has already been issued or id was never deleted.
func (q *DeleteQueue) Undo(id string) bool {
	q.mu.Lock()
	entry, ok := q.pending[id]
	if !ok {
		q.mu.Unlock()
		return false
	}
	entry.timer.Stop()
	delete(q.pending, id)
	delete(q.hidden, id)
	q.mu.Unlock()

	q.changed()
	return true
}

// Pending reports whether id is hidden with its undo window still open.
func (q *DeleteQueue) Pending(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[id]
	return ok
}

// Deleted returns a snapshot of every hidden id, pending or committed.
func (q *DeleteQueue) Deleted() DeleteSet {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(DeleteSet, len(q.hidden))
	for id := range q.hidden {
		out[id] = struct{}{}
	}
	return out
}

// Flush closes every open undo window now and issues the remote deletes.
func (q *DeleteQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	ids := make([]string, 0, len(q.pending))
	for id, entry := range q.pending {
		entry.timer.Stop()
		ids = append(ids, id)
	}
	q.pending = make(map[string]*pendingDelete)
	q.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := q.deleter.DeleteNotification(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete notification %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (q *DeleteQueue) commit(id string, seq uint64) {
	q.mu.Lock()
	entry, ok := q.pending[id]
	if !ok || entry.seq != seq {
		q.mu.Unlock()
		return
	}
	delete(q.pending, id)
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.deleter.DeleteNotification(ctx, id); err != nil {
		q.logger.Error("feed: delete notification %s: %v", id, err)
	}
}

func (q *DeleteQueue) changed() {
	if q.onChange != nil {
		q.onChange()
	}
}
