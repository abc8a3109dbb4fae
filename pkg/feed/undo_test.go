package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDeleter) DeleteNotification(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, id)
	return d.err
}

func (d *fakeDeleter) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func TestDeleteQueue_UndoWithinWindow(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d, WithWindow(200*time.Millisecond))

	q.Delete("n1")
	assert.True(t, q.Deleted().Has("n1"))
	assert.True(t, q.Pending("n1"))

	time.Sleep(100 * time.Millisecond)
	assert.True(t, q.Undo("n1"))
	assert.False(t, q.Deleted().Has("n1"))

	time.Sleep(250 * time.Millisecond)
	assert.Empty(t, d.Calls())
}

func TestDeleteQueue_CommitsAfterWindow(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d, WithWindow(50*time.Millisecond))

	q.Delete("n1")

	require.Eventually(t, func() bool { return len(d.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"n1"}, d.Calls())
	assert.True(t, q.Deleted().Has("n1"))
	assert.False(t, q.Pending("n1"))
	assert.False(t, q.Undo("n1"))
	assert.True(t, q.Deleted().Has("n1"))
}

func TestDeleteQueue_IndependentIDs(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d, WithWindow(100*time.Millisecond))

	q.Delete("a")
	q.Delete("b")
	assert.True(t, q.Undo("b"))

	require.Eventually(t, func() bool { return len(d.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"a"}, d.Calls())
	assert.True(t, q.Deleted().Has("a"))
	assert.False(t, q.Deleted().Has("b"))
}

func TestDeleteQueue_RepeatDeleteIsNoop(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d, WithWindow(30*time.Millisecond))

	q.Delete("n1")
	q.Delete("n1")

	require.Eventually(t, func() bool { return len(d.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, d.Calls(), 1)
}

func TestDeleteQueue_UndoThenDeleteAgainRestartsWindow(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d, WithWindow(150*time.Millisecond))

	q.Delete("n1")
	time.Sleep(100 * time.Millisecond)
	require.True(t, q.Undo("n1"))
	q.Delete("n1")

	// The first timer would have fired by now; the second must still be open.
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, d.Calls())
	assert.True(t, q.Pending("n1"))

	require.Eventually(t, func() bool { return len(d.Calls()) == 1 }, time.Second, 10*time.Millisecond)
}

func TestDeleteQueue_FailedRemoteDeleteStaysHidden(t *testing.T) {
	d := &fakeDeleter{err: errors.New("network down")}
	q := NewDeleteQueue(d, WithWindow(20*time.Millisecond))

	q.Delete("n1")

	require.Eventually(t, func() bool { return len(d.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, q.Deleted().Has("n1"))
}

func TestDeleteQueue_Flush(t *testing.T) {
	d := &fakeDeleter{}
	q := NewDeleteQueue(d)

	q.Delete("a")
	q.Delete("b")
	require.NoError(t, q.Flush(context.Background()))

	assert.ElementsMatch(t, []string{"a", "b"}, d.Calls())
	assert.False(t, q.Undo("a"))
	assert.True(t, q.Deleted().Has("b"))
}

func TestDeleteQueue_OnChange(t *testing.T) {
	var mu sync.Mutex
	changes := 0
	q := NewDeleteQueue(&fakeDeleter{}, WithWindow(time.Minute), WithOnChange(func() {
		mu.Lock()
		changes++
		mu.Unlock()
	}))

	q.Delete("a")
	q.Undo("a")
	q.Undo("a")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, changes)
}
