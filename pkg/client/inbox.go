package client

import (
	"sync"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// DefaultInboxCapacity bounds how many notifications an Inbox keeps.
const DefaultInboxCapacity = 200

// Inbox is the local notification list kept current by real-time events.
// It holds at most its capacity, newest first, evicting the oldest.
type Inbox struct {
	mu       sync.Mutex
	capacity int
	items    []domain.Notification
	onChange func([]domain.Notification)
}

// NewInbox creates an empty Inbox. capacity <= 0 uses DefaultInboxCapacity.
// onChange may be nil; it receives a copy of the list after every change.
func NewInbox(capacity int, onChange func([]domain.Notification)) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{capacity: capacity, onChange: onChange}
}

// Reset replaces the contents, e.g. with a freshly fetched page. list must
// be newest first.
func (b *Inbox) Reset(list []domain.Notification) {
	b.mu.Lock()
	if len(list) > b.capacity {
		list = list[:b.capacity]
	}
	b.items = append(b.items[:0:0], list...)
	snapshot := b.snapshot()
	b.mu.Unlock()
	b.notify(snapshot)
}

// Apply folds one real-time event into the list. It reports whether the
// list changed.
func (b *Inbox) Apply(ev domain.Event) bool {
	b.mu.Lock()
	changed := false
	idx := b.indexOf(ev.Notification.ID)
	switch ev.Kind {
	case domain.EventInsert:
		if idx >= 0 {
			b.items[idx] = ev.Notification
		} else {
			b.items = append([]domain.Notification{ev.Notification}, b.items...)
			if len(b.items) > b.capacity {
				b.items = b.items[:b.capacity]
			}
		}
		changed = true
	case domain.EventUpdate:
		if idx >= 0 {
			b.items[idx] = ev.Notification
			changed = true
		}
	case domain.EventDelete:
		if idx >= 0 {
			b.items = append(b.items[:idx], b.items[idx+1:]...)
			changed = true
		}
	}
	var snapshot []domain.Notification
	if changed {
		snapshot = b.snapshot()
	}
	b.mu.Unlock()

	if changed {
		b.notify(snapshot)
	}
	return changed
}

// Items returns a copy of the list, newest first.
func (b *Inbox) Items() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// Len returns the number of notifications held.
func (b *Inbox) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Unread counts unread notifications in the list.
func (b *Inbox) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, item := range b.items {
		if !item.Read {
			n++
		}
	}
	return n
}

func (b *Inbox) indexOf(id string) int {
	for i, item := range b.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (b *Inbox) snapshot() []domain.Notification {
	return append([]domain.Notification(nil), b.items...)
}

func (b *Inbox) notify(list []domain.Notification) {
	if b.onChange != nil {
		b.onChange(list)
	}
}
