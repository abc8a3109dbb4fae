package client

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoComposer is returned by Send when no owner is registered.
	ErrNoComposer = errors.New("client: no active composer")
	// ErrEmptyDraft is returned by Send when the active owner has no text.
	ErrEmptyDraft = errors.New("client: nothing to send")
)

// SendFunc submits an owner's draft.
type SendFunc func(ctx context.Context) error

// ComposeState is what a shared send control needs to render.
type ComposeState struct {
	Owner   string
	HasText bool
}

// Active reports whether any owner is registered.
func (s ComposeState) Active() bool { return s.Owner != "" }

type composeOwner struct {
	name    string
	token   uint64
	send    SendFunc
	hasText bool
}

// ComposeBridge connects the screen that owns a draft to a shared send
// control. Owners register explicitly; the most recent live registration
// is the active one and the only one Send reaches.
type ComposeBridge struct {
	mu        sync.Mutex
	seq       uint64
	owners    []composeOwner
	listeners map[uint64]func(ComposeState)
}

func NewComposeBridge() *ComposeBridge {
	return &ComposeBridge{listeners: make(map[uint64]func(ComposeState))}
}

// Register makes owner the active composer. Registering an owner again
// replaces its handler. The returned func removes this registration only;
// calling it after a newer Register for the same owner does nothing.
func (b *ComposeBridge) Register(owner string, send SendFunc) (unregister func()) {
	b.mu.Lock()
	b.seq++
	token := b.seq
	b.removeLocked(func(o composeOwner) bool { return o.name == owner })
	b.owners = append(b.owners, composeOwner{name: owner, token: token, send: send})
	state, listeners := b.stateLocked(), b.listenersLocked()
	b.mu.Unlock()
	publish(listeners, state)

	return func() {
		b.mu.Lock()
		before := b.stateLocked()
		if !b.removeLocked(func(o composeOwner) bool { return o.token == token }) {
			b.mu.Unlock()
			return
		}
		after, listeners := b.stateLocked(), b.listenersLocked()
		b.mu.Unlock()
		if after != before {
			publish(listeners, after)
		}
	}
}

// SetHasText records whether owner's draft has content. Unknown owners are ignored.
func (b *ComposeBridge) SetHasText(owner string, hasText bool) {
	b.mu.Lock()
	before := b.stateLocked()
	for i := range b.owners {
		if b.owners[i].name == owner {
			b.owners[i].hasText = hasText
		}
	}
	after, listeners := b.stateLocked(), b.listenersLocked()
	b.mu.Unlock()
	if after != before {
		publish(listeners, after)
	}
}

// Subscribe calls listener with the current state now and after every
// change of the active owner or its text flag.
func (b *ComposeBridge) Subscribe(listener func(ComposeState)) (unsubscribe func()) {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.listeners[id] = listener
	state := b.stateLocked()
	b.mu.Unlock()
	listener(state)

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// State returns the active owner and its text flag.
func (b *ComposeBridge) State() ComposeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Send submits the active owner's draft.
func (b *ComposeBridge) Send(ctx context.Context) error {
	b.mu.Lock()
	if len(b.owners) == 0 {
		b.mu.Unlock()
		return ErrNoComposer
	}
	active := b.owners[len(b.owners)-1]
	b.mu.Unlock()

	if !active.hasText {
		return ErrEmptyDraft
	}
	return active.send(ctx)
}

func (b *ComposeBridge) removeLocked(match func(composeOwner) bool) bool {
	for i, o := range b.owners {
		if match(o) {
			b.owners = append(b.owners[:i], b.owners[i+1:]...)
			return true
		}
	}
	return false
}

func (b *ComposeBridge) stateLocked() ComposeState {
	if len(b.owners) == 0 {
		return ComposeState{}
	}
	active := b.owners[len(b.owners)-1]
	return ComposeState{Owner: active.name, HasText: active.hasText}
}

func (b *ComposeBridge) listenersLocked() []func(ComposeState) {
	out := make([]func(ComposeState), 0, len(b.listeners))
	for _, l := range b.listeners {
		out = append(out, l)
	}
	return out
}

func publish(listeners []func(ComposeState), state ComposeState) {
	for _, l := range listeners {
		l(state)
	}
}
