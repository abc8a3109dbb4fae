package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeBridge_SendReachesActiveOwnerOnly(t *testing.T) {
	b := NewComposeBridge()
	var sent []string
	sender := func(name string) SendFunc {
		return func(context.Context) error {
			sent = append(sent, name)
			return nil
		}
	}

	unregisterPost := b.Register("new-post", sender("new-post"))
	unregisterComment := b.Register("comment", sender("comment"))

	b.SetHasText("new-post", true)
	assert.ErrorIs(t, b.Send(context.Background()), ErrEmptyDraft)

	b.SetHasText("comment", true)
	require.NoError(t, b.Send(context.Background()))
	assert.Equal(t, []string{"comment"}, sent)

	unregisterComment()
	assert.Equal(t, ComposeState{Owner: "new-post", HasText: true}, b.State())
	require.NoError(t, b.Send(context.Background()))
	assert.Equal(t, []string{"comment", "new-post"}, sent)

	unregisterPost()
	assert.False(t, b.State().Active())
	assert.ErrorIs(t, b.Send(context.Background()), ErrNoComposer)
}

func TestComposeBridge_StaleUnregisterIsIgnored(t *testing.T) {
	b := NewComposeBridge()
	stale := b.Register("comment", func(context.Context) error { return nil })
	b.Register("comment", func(context.Context) error { return nil })

	stale()
	assert.Equal(t, "comment", b.State().Owner)

	stale()
	assert.Equal(t, "comment", b.State().Owner)
}

func TestComposeBridge_Subscribe(t *testing.T) {
	b := NewComposeBridge()
	var states []ComposeState
	unsubscribe := b.Subscribe(func(s ComposeState) { states = append(states, s) })

	unregister := b.Register("comment", func(context.Context) error { return nil })
	b.SetHasText("comment", true)
	b.SetHasText("comment", true)
	b.SetHasText("unknown", true)
	unregister()
	unsubscribe()
	b.Register("late", func(context.Context) error { return nil })

	assert.Equal(t, []ComposeState{
		{},
		{Owner: "comment"},
		{Owner: "comment", HasText: true},
		{},
	}, states)
}
