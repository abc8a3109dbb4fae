package models

import (
	"testing"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestNotificationValidate(t *testing.T) {
	post, routine := "p1", "r1"
	comment := uint(9)
	empty := ""

	tests := []struct {
		name  string
		n     Notification
		valid bool
	}{
		{"follow without target", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeFollow}, true},
		{"follow with post", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeFollow, PostID: &post}, false},
		{"post like", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypePostLike, PostID: &post}, true},
		{"post like with empty post id", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypePostLike, PostID: &empty}, false},
		{"post comment with routine too", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypePostComment, PostID: &post, RoutineID: &routine}, false},
		{"routine save", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeRoutineSave, RoutineID: &routine}, true},
		{"routine like without routine", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeRoutineLike}, false},
		{"comment reply", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeCommentReply, CommentID: &comment}, true},
		{"comment like on post", Notification{ActorID: 1, RecipientID: 2, Type: domain.TypeCommentLike, PostID: &post}, false},
		{"missing actor", Notification{RecipientID: 2, Type: domain.TypeFollow}, false},
		{"unknown type", Notification{ActorID: 1, RecipientID: 2, Type: "poke"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.n.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidNotification)
		})
	}
}

func TestNotificationToDomain(t *testing.T) {
	n := Notification{RecipientID: 2, ActorID: 1, Type: domain.TypeFollow, ActorUsername: "ana", IsRead: true}
	assert.NoError(t, n.BeforeCreate(nil))

	d := n.ToDomain()
	assert.Equal(t, n.ID.String(), d.ID)
	assert.Equal(t, domain.Actor{ID: 1, Username: "ana"}, d.Actor)
	assert.True(t, d.Read)
}
