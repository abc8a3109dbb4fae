package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationType_Target(t *testing.T) {
	assert.Equal(t, TargetNone, TypeFollow.Target())
	assert.Equal(t, TargetPost, TypePostLike.Target())
	assert.Equal(t, TargetPost, TypePostComment.Target())
	assert.Equal(t, TargetRoutine, TypeRoutineLike.Target())
	assert.Equal(t, TargetRoutine, TypeRoutineSave.Target())
	assert.Equal(t, TargetComment, TypeCommentLike.Target())
	assert.Equal(t, TargetComment, TypeCommentReply.Target())
	assert.False(t, NotificationType("mention").Valid())
}

func TestNotificationSettings_Allows(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.Allows(TypeFollow))
	assert.True(t, s.Allows(TypeCommentReply))

	s.Likes = false
	assert.False(t, s.Allows(TypePostLike))
	assert.False(t, s.Allows(TypeRoutineLike))
	assert.False(t, s.Allows(TypeCommentLike))
	assert.True(t, s.Allows(TypeRoutineSave))

	s = DefaultSettings()
	s.PushEnabled = false
	assert.False(t, s.Allows(TypeFollow))
}

func TestActor_DisplayName(t *testing.T) {
	assert.Equal(t, "Someone", Actor{}.DisplayName())
	assert.Equal(t, "lena", Actor{Username: "lena"}.DisplayName())
}
