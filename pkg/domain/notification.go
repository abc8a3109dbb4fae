package domain

import "time"

// NotificationType identifies what an actor did to trigger a notification.
type NotificationType string

const (
	TypeFollow       NotificationType = "follow"
	TypePostLike     NotificationType = "post_like"
	TypeRoutineLike  NotificationType = "routine_like"
	TypeRoutineSave  NotificationType = "routine_save"
	TypeCommentLike  NotificationType = "comment_like"
	TypeCommentReply NotificationType = "comment_reply"
	TypePostComment  NotificationType = "post_comment"
)

// UnknownActorName is shown when the actor's profile could not be loaded.
const UnknownActorName = "Someone"

var verbPhrases = map[NotificationType]string{
	TypeFollow:       "started following you",
	TypePostLike:     "liked your post",
	TypeRoutineLike:  "liked your routine",
	TypeRoutineSave:  "saved your routine",
	TypeCommentLike:  "liked your comment",
	TypeCommentReply: "replied to your comment",
	TypePostComment:  "commented on your post",
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	_, ok := verbPhrases[t]
	return ok
}

// VerbPhrase returns the fixed phrase that follows the actor name in display text.
func (t NotificationType) VerbPhrase() string {
	if v, ok := verbPhrases[t]; ok {
		return v
	}
	return "sent you a notification"
}

// Target describes which reference a type carries.
type Target int

const (
	TargetNone Target = iota
	TargetPost
	TargetRoutine
	TargetComment
)

// Target returns the reference kind that notifications of this type populate.
func (t NotificationType) Target() Target {
	switch t {
	case TypePostLike, TypePostComment:
		return TargetPost
	case TypeRoutineLike, TypeRoutineSave:
		return TargetRoutine
	case TypeCommentLike, TypeCommentReply:
		return TargetComment
	default:
		return TargetNone
	}
}

// Actor is the denormalized profile of the user who triggered a notification.
type Actor struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName returns the actor's username or a neutral fallback.
func (a Actor) DisplayName() string {
	if a.Username == "" {
		return UnknownActorName
	}
	return a.Username
}

// Notification is the API representation of a notification record.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID uint             `json:"recipient_id"`
	Type        NotificationType `json:"type"`
	Actor       Actor            `json:"actor"`
	PostID      *string          `json:"post_id,omitempty"`
	RoutineID   *string          `json:"routine_id,omitempty"`
	CommentID   *uint            `json:"comment_id,omitempty"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// EventKind is the change carried by a real-time notification event.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is a real-time change to one of the recipient's notifications.
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

// NotificationSettings are a user's push notification preferences.
type NotificationSettings struct {
	PushEnabled bool `json:"push_enabled"`
	Follows     bool `json:"follows"`
	Likes       bool `json:"likes"`
	Saves       bool `json:"saves"`
	Comments    bool `json:"comments"`
}

// DefaultSettings enables everything. It applies to users that never saved preferences.
func DefaultSettings() NotificationSettings {
	return NotificationSettings{PushEnabled: true, Follows: true, Likes: true, Saves: true, Comments: true}
}

// Allows reports whether push delivery is enabled for the category of t.
func (s NotificationSettings) Allows(t NotificationType) bool {
	if !s.PushEnabled {
		return false
	}
	switch t {
	case TypeFollow:
		return s.Follows
	case TypePostLike, TypeRoutineLike, TypeCommentLike:
		return s.Likes
	case TypeRoutineSave:
		return s.Saves
	case TypePostComment, TypeCommentReply:
		return s.Comments
	default:
		return false
	}
}
