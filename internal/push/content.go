package push

import (
	"strconv"

	"github.com/atlas-fitness/atlas-api/internal/models"
	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/feed"
)

var titles = map[domain.NotificationType]string{
	domain.TypeFollow:       "New follower",
	domain.TypePostLike:     "New like",
	domain.TypeRoutineLike:  "New like",
	domain.TypeRoutineSave:  "Routine saved",
	domain.TypeCommentLike:  "New like",
	domain.TypeCommentReply: "New reply",
	domain.TypePostComment:  "New comment",
}

// RenderContent builds the title and body for a batch with the given
// actors, in contribution order. The most recent actor leads the body.
func RenderContent(t domain.NotificationType, actorNames []string, targetName string) models.PushContent {
	title, ok := titles[t]
	if !ok {
		title = "Atlas"
	}

	lead := domain.UnknownActorName
	if n := len(actorNames); n > 0 && actorNames[n-1] != "" {
		lead = actorNames[n-1]
	}
	others := len(actorNames) - 1
	if others < 0 {
		others = 0
	}

	body := feed.GroupedMessage(lead, others, t)
	if targetName != "" && t.Target() == domain.TargetRoutine {
		body += " \"" + targetName + "\""
	}
	return models.PushContent{Title: title, Body: body}
}

// payloadData is the key-value data a client needs to route a tap.
func payloadData(b *models.PushBatch) map[string]string {
	data := map[string]string{
		"batch_id": b.ID.String(),
		"type":     string(b.Type),
		"count":    strconv.Itoa(len(b.Actors)),
	}
	if b.PostID != nil {
		data["post_id"] = *b.PostID
	}
	if b.RoutineID != nil {
		data["routine_id"] = *b.RoutineID
	}
	if b.CommentID != nil {
		data["comment_id"] = strconv.FormatUint(uint64(*b.CommentID), 10)
	}
	return data
}

// renderBatch renders the full payload from the batch's stored actors.
func renderBatch(b *models.PushBatch) models.PushContent {
	c := RenderContent(b.Type, b.ActorNames(), b.TargetName)
	c.Data = payloadData(b)
	return c
}
