package push

import (
	"fmt"
	"strconv"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
)

// BatchKey returns the coalescing key for e: "{type}_{targetId}" for
// target-scoped types and "{type}_{recipientId}" for follows. The actor
// never contributes to the key.
func BatchKey(e Event) string {
	return fmt.Sprintf("%s_%s", e.Type, targetID(e))
}

func targetID(e Event) string {
	switch e.Type.Target() {
	case domain.TargetPost:
		if e.PostID != nil {
			return *e.PostID
		}
	case domain.TargetRoutine:
		if e.RoutineID != nil {
			return *e.RoutineID
		}
	case domain.TargetComment:
		if e.CommentID != nil {
			return strconv.FormatUint(uint64(*e.CommentID), 10)
		}
	}
	return strconv.FormatUint(uint64(e.RecipientID), 10)
}
